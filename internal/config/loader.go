package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BETBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BETBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "BETBOT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "BETBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "BETBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "BETBOT_DATABASE_NAME")
	setStr(&cfg.Database.User, "BETBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "BETBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "BETBOT_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "BETBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "BETBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "BETBOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BETBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BETBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BETBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BETBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BETBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BETBOT_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.OddsTTLSeconds, "BETBOT_REDIS_ODDS_TTL_SECONDS")
	setInt(&cfg.Redis.LockTTLSeconds, "BETBOT_REDIS_LOCK_TTL_SECONDS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "BETBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "BETBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BETBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "BETBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BETBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BETBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BETBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BETBOT_S3_FORCE_PATH_STYLE")

	// ── Betfair ──
	setStr(&cfg.Betfair.AppKey, "BETBOT_BETFAIR_APP_KEY")
	setStr(&cfg.Betfair.Username, "BETBOT_BETFAIR_USERNAME")
	setStr(&cfg.Betfair.Password, "BETBOT_BETFAIR_PASSWORD")
	setStr(&cfg.Betfair.CertFile, "BETBOT_BETFAIR_CERT_FILE")
	setStr(&cfg.Betfair.KeyFile, "BETBOT_BETFAIR_KEY_FILE")
	setStr(&cfg.Betfair.APIHost, "BETBOT_BETFAIR_API_HOST")
	setStr(&cfg.Betfair.LoginHost, "BETBOT_BETFAIR_LOGIN_HOST")
	setInt(&cfg.Betfair.TimeoutSeconds, "BETBOT_BETFAIR_TIMEOUT_SECONDS")
	setInt(&cfg.Betfair.MaxResults, "BETBOT_BETFAIR_MAX_RESULTS")
	setBool(&cfg.Betfair.Simulate, "BETBOT_BETFAIR_SIMULATE")

	// ── Advisor ──
	setStr(&cfg.Advisor.BaseURL, "BETBOT_ADVISOR_BASE_URL")
	setStr(&cfg.Advisor.APIKey, "BETBOT_ADVISOR_API_KEY")
	setStr(&cfg.Advisor.Model, "BETBOT_ADVISOR_MODEL")
	setInt(&cfg.Advisor.TimeoutSeconds, "BETBOT_ADVISOR_TIMEOUT_SECONDS")

	// ── Betting ──
	setStr(&cfg.Betting.Sport, "BETBOT_BETTING_SPORT")
	setFloat64(&cfg.Betting.BankrollPercent, "BETBOT_BETTING_BANKROLL_PERCENT")
	setFloat64(&cfg.Betting.MaxBankroll, "BETBOT_BETTING_MAX_BANKROLL")
	setFloat64(&cfg.Betting.RiskAppetite, "BETBOT_BETTING_RISK_APPETITE")
	setBool(&cfg.Betting.UseReliableTeams, "BETBOT_BETTING_USE_RELIABLE_TEAMS")
	setFloat64(&cfg.Betting.MinStake, "BETBOT_BETTING_MIN_STAKE")
	setFloat64(&cfg.Betting.MinProfit, "BETBOT_BETTING_MIN_PROFIT")
	setFloat64(&cfg.Betting.MinLiquidity, "BETBOT_BETTING_MIN_LIQUIDITY")
	setStringSlice(&cfg.Betting.Competitions, "BETBOT_BETTING_COMPETITIONS")

	// ── Scheduler ──
	setInt(&cfg.Scheduler.DailyIntentHourUTC, "BETBOT_SCHEDULER_DAILY_INTENT_HOUR_UTC")
	setInt(&cfg.Scheduler.PromotionHourUTC, "BETBOT_SCHEDULER_PROMOTION_HOUR_UTC")
	setInt(&cfg.Scheduler.SuggestionIntervalMinutes, "BETBOT_SCHEDULER_SUGGESTION_INTERVAL_MINUTES")
	setInt(&cfg.Scheduler.ScanIntervalSeconds, "BETBOT_SCHEDULER_SCAN_INTERVAL_SECONDS")
	setInt(&cfg.Scheduler.SettlementIntervalMinutes, "BETBOT_SCHEDULER_SETTLEMENT_INTERVAL_MINUTES")
	setInt(&cfg.Scheduler.LearningIntervalMinutes, "BETBOT_SCHEDULER_LEARNING_INTERVAL_MINUTES")

	// ── Server ──
	setInt(&cfg.Server.Port, "BETBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BETBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "BETBOT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BETBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BETBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "BETBOT_NOTIFY_DISCORD_WEBHOOK")
	setStringSlice(&cfg.Notify.Events, "BETBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "BETBOT_MODE")
	setStr(&cfg.LogLevel, "BETBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
