// Package config defines the top-level configuration for the betting bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by BETBOT_* environment variables.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Betfair   BetfairConfig   `toml:"betfair"`
	Advisor   AdvisorConfig   `toml:"advisor"`
	Betting   BettingConfig   `toml:"betting"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	PoolSize        int    `toml:"pool_size"`
	MaxRetries      int    `toml:"max_retries"`
	TLSEnabled      bool   `toml:"tls_enabled"`
	OddsTTLSeconds  int    `toml:"odds_ttl_seconds"`
	LockTTLSeconds  int    `toml:"lock_ttl_seconds"`
}

// S3Config holds S3-compatible object storage parameters for cold-storage
// archival of finished records.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// BetfairConfig holds exchange API credentials and endpoints. Login uses the
// certificate flow, so cert/key paths are required for live placement.
type BetfairConfig struct {
	AppKey         string `toml:"app_key"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	CertFile       string `toml:"cert_file"`
	KeyFile        string `toml:"key_file"`
	APIHost        string `toml:"api_host"`
	LoginHost      string `toml:"login_host"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxResults     int    `toml:"max_results"`
	// Simulate short-circuits order placement with mock bet ids, for local
	// runs against a real discovery feed.
	Simulate bool `toml:"simulate"`
}

// AdvisorConfig holds the AI recommendation engine endpoint. The engine is an
// OpenAI-compatible chat completions API with server-side web search tools;
// the bot only sees its typed JSON output.
type AdvisorConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// BettingConfig holds automated betting defaults. Values under [betting] act
// as fallbacks; the persisted settings document overrides them at runtime.
type BettingConfig struct {
	Sport            string  `toml:"sport"`
	BankrollPercent  float64 `toml:"bankroll_percent"`
	MaxBankroll      float64 `toml:"max_bankroll"`
	RiskAppetite     float64 `toml:"risk_appetite"`
	UseReliableTeams bool    `toml:"use_reliable_teams"`
	MinStake         float64 `toml:"min_stake"`
	MinProfit        float64 `toml:"min_profit"`
	MinLiquidity     float64 `toml:"min_liquidity"`

	// Competitions lists the trusted leagues searched by the automated
	// lines; ReliableTeams maps each competition to the teams considered
	// safe enough to analyze.
	Competitions  []string            `toml:"competitions"`
	ReliableTeams map[string][]string `toml:"reliable_teams"`
}

// AllReliableTeams flattens the per-competition team lists.
func (b BettingConfig) AllReliableTeams() []string {
	var teams []string
	for _, comp := range b.Competitions {
		teams = append(teams, b.ReliableTeams[comp]...)
	}
	return teams
}

// SchedulerConfig holds worker-mode timing parameters.
type SchedulerConfig struct {
	// DailyIntentHourUTC is when the daily automation line creates its
	// intent (matches the original 10:00 UTC schedule).
	DailyIntentHourUTC int `toml:"daily_intent_hour_utc"`
	// PromotionHourUTC is when pending suggestions are promoted.
	PromotionHourUTC int `toml:"promotion_hour_utc"`
	// SuggestionIntervalMinutes is the hourly automation line cadence.
	SuggestionIntervalMinutes int `toml:"suggestion_interval_minutes"`
	// ScanIntervalSeconds is how often the intent-analysis and
	// ready-placement scans run. These replace the document triggers of the
	// managed-platform deployment.
	ScanIntervalSeconds int `toml:"scan_interval_seconds"`
	// SettlementIntervalMinutes is the settlement reconciliation cadence.
	SettlementIntervalMinutes int `toml:"settlement_interval_minutes"`
	// LearningIntervalMinutes is the learning loop cadence.
	LearningIntervalMinutes int `toml:"learning_interval_minutes"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials and the event filter.
type NotifyConfig struct {
	Events          []string `toml:"events"`
	TelegramToken   string   `toml:"telegram_token"`
	TelegramChatID  string   `toml:"telegram_chat_id"`
	DiscordWebhook  string   `toml:"discord_webhook"`
}

// Defaults returns the built-in configuration. The trusted-league table
// mirrors the production deployment: top European competitions with the teams
// considered reliable enough for automated analysis.
func Defaults() Config {
	return Config{
		Mode:     "full",
		LogLevel: "info",
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "betbot",
			User:          "betbot",
			SSLMode:       "disable",
			PoolMaxConns:  8,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:           "localhost:6379",
			PoolSize:       8,
			MaxRetries:     3,
			OddsTTLSeconds: 120,
			LockTTLSeconds: 240,
		},
		Betfair: BetfairConfig{
			APIHost:        "https://api.betfair.com/exchange",
			LoginHost:      "https://identitysso-cert.betfair.com",
			TimeoutSeconds: 30,
			MaxResults:     40,
		},
		Advisor: AdvisorConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-5.2",
			TimeoutSeconds: 240,
		},
		Betting: BettingConfig{
			Sport:            "Soccer",
			BankrollPercent:  50,
			MaxBankroll:      5000,
			RiskAppetite:     1.5,
			UseReliableTeams: true,
			MinStake:         1.0,
			MinProfit:        0.02,
			MinLiquidity:     500,
			Competitions: []string{
				"English Premier League",
				"FA Cup",
				"Spanish La Liga",
				"Serie A",
				"Bundesliga",
				"Ligue 1",
				"UEFA Champions League",
			},
			ReliableTeams: map[string][]string{
				"English Premier League": {"Man City", "Liverpool", "Arsenal", "Chelsea", "Man Utd", "Aston Villa"},
				"FA Cup":                 {"Man City", "Arsenal", "Aston Villa", "Brentford", "Brighton"},
				"Spanish La Liga":        {"Real Madrid", "Barcelona", "Atletico Madrid"},
				"Serie A":                {"Inter Milan", "AC Milan", "Napoli", "Roma"},
				"Bundesliga":             {"Bayern Munich", "Borussia Dortmund"},
				"Ligue 1":                {"Paris Saint-Germain"},
				"UEFA Champions League":  {"Real Madrid", "Man City", "PSG", "Bayern Munich", "Liverpool", "Inter Milan", "Barcelona"},
			},
		},
		Scheduler: SchedulerConfig{
			DailyIntentHourUTC:        10,
			PromotionHourUTC:          9,
			SuggestionIntervalMinutes: 60,
			ScanIntervalSeconds:       30,
			SettlementIntervalMinutes: 120,
			LearningIntervalMinutes:   60,
		},
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
	}
}

// Validate checks the configuration for internal consistency. It returns a
// single error aggregating every problem found.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Mode) {
	case "serve", "worker", "full", "migrate":
	default:
		errs = append(errs, fmt.Sprintf("mode: unsupported %q (serve|worker|full|migrate)", c.Mode))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: invalid %d", c.Server.Port))
	}

	if c.Betting.BankrollPercent <= 0 || c.Betting.BankrollPercent > 100 {
		errs = append(errs, fmt.Sprintf("betting.bankroll_percent: must be in (0,100], got %v", c.Betting.BankrollPercent))
	}
	if c.Betting.MaxBankroll <= 0 {
		errs = append(errs, "betting.max_bankroll: must be positive")
	}
	if c.Betting.RiskAppetite < 1.0 || c.Betting.RiskAppetite > 5.0 {
		errs = append(errs, fmt.Sprintf("betting.risk_appetite: must be in [1.0,5.0], got %v", c.Betting.RiskAppetite))
	}
	if c.Betting.MinStake < 0 {
		errs = append(errs, "betting.min_stake: must not be negative")
	}
	if c.Betting.MinLiquidity < 0 {
		errs = append(errs, "betting.min_liquidity: must not be negative")
	}
	if len(c.Betting.Competitions) == 0 {
		errs = append(errs, "betting.competitions: at least one competition required")
	}

	if c.Scheduler.DailyIntentHourUTC < 0 || c.Scheduler.DailyIntentHourUTC > 23 {
		errs = append(errs, "scheduler.daily_intent_hour_utc: must be in [0,23]")
	}
	if c.Scheduler.PromotionHourUTC < 0 || c.Scheduler.PromotionHourUTC > 23 {
		errs = append(errs, "scheduler.promotion_hour_utc: must be in [0,23]")
	}
	if c.Scheduler.ScanIntervalSeconds <= 0 {
		errs = append(errs, "scheduler.scan_interval_seconds: must be positive")
	}

	if c.Advisor.BaseURL == "" {
		errs = append(errs, "advisor.base_url: required")
	}
	if c.Betfair.APIHost == "" {
		errs = append(errs, "betfair.api_host: required")
	}
	if !c.Betfair.Simulate && (c.Betfair.AppKey == "" || c.Betfair.Username == "") {
		errs = append(errs, "betfair: app_key and username required unless simulate is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
