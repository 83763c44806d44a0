package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// SettingsStore implements domain.SettingsStore using PostgreSQL.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore creates a new SettingsStore backed by the given connection
// pool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Get returns the persisted automated-betting settings. domain.ErrNotFound
// signals that no settings row exists yet and config defaults apply.
func (s *SettingsStore) Get(ctx context.Context) (domain.Settings, error) {
	var st domain.Settings
	err := s.pool.QueryRow(ctx, `
		SELECT bankroll_percent, max_bankroll, risk_appetite,
		       use_reliable_teams, min_stake, min_profit
		FROM settings WHERE id = 1`,
	).Scan(&st.BankrollPercent, &st.MaxBankroll, &st.RiskAppetite,
		&st.UseReliableTeams, &st.MinStake, &st.MinProfit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Settings{}, domain.ErrNotFound
		}
		return domain.Settings{}, fmt.Errorf("postgres: get settings: %w", err)
	}
	return st, nil
}

// Put overwrites the settings row.
func (s *SettingsStore) Put(ctx context.Context, st domain.Settings) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (
			id, bankroll_percent, max_bankroll, risk_appetite,
			use_reliable_teams, min_stake, min_profit, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE
		SET bankroll_percent = EXCLUDED.bankroll_percent,
		    max_bankroll = EXCLUDED.max_bankroll,
		    risk_appetite = EXCLUDED.risk_appetite,
		    use_reliable_teams = EXCLUDED.use_reliable_teams,
		    min_stake = EXCLUDED.min_stake,
		    min_profit = EXCLUDED.min_profit,
		    updated_at = NOW()`,
		st.BankrollPercent, st.MaxBankroll, st.RiskAppetite,
		st.UseReliableTeams, st.MinStake, st.MinProfit)
	if err != nil {
		return fmt.Errorf("postgres: put settings: %w", err)
	}
	return nil
}
