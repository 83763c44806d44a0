package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// WalletStore implements domain.WalletStore using PostgreSQL. The wallet is a
// single row that every sync overwrites.
type WalletStore struct {
	pool *pgxpool.Pool
}

// NewWalletStore creates a new WalletStore backed by the given connection
// pool.
func NewWalletStore(pool *pgxpool.Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Get returns the current wallet snapshot.
func (s *WalletStore) Get(ctx context.Context) (domain.WalletRecord, error) {
	var w domain.WalletRecord
	err := s.pool.QueryRow(ctx,
		`SELECT amount, currency, exposure, updated_at FROM wallet WHERE id = 1`,
	).Scan(&w.Amount, &w.Currency, &w.Exposure, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WalletRecord{}, domain.ErrNotFound
		}
		return domain.WalletRecord{}, fmt.Errorf("postgres: get wallet: %w", err)
	}
	return w, nil
}

// Put overwrites the wallet snapshot.
func (s *WalletStore) Put(ctx context.Context, w domain.WalletRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wallet (id, amount, currency, exposure, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET amount = EXCLUDED.amount, currency = EXCLUDED.currency,
		    exposure = EXCLUDED.exposure, updated_at = NOW()`,
		w.Amount, w.Currency, w.Exposure)
	if err != nil {
		return fmt.Errorf("postgres: put wallet: %w", err)
	}
	return nil
}
