package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// LearningsStore implements domain.LearningsStore using PostgreSQL.
type LearningsStore struct {
	pool *pgxpool.Pool
}

// NewLearningsStore creates a new LearningsStore backed by the given
// connection pool.
func NewLearningsStore(pool *pgxpool.Pool) *LearningsStore {
	return &LearningsStore{pool: pool}
}

// Get returns the lessons-learned document.
func (s *LearningsStore) Get(ctx context.Context) (domain.LearningsRecord, error) {
	var rec domain.LearningsRecord
	err := s.pool.QueryRow(ctx,
		`SELECT content, updated_at FROM learnings WHERE id = 1`,
	).Scan(&rec.Content, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LearningsRecord{}, domain.ErrNotFound
		}
		return domain.LearningsRecord{}, fmt.Errorf("postgres: get learnings: %w", err)
	}
	return rec, nil
}

// Put replaces the lessons-learned content wholesale.
func (s *LearningsStore) Put(ctx context.Context, content string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO learnings (id, content, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content, updated_at = NOW()`,
		content)
	if err != nil {
		return fmt.Errorf("postgres: put learnings: %w", err)
	}
	return nil
}
