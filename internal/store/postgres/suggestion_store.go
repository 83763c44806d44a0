package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// SuggestionStore implements domain.SuggestionStore using PostgreSQL.
// Suggestions carry the bet slip shape but never advance past analyzed;
// promotion copies them into the bet_slips table instead.
type SuggestionStore struct {
	slipTable
}

// NewSuggestionStore creates a new SuggestionStore backed by the given
// connection pool.
func NewSuggestionStore(pool *pgxpool.Pool) *SuggestionStore {
	return &SuggestionStore{slipTable{pool: pool, table: "suggestions"}}
}

// Create persists a new suggestion, assigning its id and created_at.
func (s *SuggestionStore) Create(ctx context.Context, rec domain.BetRecord) (domain.BetRecord, error) {
	return s.create(ctx, rec)
}

// GetByID retrieves a single suggestion by id.
func (s *SuggestionStore) GetByID(ctx context.Context, id string) (domain.BetRecord, error) {
	return s.getByID(ctx, id)
}

// ListByDate returns all suggestions for the given target date, oldest first.
func (s *SuggestionStore) ListByDate(ctx context.Context, targetDate string) ([]domain.BetRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM suggestions
		WHERE target_date = $1::date
		ORDER BY created_at ASC`, slipCols),
		targetDate)
	if err != nil {
		return nil, fmt.Errorf("postgres: list suggestions by date %s: %w", targetDate, err)
	}
	defer rows.Close()

	recs, err := scanSlipRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan suggestions by date: %w", err)
	}
	return recs, nil
}

// RecordAnalysis moves intent→analyzed and stores the analysis output.
func (s *SuggestionStore) RecordAnalysis(ctx context.Context, id string, u domain.AnalysisUpdate) error {
	return s.recordAnalysis(ctx, id, u)
}

// MarkFailed is the terminal error transition.
func (s *SuggestionStore) MarkFailed(ctx context.Context, id string, msg string) error {
	return s.markFailed(ctx, id, msg)
}

// Delete removes a suggestion, typically after it was promoted.
func (s *SuggestionStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM suggestions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete suggestion %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
