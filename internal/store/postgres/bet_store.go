package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	slipTable
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{slipTable{pool: pool, table: "bet_slips"}}
}

// Create persists a new record, assigning its id and created_at.
func (s *BetStore) Create(ctx context.Context, rec domain.BetRecord) (domain.BetRecord, error) {
	return s.create(ctx, rec)
}

// GetByID retrieves a single record by id.
func (s *BetStore) GetByID(ctx context.Context, id string) (domain.BetRecord, error) {
	return s.getByID(ctx, id)
}

// FindActiveByDate returns non-failed records for the given target date whose
// source is one of the given sources.
func (s *BetStore) FindActiveByDate(ctx context.Context, targetDate string, sources []domain.BetSource) ([]domain.BetRecord, error) {
	srcs := make([]string, len(sources))
	for i, src := range sources {
		srcs[i] = string(src)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM bet_slips
		WHERE target_date = $1::date AND source = ANY($2) AND status <> $3
		ORDER BY created_at ASC`, slipCols),
		targetDate, srcs, string(domain.BetStatusFailed))
	if err != nil {
		return nil, fmt.Errorf("postgres: find active by date %s: %w", targetDate, err)
	}
	defer rows.Close()

	recs, err := scanSlipRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan active by date: %w", err)
	}
	return recs, nil
}

// ListByStatus returns up to limit records in the given status, oldest first.
func (s *BetStore) ListByStatus(ctx context.Context, status domain.BetStatus, limit int) ([]domain.BetRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM bet_slips
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`, slipCols),
		string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list by status %s: %w", status, err)
	}
	defer rows.Close()

	recs, err := scanSlipRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan by status: %w", err)
	}
	return recs, nil
}

// ListHistory returns a page of records, newest first, using (created_at, id)
// as the pagination cursor.
func (s *BetStore) ListHistory(ctx context.Context, f domain.HistoryFilter) (domain.HistoryPage, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + slipCols + ` FROM bet_slips WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(f.Status))
		argIdx++
	}
	if f.DateFrom != "" {
		query += fmt.Sprintf(" AND target_date >= $%d::date", argIdx)
		args = append(args, f.DateFrom)
		argIdx++
	}
	if f.DateTo != "" {
		query += fmt.Sprintf(" AND target_date <= $%d::date", argIdx)
		args = append(args, f.DateTo)
		argIdx++
	}
	if f.StartAfter != "" {
		query += fmt.Sprintf(
			" AND (created_at, id) < (SELECT created_at, id FROM bet_slips WHERE id = $%d)", argIdx)
		args = append(args, f.StartAfter)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.HistoryPage{}, fmt.Errorf("postgres: list history: %w", err)
	}
	defer rows.Close()

	recs, err := scanSlipRows(rows)
	if err != nil {
		return domain.HistoryPage{}, fmt.Errorf("postgres: scan history: %w", err)
	}

	page := domain.HistoryPage{Records: recs}
	if len(recs) == limit {
		page.NextCursor = recs[len(recs)-1].ID
	}
	return page, nil
}

// RecordAnalysis moves intent→analyzed and stores the analysis output.
func (s *BetStore) RecordAnalysis(ctx context.Context, id string, u domain.AnalysisUpdate) error {
	return s.recordAnalysis(ctx, id, u)
}

// Approve moves analyzed→ready, optionally replacing selections and the
// predicted balance, and stamps approved_at.
func (s *BetStore) Approve(ctx context.Context, id string, selections *domain.Selections, predicted *float64) error {
	query := `UPDATE bet_slips SET status = $2, approved_at = NOW()`
	args := []any{id, string(domain.BetStatusReady)}
	argIdx := 3

	if selections != nil {
		query += fmt.Sprintf(", selections = $%d", argIdx)
		args = append(args, selections)
		argIdx++
	}
	if predicted != nil {
		query += fmt.Sprintf(", balance_predicted = $%d", argIdx)
		args = append(args, *predicted)
		argIdx++
	}

	query += fmt.Sprintf(" WHERE id = $1 AND status = $%d", argIdx)
	args = append(args, string(domain.BetStatusAnalyzed))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: approve %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionConflict(ctx, id)
	}
	return nil
}

// ClaimForPlacement performs the atomic ready→processing transition. The row
// is locked, its status verified, and the claim written inside one
// transaction, so exactly one of any number of concurrent claimants wins.
func (s *BetStore) ClaimForPlacement(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin claim %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM bet_slips WHERE id = $1 FOR UPDATE`, id,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("postgres: lock for claim %s: %w", id, err)
	}
	if domain.BetStatus(status) != domain.BetStatusReady {
		return domain.ErrAlreadyClaimed
	}

	if _, err := tx.Exec(ctx,
		`UPDATE bet_slips SET status = $2 WHERE id = $1`,
		id, string(domain.BetStatusProcessing),
	); err != nil {
		return fmt.Errorf("postgres: claim %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit claim %s: %w", id, err)
	}
	return nil
}

// RecordPlacement stores the placement outcome from the processing state. The
// selection items are replaced with their annotated versions; the aggregate
// wager is left untouched.
func (s *BetStore) RecordPlacement(ctx context.Context, id string, status domain.BetStatus, report domain.PlacementReport, items []domain.SelectionItem) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bet_slips
		SET status = $2, placement = $3,
		    selections = jsonb_set(COALESCE(selections, '{}'::jsonb), '{items}', $4),
		    placed_at = NOW()
		WHERE id = $1 AND status = $5`,
		id, string(status), report, items, string(domain.BetStatusProcessing))
	if err != nil {
		return fmt.Errorf("postgres: record placement %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionConflict(ctx, id)
	}
	return nil
}

// RecordSettlements merges reconciliation output into the record. When the
// update is final the record moves to finished and finished_at is stamped.
func (s *BetStore) RecordSettlements(ctx context.Context, id string, u domain.SettlementUpdate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bet_slips
		SET settlements = $2, balance_ending = $3, last_settled_at = NOW(),
		    status = CASE WHEN $4 THEN $5 ELSE status END,
		    finished_at = CASE WHEN $4 THEN NOW() ELSE finished_at END
		WHERE id = $1 AND status IN ($6, $7)`,
		id, u.Settlements, u.EndingBalance, u.Finished,
		string(domain.BetStatusFinished),
		string(domain.BetStatusPlaced), string(domain.BetStatusPartial))
	if err != nil {
		return fmt.Errorf("postgres: record settlements %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionConflict(ctx, id)
	}
	return nil
}

// MarkFailed is the terminal error transition, valid from any non-terminal
// state.
func (s *BetStore) MarkFailed(ctx context.Context, id string, msg string) error {
	return s.markFailed(ctx, id, msg)
}

// MarkLearned stamps learned_at after the learning loop consumed the record.
func (s *BetStore) MarkLearned(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bet_slips SET learned_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: mark learned %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListFinishedUnlearned returns finished records from the given source that
// the learning loop has not consumed yet, oldest first.
func (s *BetStore) ListFinishedUnlearned(ctx context.Context, source domain.BetSource, limit int) ([]domain.BetRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM bet_slips
		WHERE status = $1 AND source = $2 AND learned_at IS NULL
		ORDER BY finished_at ASC
		LIMIT $3`, slipCols),
		string(domain.BetStatusFinished), string(source), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list finished unlearned: %w", err)
	}
	defer rows.Close()

	recs, err := scanSlipRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan finished unlearned: %w", err)
	}
	return recs, nil
}

// ListUnmigrated returns records below the given schema version, oldest first.
func (s *BetStore) ListUnmigrated(ctx context.Context, version int, limit int) ([]domain.BetRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM bet_slips
		WHERE schema_version < $1
		ORDER BY created_at ASC
		LIMIT $2`, slipCols),
		version, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unmigrated: %w", err)
	}
	defer rows.Close()

	recs, err := scanSlipRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan unmigrated: %w", err)
	}
	return recs, nil
}

// Replace overwrites the mutable document payload of a record. created_at is
// preserved; everything else comes from rec.
func (s *BetStore) Replace(ctx context.Context, rec domain.BetRecord) error {
	if rec.Settlements == nil {
		rec.Settlements = []domain.Settlement{}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE bet_slips
		SET target_date = $2::date, status = $3, source = $4, error = $5,
		    preferences = $6, events = $7, selections = $8, placement = $9,
		    settlements = $10, ai_reasoning = $11,
		    balance_starting = $12, balance_predicted = $13, balance_ending = $14,
		    analyzed_at = $15, approved_at = $16, placed_at = $17,
		    finished_at = $18, last_settled_at = $19, learned_at = $20,
		    schema_version = $21
		WHERE id = $1`,
		rec.ID, rec.TargetDate, string(rec.Status), string(rec.Source), rec.Error,
		rec.Preferences, rec.Events, rec.Selections, rec.Placement,
		rec.Settlements, rec.AIReasoning,
		rec.Balance.Starting, rec.Balance.Predicted, rec.Balance.Ending,
		rec.AnalyzedAt, rec.ApprovedAt, rec.PlacedAt,
		rec.FinishedAt, rec.LastSettledAt, rec.LearnedAt,
		rec.SchemaVersion)
	if err != nil {
		return fmt.Errorf("postgres: replace %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
