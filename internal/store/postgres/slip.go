package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// slipCols lists the columns selected when reading bet slips and suggestions.
// target_date is stored as DATE and rendered back to YYYY-MM-DD text.
const slipCols = `id, target_date::text, status, source, error,
	preferences, events, selections, placement, settlements, ai_reasoning,
	balance_starting, balance_predicted, balance_ending,
	created_at, analyzed_at, approved_at, placed_at, finished_at,
	last_settled_at, learned_at, schema_version`

// slipTable holds the operations shared between the bet_slips and suggestions
// tables, which carry the exact same document shape.
type slipTable struct {
	pool  *pgxpool.Pool
	table string
}

func scanSlip(scanner interface{ Scan(dest ...any) error }) (domain.BetRecord, error) {
	var rec domain.BetRecord
	var status, source string

	err := scanner.Scan(
		&rec.ID, &rec.TargetDate, &status, &source, &rec.Error,
		&rec.Preferences, &rec.Events, &rec.Selections, &rec.Placement,
		&rec.Settlements, &rec.AIReasoning,
		&rec.Balance.Starting, &rec.Balance.Predicted, &rec.Balance.Ending,
		&rec.CreatedAt, &rec.AnalyzedAt, &rec.ApprovedAt, &rec.PlacedAt,
		&rec.FinishedAt, &rec.LastSettledAt, &rec.LearnedAt, &rec.SchemaVersion,
	)
	if err != nil {
		return domain.BetRecord{}, err
	}

	rec.Status = domain.BetStatus(status)
	rec.Source = domain.BetSource(source)
	return rec, nil
}

func scanSlipRows(rows pgx.Rows) ([]domain.BetRecord, error) {
	var recs []domain.BetRecord
	for rows.Next() {
		rec, err := scanSlip(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// create inserts a new record, assigning its id when absent. created_at comes
// from the database clock so concurrent writers cannot reorder history.
func (t slipTable) create(ctx context.Context, rec domain.BetRecord) (domain.BetRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Settlements == nil {
		rec.Settlements = []domain.Settlement{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, target_date, status, source, error,
			preferences, events, selections, placement, settlements,
			ai_reasoning, balance_starting, balance_predicted, balance_ending,
			schema_version
		) VALUES (
			$1, $2::date, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15
		) RETURNING created_at`, t.table)

	err := t.pool.QueryRow(ctx, query,
		rec.ID, rec.TargetDate, string(rec.Status), string(rec.Source), rec.Error,
		rec.Preferences, rec.Events, rec.Selections, rec.Placement, rec.Settlements,
		rec.AIReasoning, rec.Balance.Starting, rec.Balance.Predicted, rec.Balance.Ending,
		rec.SchemaVersion,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return domain.BetRecord{}, fmt.Errorf("postgres: create %s %s: %w", t.table, rec.ID, err)
	}
	return rec, nil
}

func (t slipTable) getByID(ctx context.Context, id string) (domain.BetRecord, error) {
	row := t.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, slipCols, t.table), id)

	rec, err := scanSlip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BetRecord{}, domain.ErrNotFound
		}
		return domain.BetRecord{}, fmt.Errorf("postgres: get %s %s: %w", t.table, id, err)
	}
	return rec, nil
}

// recordAnalysis performs the intent→analyzed transition. A record in any
// other state is left untouched.
func (t slipTable) recordAnalysis(ctx context.Context, id string, u domain.AnalysisUpdate) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2, selections = $3, balance_predicted = $4,
		    ai_reasoning = $5, analyzed_at = NOW()
		WHERE id = $1 AND status = $6`, t.table)

	tag, err := t.pool.Exec(ctx, query,
		id, string(domain.BetStatusAnalyzed), u.Selections, u.PredictedBalance,
		u.AIReasoning, string(domain.BetStatusIntent),
	)
	if err != nil {
		return fmt.Errorf("postgres: record analysis %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return t.transitionConflict(ctx, id)
	}
	return nil
}

// markFailed is the terminal error transition, valid from any non-terminal
// state.
func (t slipTable) markFailed(ctx context.Context, id, msg string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = $2, error = $3
		WHERE id = $1 AND status NOT IN ($4, $5)`, t.table)

	tag, err := t.pool.Exec(ctx, query,
		id, string(domain.BetStatusFailed), msg,
		string(domain.BetStatusFinished), string(domain.BetStatusFailed),
	)
	if err != nil {
		return fmt.Errorf("postgres: mark failed %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return t.transitionConflict(ctx, id)
	}
	return nil
}

// transitionConflict distinguishes a missing record from one in the wrong
// state after a guarded UPDATE matched no rows.
func (t slipTable) transitionConflict(ctx context.Context, id string) error {
	var exists bool
	err := t.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, t.table), id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check %s %s: %w", t.table, id, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidBet
}
