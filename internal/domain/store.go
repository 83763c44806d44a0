package domain

import (
	"context"
	"time"
)

// HistoryFilter selects a page of bet history. Pagination is cursor based:
// StartAfter is the id of the last document from the previous page.
type HistoryFilter struct {
	Status     BetStatus
	DateFrom   string // target_date lower bound, YYYY-MM-DD, inclusive
	DateTo     string // target_date upper bound, YYYY-MM-DD, inclusive
	Limit      int
	StartAfter string
}

// HistoryPage is one page of records plus the cursor for the next page.
// NextCursor is empty when the page was not full.
type HistoryPage struct {
	Records    []BetRecord `json:"records"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// AnalysisUpdate carries the fields written by the intent→analyzed
// transition.
type AnalysisUpdate struct {
	Selections       Selections
	PredictedBalance *float64
	AIReasoning      string
}

// SettlementUpdate carries the fields written by a reconciliation merge.
type SettlementUpdate struct {
	Settlements   []Settlement
	EndingBalance float64
	Finished      bool
}

// BetStore persists bet records. Implementations assign ids and set lifecycle
// timestamps from the database clock, never the caller's, so clock skew
// cannot reorder transitions.
type BetStore interface {
	// Create persists a new record, assigning its id and created_at.
	Create(ctx context.Context, rec BetRecord) (BetRecord, error)
	GetByID(ctx context.Context, id string) (BetRecord, error)

	// FindActiveByDate returns non-failed records for the given target date
	// whose source is one of the given sources. It backs the creation
	// idempotency check.
	FindActiveByDate(ctx context.Context, targetDate string, sources []BetSource) ([]BetRecord, error)

	// ListByStatus returns up to limit records in the given status, oldest
	// first.
	ListByStatus(ctx context.Context, status BetStatus, limit int) ([]BetRecord, error)

	// ListHistory returns a page of records, newest first.
	ListHistory(ctx context.Context, f HistoryFilter) (HistoryPage, error)

	// RecordAnalysis moves intent→analyzed and stores the analysis output.
	RecordAnalysis(ctx context.Context, id string, u AnalysisUpdate) error

	// Approve moves the record to ready, optionally replacing selections and
	// the predicted balance, and stamps approved_at.
	Approve(ctx context.Context, id string, selections *Selections, predicted *float64) error

	// ClaimForPlacement performs the atomic ready→processing transition
	// inside a transaction. It returns ErrAlreadyClaimed when the record is
	// no longer ready, which a losing concurrent trigger treats as a no-op.
	ClaimForPlacement(ctx context.Context, id string) error

	// RecordPlacement stores the placement outcome: the final status
	// (placed, partial or failed), the raw exchange report, and the items
	// annotated with their per-order results.
	RecordPlacement(ctx context.Context, id string, status BetStatus, report PlacementReport, items []SelectionItem) error

	// RecordSettlements merges reconciliation output into the record and,
	// when Finished, stamps finished_at and moves the record to finished.
	RecordSettlements(ctx context.Context, id string, u SettlementUpdate) error

	// MarkFailed is the terminal error transition, valid from any
	// non-terminal state.
	MarkFailed(ctx context.Context, id string, msg string) error

	// MarkLearned stamps learned_at after the learning loop consumed the
	// record.
	MarkLearned(ctx context.Context, id string) error

	// ListFinishedUnlearned returns finished records from the given source
	// that the learning loop has not consumed yet.
	ListFinishedUnlearned(ctx context.Context, source BetSource, limit int) ([]BetRecord, error)

	// ListUnmigrated returns records below the given schema version.
	ListUnmigrated(ctx context.Context, version int, limit int) ([]BetRecord, error)

	// Replace overwrites the mutable document payload of a record. Used by
	// the schema migration pass.
	Replace(ctx context.Context, rec BetRecord) error
}

// SuggestionStore persists suggestion records: exploratory picks that must be
// promoted into real bet records before placement.
type SuggestionStore interface {
	Create(ctx context.Context, rec BetRecord) (BetRecord, error)
	GetByID(ctx context.Context, id string) (BetRecord, error)
	ListByDate(ctx context.Context, targetDate string) ([]BetRecord, error)
	RecordAnalysis(ctx context.Context, id string, u AnalysisUpdate) error
	MarkFailed(ctx context.Context, id string, msg string) error
	Delete(ctx context.Context, id string) error
}

// WalletStore persists the singleton wallet snapshot.
type WalletStore interface {
	Get(ctx context.Context) (WalletRecord, error)
	// Put overwrites the snapshot; there is no merge.
	Put(ctx context.Context, w WalletRecord) error
}

// LearningsStore persists the singleton lessons-learned document.
type LearningsStore interface {
	Get(ctx context.Context) (LearningsRecord, error)
	Put(ctx context.Context, content string) error
}

// SettingsStore persists the automated-betting settings document.
type SettingsStore interface {
	Get(ctx context.Context) (Settings, error)
	Put(ctx context.Context, s Settings) error
}

// LockManager provides a best-effort distributed mutex, used to keep
// scheduled and manually-triggered reconciliation passes from overlapping.
type LockManager interface {
	// Acquire returns an unlock func on success, or ErrLockHeld when another
	// holder owns the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// DiscoveryCache caches grouped discovery results for a short TTL so bursts
// of odds requests don't hammer the exchange.
type DiscoveryCache interface {
	Get(ctx context.Context, key string) ([]Event, bool, error)
	Set(ctx context.Context, key string, events []Event) error
}

// BlobWriter stores finished-record snapshots in cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
