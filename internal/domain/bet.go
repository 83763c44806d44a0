package domain

import (
	"math"
	"time"
)

// BetStatus tracks the bet record lifecycle. Transitions are monotonic along
// the state machine; failed is reachable from any non-terminal state and is
// terminal.
type BetStatus string

const (
	BetStatusIntent     BetStatus = "intent"
	BetStatusAnalyzed   BetStatus = "analyzed"
	BetStatusReady      BetStatus = "ready"
	BetStatusProcessing BetStatus = "processing"
	BetStatusPlaced     BetStatus = "placed"
	BetStatusPartial    BetStatus = "partial"
	BetStatusFinished   BetStatus = "finished"
	BetStatusFailed     BetStatus = "failed"
)

// Terminal reports whether no further transition may leave this status.
func (s BetStatus) Terminal() bool {
	return s == BetStatusFinished || s == BetStatusFailed
}

// BetSource tags where a record came from, which decides which downstream
// triggers apply to it (e.g. only hourly_automated finished bets feed the
// learning loop).
type BetSource string

const (
	SourceAutomatedDaily  BetSource = "automated_daily"
	SourceHourlyAutomated BetSource = "hourly_automated"
	SourceManual          BetSource = "manual"
	SourcePromoted        BetSource = "suggestion-promoted"
)

// Stream returns the idempotency domain the source belongs to. The daily and
// hourly automation lines are independent: each may hold one active record
// per target date. Manual slips are not subject to the idempotency check.
func (s BetSource) Stream() []BetSource {
	switch s {
	case SourceHourlyAutomated, SourcePromoted:
		return []BetSource{SourceHourlyAutomated, SourcePromoted}
	default:
		return []BetSource{s}
	}
}

// BetSide is the exchange side of an order.
type BetSide string

const (
	SideBack BetSide = "BACK"
	SideLay  BetSide = "LAY"
)

// Preferences captures the risk configuration a record was created with.
type Preferences struct {
	RiskAppetite      float64  `json:"risk_appetite"`
	Budget            float64  `json:"budget"`
	Competitions      []string `json:"competitions,omitempty"`
	ReliableTeamsOnly bool     `json:"reliable_teams_only"`
	Type              string   `json:"type,omitempty"`
}

// BalanceTrack follows the wallet across the record's life. Starting is
// snapshotted at creation; Predicted is starting plus the expected net profit
// once analyzed; Ending is starting plus realized profit once settled. Each
// field stays nil until computed.
type BalanceTrack struct {
	Starting  *float64 `json:"starting"`
	Predicted *float64 `json:"predicted"`
	Ending    *float64 `json:"ending"`
}

// ItemStatusPending marks a selection item that has not been submitted to the
// exchange yet. After placement the item carries the exchange's per-order
// status ("SUCCESS" or an exchange error code).
const ItemStatusPending = "pending_placement"

// SelectionItem is one picked wager inside a record.
type SelectionItem struct {
	Event       EventRef `json:"event"`
	Market      string   `json:"market"`
	MarketID    string   `json:"market_id"`
	SelectionID int64    `json:"selection_id"`
	Side        BetSide  `json:"side"`
	Odds        float64  `json:"odds"`
	Stake       float64  `json:"stake"`
	Reasoning   string   `json:"reasoning,omitempty"`

	// Placement outcome, set after the exchange call.
	Status    string     `json:"status,omitempty"`
	BetID     string     `json:"bet_id,omitempty"`
	ErrorCode string     `json:"error_code,omitempty"`
	PlacedAt  *time.Time `json:"placed_at,omitempty"`
}

// PotentialProfit is the net win if this selection settles in our favour.
func (i SelectionItem) PotentialProfit() float64 {
	return i.Stake * (i.Odds - 1)
}

// Wager aggregates the selection items of a record.
type Wager struct {
	Odds             float64 `json:"odds"`
	Stake            float64 `json:"stake"`
	PotentialReturns float64 `json:"potential_returns"`
}

// Selections bundles the picked items with their aggregate wager.
type Selections struct {
	Items []SelectionItem `json:"items"`
	Wager Wager           `json:"wager"`
}

// Placement call status values reported by the exchange.
const (
	PlacementSuccess        = "SUCCESS"
	PlacementPartialFailure = "PARTIAL_FAILURE"
	PlacementFailure        = "FAILURE"
)

// PlacementResult is the exchange's per-order placement outcome.
type PlacementResult struct {
	MarketID            string  `json:"market_id"`
	SelectionID         int64   `json:"selection_id"`
	Status              string  `json:"status"`
	BetID               string  `json:"bet_id,omitempty"`
	AveragePriceMatched float64 `json:"average_price_matched,omitempty"`
	SizeMatched         float64 `json:"size_matched,omitempty"`
	ErrorCode           string  `json:"error_code,omitempty"`
}

// PlacementReport is the full exchange response for one record's placement.
type PlacementReport struct {
	Status string            `json:"status"`
	Bets   []PlacementResult `json:"bets"`
}

// BetIDs returns the exchange-assigned identifiers of every successfully
// placed order, used later to correlate settlements.
func (r PlacementReport) BetIDs() []string {
	ids := make([]string, 0, len(r.Bets))
	for _, b := range r.Bets {
		if b.BetID != "" {
			ids = append(ids, b.BetID)
		}
	}
	return ids
}

// Settlement is one cleared order as reported by the exchange. Settlements
// are merged into a record keyed by (market_id, selection_id); re-polling
// overwrites the entry for the same key rather than appending.
type Settlement struct {
	BetID          string     `json:"bet_id"`
	MarketID       string     `json:"market_id"`
	SelectionID    int64      `json:"selection_id"`
	Status         string     `json:"status"` // WON | LOST
	Profit         float64    `json:"profit"`
	Side           BetSide    `json:"side,omitempty"`
	PriceRequested float64    `json:"price_requested,omitempty"`
	PriceMatched   float64    `json:"price_matched,omitempty"`
	SizeSettled    float64    `json:"size_settled,omitempty"`
	SettledAt      *time.Time `json:"settled_date,omitempty"`
}

// SchemaVersionCurrent is written on every new record. Documents below this
// version are picked up by the migration pass.
const SchemaVersionCurrent = 2

// BetRecord is the central entity: one persisted document per betting intent.
// Suggestions share the exact same shape but live in their own table.
type BetRecord struct {
	ID         string    `json:"id"`
	TargetDate string    `json:"target_date"` // YYYY-MM-DD, idempotency key
	Status     BetStatus `json:"status"`
	Source     BetSource `json:"source"`
	Error      string    `json:"error,omitempty"`

	Preferences Preferences  `json:"preferences"`
	Balance     BalanceTrack `json:"balance"`

	// Events considered for this record; immutable once created.
	Events []Event `json:"events"`

	Selections  *Selections      `json:"selections,omitempty"`
	Placement   *PlacementReport `json:"placement_results,omitempty"`
	Settlements []Settlement     `json:"settlement_results,omitempty"`
	AIReasoning string           `json:"ai_reasoning,omitempty"`

	CreatedAt     time.Time  `json:"created_at"`
	AnalyzedAt    *time.Time `json:"analyzed_at,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	PlacedAt      *time.Time `json:"placed_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	LastSettledAt *time.Time `json:"last_settled_at,omitempty"`
	LearnedAt     *time.Time `json:"learned_at,omitempty"`

	SchemaVersion int `json:"schema_version"`
}

// ExpectedSettlements is how many cleared orders the exchange should
// eventually report for this record: one per successfully placed order.
// Rejected orders never settle, so a partial record finishes once its
// surviving orders clear.
func (b BetRecord) ExpectedSettlements() int {
	if b.Placement == nil {
		return 0
	}
	return len(b.Placement.BetIDs())
}

// StartingBalance returns the snapshotted starting balance, or zero when the
// snapshot was never taken.
func (b BetRecord) StartingBalance() float64 {
	if b.Balance.Starting == nil {
		return 0
	}
	return *b.Balance.Starting
}

// RecomputeWager derives the aggregate wager from a list of items. Totals are
// always recomputed from the items rather than trusted from a caller, so an
// inconsistent client payload cannot approve a record with bogus numbers.
// Effective odds are returns/stake; zero stake yields zero odds.
func RecomputeWager(items []SelectionItem) Wager {
	var stake, returns float64
	for _, it := range items {
		stake += it.Stake
		returns += it.Stake * it.Odds
	}
	odds := 0.0
	if stake > 0 {
		odds = returns / stake
	}
	return Wager{
		Odds:             Round2(odds),
		Stake:            Round2(stake),
		PotentialReturns: Round2(returns),
	}
}

// MergeSettlements overlays incoming settlements onto existing ones, keyed by
// (market_id, selection_id). The newer entry wins for a repeated key, which
// makes re-polling the exchange idempotent. Existing entries keep their
// relative order; new keys append in input order.
func MergeSettlements(existing, incoming []Settlement) []Settlement {
	type key struct {
		marketID    string
		selectionID int64
	}
	idx := make(map[key]int, len(existing))
	merged := make([]Settlement, len(existing))
	copy(merged, existing)
	for i, s := range merged {
		idx[key{s.MarketID, s.SelectionID}] = i
	}
	for _, s := range incoming {
		k := key{s.MarketID, s.SelectionID}
		if i, ok := idx[k]; ok {
			merged[i] = s
			continue
		}
		idx[k] = len(merged)
		merged = append(merged, s)
	}
	return merged
}

// TotalProfit sums realized profit across settlements.
func TotalProfit(settlements []Settlement) float64 {
	var total float64
	for _, s := range settlements {
		total += s.Profit
	}
	return total
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
