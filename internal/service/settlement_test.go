package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/platform/betfair"
)

type settlementFixture struct {
	store    *memBetStore
	cleared  *fakeCleared
	locks    *fakeLocks
	archiver *recordingArchiver
	notifier *fakeNotifier
	svc      *SettlementService
}

type recordingArchiver struct {
	archived []string
}

func (a *recordingArchiver) ArchiveRecord(ctx context.Context, rec domain.BetRecord) error {
	a.archived = append(a.archived, rec.ID)
	return nil
}

func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()
	logger := testLogger()
	store := newMemBetStore()
	cleared := &fakeCleared{}
	locks := &fakeLocks{}
	archiver := &recordingArchiver{}
	notifier := &fakeNotifier{}
	wallet := NewWalletService(&fakeFunds{balance: 500}, &memWalletStore{}, &memSettingsStore{}, testBetting(), logger)

	svc := NewSettlementService(store, cleared, wallet, locks, archiver, notifier, &fakeBroadcaster{}, time.Minute, logger)
	return &settlementFixture{
		store:    store,
		cleared:  cleared,
		locks:    locks,
		archiver: archiver,
		notifier: notifier,
		svc:      svc,
	}
}

// placedRecord seeds one placed record with two successfully placed orders.
func placedRecord(t *testing.T, store *memBetStore, status domain.BetStatus) domain.BetRecord {
	t.Helper()
	starting := 1000.0
	rec, err := store.Create(context.Background(), domain.BetRecord{
		TargetDate: "2026-08-29",
		Status:     status,
		Source:     domain.SourceAutomatedDaily,
		Balance:    domain.BalanceTrack{Starting: &starting},
		Selections: &domain.Selections{Items: []domain.SelectionItem{
			{MarketID: "1.100", SelectionID: 101, Odds: 2.0, Stake: 10, Status: domain.PlacementSuccess, BetID: "b1"},
			{MarketID: "1.200", SelectionID: 201, Odds: 1.5, Stake: 20, Status: domain.PlacementSuccess, BetID: "b2"},
		}},
		Placement: &domain.PlacementReport{
			Status: domain.PlacementSuccess,
			Bets: []domain.PlacementResult{
				{MarketID: "1.100", SelectionID: 101, Status: domain.PlacementSuccess, BetID: "b1"},
				{MarketID: "1.200", SelectionID: 201, Status: domain.PlacementSuccess, BetID: "b2"},
			},
		},
		SchemaVersion: domain.SchemaVersionCurrent,
	})
	require.NoError(t, err)
	return rec
}

func clearedOrder(betID, marketID string, selectionID int64, outcome string, profit float64) betfair.ClearedOrder {
	return betfair.ClearedOrder{
		BetID:       betID,
		MarketID:    marketID,
		SelectionID: selectionID,
		Side:        "BACK",
		BetOutcome:  outcome,
		Profit:      profit,
	}
}

func TestReconcileFinishesFullySettledRecord(t *testing.T) {
	fx := newSettlementFixture(t)
	ctx := context.Background()
	rec := placedRecord(t, fx.store, domain.BetStatusPlaced)

	fx.cleared.report = betfair.ClearedOrderSummaryReport{ClearedOrders: []betfair.ClearedOrder{
		clearedOrder("b1", "1.100", 101, "WON", 10),
		clearedOrder("b2", "1.200", 201, "LOST", -20),
	}}

	require.NoError(t, fx.svc.Reconcile(ctx))

	got, err := fx.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusFinished, got.Status)
	assert.Len(t, got.Settlements, 2)
	require.NotNil(t, got.Balance.Ending)
	assert.Equal(t, 990.0, *got.Balance.Ending)
	assert.NotNil(t, got.FinishedAt)

	assert.Equal(t, []string{rec.ID}, fx.archiver.archived)
	assert.Contains(t, fx.notifier.events, EventBetFinished)
}

func TestReconcilePartiallySettledStaysOpen(t *testing.T) {
	fx := newSettlementFixture(t)
	ctx := context.Background()
	rec := placedRecord(t, fx.store, domain.BetStatusPlaced)

	fx.cleared.report = betfair.ClearedOrderSummaryReport{ClearedOrders: []betfair.ClearedOrder{
		clearedOrder("b1", "1.100", 101, "WON", 10),
	}}

	require.NoError(t, fx.svc.Reconcile(ctx))

	got, err := fx.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusPlaced, got.Status)
	assert.Len(t, got.Settlements, 1)
	require.NotNil(t, got.Balance.Ending)
	assert.Equal(t, 1010.0, *got.Balance.Ending)
	assert.Nil(t, got.FinishedAt)
	assert.Empty(t, fx.archiver.archived)
}

func TestReconcileRepollIsIdempotent(t *testing.T) {
	fx := newSettlementFixture(t)
	ctx := context.Background()
	rec := placedRecord(t, fx.store, domain.BetStatusPlaced)

	fx.cleared.report = betfair.ClearedOrderSummaryReport{ClearedOrders: []betfair.ClearedOrder{
		clearedOrder("b1", "1.100", 101, "WON", 10),
	}}
	require.NoError(t, fx.svc.Reconcile(ctx))

	// Same order again plus the second one; the repeated key overwrites.
	fx.cleared.report = betfair.ClearedOrderSummaryReport{ClearedOrders: []betfair.ClearedOrder{
		clearedOrder("b1", "1.100", 101, "WON", 10),
		clearedOrder("b2", "1.200", 201, "WON", 30),
	}}
	require.NoError(t, fx.svc.Reconcile(ctx))

	got, err := fx.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusFinished, got.Status)
	assert.Len(t, got.Settlements, 2)
	assert.Equal(t, 1040.0, *got.Balance.Ending)
}

func TestReconcilePartialRecordFinishesOnSurvivingOrders(t *testing.T) {
	fx := newSettlementFixture(t)
	ctx := context.Background()

	// One of two orders was rejected at placement; only b1 will ever clear.
	starting := 1000.0
	rec, err := fx.store.Create(ctx, domain.BetRecord{
		TargetDate: "2026-08-29",
		Status:     domain.BetStatusPartial,
		Source:     domain.SourceAutomatedDaily,
		Balance:    domain.BalanceTrack{Starting: &starting},
		Placement: &domain.PlacementReport{
			Status: domain.PlacementPartialFailure,
			Bets: []domain.PlacementResult{
				{MarketID: "1.100", SelectionID: 101, Status: domain.PlacementSuccess, BetID: "b1"},
				{MarketID: "1.200", SelectionID: 201, Status: domain.PlacementFailure, ErrorCode: "INSUFFICIENT_FUNDS"},
			},
		},
		SchemaVersion: domain.SchemaVersionCurrent,
	})
	require.NoError(t, err)

	fx.cleared.report = betfair.ClearedOrderSummaryReport{ClearedOrders: []betfair.ClearedOrder{
		clearedOrder("b1", "1.100", 101, "WON", 15),
	}}
	require.NoError(t, fx.svc.Reconcile(ctx))

	got, err := fx.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusFinished, got.Status)
	assert.Equal(t, 1015.0, *got.Balance.Ending)
}

func TestReconcileNothingClearedIsNoop(t *testing.T) {
	fx := newSettlementFixture(t)
	ctx := context.Background()
	rec := placedRecord(t, fx.store, domain.BetStatusPlaced)

	require.NoError(t, fx.svc.Reconcile(ctx))

	got, err := fx.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusPlaced, got.Status)
	assert.Empty(t, got.Settlements)
}

func TestReconcileLockHeldIsSilentNoop(t *testing.T) {
	fx := newSettlementFixture(t)
	fx.locks.held = true
	placedRecord(t, fx.store, domain.BetStatusPlaced)

	fx.cleared.report = betfair.ClearedOrderSummaryReport{ClearedOrders: []betfair.ClearedOrder{
		clearedOrder("b1", "1.100", 101, "WON", 10),
	}}

	require.NoError(t, fx.svc.Reconcile(context.Background()))
	// Nothing was merged while the other holder ran.
	recs, err := fx.store.ListByStatus(context.Background(), domain.BetStatusPlaced, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].Settlements)
}

func TestMergeSettlementsOverwritesByKey(t *testing.T) {
	existing := []domain.Settlement{
		{MarketID: "1.100", SelectionID: 101, Status: "WON", Profit: 10},
	}
	incoming := []domain.Settlement{
		{MarketID: "1.100", SelectionID: 101, Status: "WON", Profit: 12},
		{MarketID: "1.200", SelectionID: 201, Status: "LOST", Profit: -5},
	}

	merged := domain.MergeSettlements(existing, incoming)
	require.Len(t, merged, 2)
	assert.Equal(t, 12.0, merged[0].Profit)
	assert.Equal(t, "1.200", merged[1].MarketID)
	assert.Equal(t, 7.0, domain.TotalProfit(merged))
}
