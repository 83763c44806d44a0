package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/betbot/internal/domain"
)

func legacyRecord(t *testing.T, store *memBetStore) domain.BetRecord {
	t.Helper()
	rec, err := store.Create(context.Background(), domain.BetRecord{
		TargetDate: "2025-01-15",
		Status:     domain.BetStatusFinished,
		Source:     domain.SourceAutomatedDaily,
		Selections: &domain.Selections{
			Items: []domain.SelectionItem{
				{MarketID: "1.100", SelectionID: 101, Odds: 2.0, Stake: 10},
				{MarketID: "1.200", SelectionID: 201, Odds: 1.5, Stake: 20},
			},
			// Version 1 documents trusted client-side totals.
			Wager: domain.Wager{Odds: 9.9, Stake: 999, PotentialReturns: 9999},
		},
		SchemaVersion: 1,
	})
	require.NoError(t, err)
	// Create normalizes nil settlements; reset to simulate a legacy document.
	rec.Settlements = nil
	require.NoError(t, store.Replace(context.Background(), rec))
	return rec
}

func TestMigrationUpgradesLegacyRecords(t *testing.T) {
	store := newMemBetStore()
	rec := legacyRecord(t, store)

	svc := NewMigrationService(store, testLogger())
	migrated, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)

	got, err := store.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SchemaVersionCurrent, got.SchemaVersion)

	// Totals recomputed from the items.
	assert.Equal(t, 30.0, got.Selections.Wager.Stake)
	assert.Equal(t, 50.0, got.Selections.Wager.PotentialReturns)

	for _, it := range got.Selections.Items {
		assert.Equal(t, domain.ItemStatusPending, it.Status)
		assert.Equal(t, domain.SideBack, it.Side)
	}
	assert.NotNil(t, got.Settlements)
}

func TestMigrationIsIdempotent(t *testing.T) {
	store := newMemBetStore()
	legacyRecord(t, store)

	svc := NewMigrationService(store, testLogger())
	migrated, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)

	migrated, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, migrated)
}

func TestMigrationSkipsCurrentRecords(t *testing.T) {
	store := newMemBetStore()
	_, err := store.Create(context.Background(), domain.BetRecord{
		TargetDate:    "2026-08-29",
		Status:        domain.BetStatusIntent,
		Source:        domain.SourceAutomatedDaily,
		SchemaVersion: domain.SchemaVersionCurrent,
	})
	require.NoError(t, err)

	svc := NewMigrationService(store, testLogger())
	migrated, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, migrated)
}

func TestUpgradeRecordPreservesPlacedItemStatus(t *testing.T) {
	rec := domain.BetRecord{
		Selections: &domain.Selections{Items: []domain.SelectionItem{
			{MarketID: "1.100", SelectionID: 101, Odds: 2.0, Stake: 10, Status: domain.PlacementSuccess, Side: domain.SideLay},
		}},
		SchemaVersion: 1,
	}

	upgraded := upgradeRecord(rec)
	assert.Equal(t, domain.PlacementSuccess, upgraded.Selections.Items[0].Status)
	assert.Equal(t, domain.SideLay, upgraded.Selections.Items[0].Side)
	assert.Equal(t, domain.SchemaVersionCurrent, upgraded.SchemaVersion)
}
