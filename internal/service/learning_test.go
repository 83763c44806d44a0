package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/betbot/internal/domain"
)

func finishedHourlyRecord(t *testing.T, store *memBetStore) domain.BetRecord {
	t.Helper()
	starting := 500.0
	rec, err := store.Create(context.Background(), domain.BetRecord{
		TargetDate: "2026-08-28",
		Status:     domain.BetStatusFinished,
		Source:     domain.SourceHourlyAutomated,
		Balance:    domain.BalanceTrack{Starting: &starting},
		Preferences: domain.Preferences{
			RiskAppetite: 2.0,
		},
		Selections: &domain.Selections{Items: []domain.SelectionItem{
			{
				Event:       domain.EventRef{Name: "A v B"},
				Market:      "Match Odds",
				MarketID:    "1.100",
				SelectionID: 101,
				Odds:        2.0,
				Stake:       10,
			},
		}},
		Settlements: []domain.Settlement{
			{BetID: "b1", MarketID: "1.100", SelectionID: 101, Status: "WON", Profit: 10},
		},
		SchemaVersion: domain.SchemaVersionCurrent,
	})
	require.NoError(t, err)
	return rec
}

func TestLearningRunRewritesMemoAndMarksRecords(t *testing.T) {
	store := newMemBetStore()
	learnings := &memLearningsStore{}
	require.NoError(t, learnings.Put(context.Background(), "old lessons"))

	rec := finishedHourlyRecord(t, store)
	engine := &fakeRewriter{out: "new lessons"}
	svc := NewLearningService(store, learnings, engine, testLogger())

	require.NoError(t, svc.Run(context.Background()))

	assert.Equal(t, "old lessons", engine.current)
	require.Len(t, engine.got, 1)
	assert.Contains(t, engine.got[0], "A v B")
	assert.Contains(t, engine.got[0], "WON")

	doc, err := learnings.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new lessons", doc.Content)

	got, err := store.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LearnedAt)
}

func TestLearningRunSkipsAlreadyLearned(t *testing.T) {
	store := newMemBetStore()
	learnings := &memLearningsStore{}

	rec := finishedHourlyRecord(t, store)
	require.NoError(t, store.MarkLearned(context.Background(), rec.ID))

	engine := &fakeRewriter{out: "unused"}
	svc := NewLearningService(store, learnings, engine, testLogger())
	require.NoError(t, svc.Run(context.Background()))

	assert.Nil(t, engine.got)
	_, err := learnings.Get(context.Background())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLearningRunIgnoresOtherSources(t *testing.T) {
	store := newMemBetStore()
	starting := 500.0
	_, err := store.Create(context.Background(), domain.BetRecord{
		TargetDate: "2026-08-28",
		Status:     domain.BetStatusFinished,
		Source:     domain.SourceAutomatedDaily,
		Balance:    domain.BalanceTrack{Starting: &starting},
	})
	require.NoError(t, err)

	engine := &fakeRewriter{out: "unused"}
	svc := NewLearningService(store, &memLearningsStore{}, engine, testLogger())
	require.NoError(t, svc.Run(context.Background()))
	assert.Nil(t, engine.got)
}

func TestLearningRunEngineFailureKeepsRecordsUnlearned(t *testing.T) {
	store := newMemBetStore()
	rec := finishedHourlyRecord(t, store)

	engine := &fakeRewriter{err: errors.New("gateway down")}
	svc := NewLearningService(store, &memLearningsStore{}, engine, testLogger())
	require.Error(t, svc.Run(context.Background()))

	got, err := store.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LearnedAt)
}

func TestSummarizeOutcomeIncludesTotals(t *testing.T) {
	store := newMemBetStore()
	rec := finishedHourlyRecord(t, store)

	line := summarizeOutcome(rec)
	assert.Contains(t, line, "2026-08-28")
	assert.Contains(t, line, "A v B / Match Odds")
	assert.Contains(t, line, "total +10.00")
}
