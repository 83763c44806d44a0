package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/platform/advisor"
	"github.com/alanyoungcy/betbot/internal/platform/betfair"
)

type suggestionFixture struct {
	suggestions *memSuggestionStore
	bets        *memBetStore
	locks       *fakeLocks
	svc         *SuggestionService
}

func newSuggestionFixture(t *testing.T) *suggestionFixture {
	t.Helper()
	betting := testBetting()
	logger := testLogger()

	kick := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	source := &fakeMarketSource{
		catalogues: []betfair.MarketCatalogue{
			{
				MarketID:    "1.100",
				MarketName:  "Match Odds",
				Event:       &betfair.MarketEvent{ID: "ev1", Name: "A v B", OpenDate: &kick},
				Competition: &betfair.Competition{ID: "10", Name: "English Premier League"},
				Runners:     []betfair.RunnerCatalog{{SelectionID: 101, RunnerName: "A"}},
			},
		},
		books: []betfair.MarketBook{
			{
				MarketID:     "1.100",
				TotalMatched: 1000,
				Runners: []betfair.RunnerBook{
					{SelectionID: 101, EX: &betfair.ExchangePrices{AvailableToBack: []betfair.PriceSize{{Price: 2.0, Size: 40}}}},
				},
			},
		},
	}
	discovery := NewDiscoveryService(source, nil, betting, logger)

	engine := &fakeRecommender{fn: func(in advisor.AnalysisInput) (domain.AgentResponse, error) {
		return domain.AgentResponse{
			Recommendations: []domain.Recommendation{
				{
					Pick:        domain.RecommendationPick{EventName: "A v B", MarketName: "Match Odds"},
					MarketID:    "1.100",
					SelectionID: 101,
					Stake:       10,
					Odds:        2.0,
				},
			},
		}, nil
	}}
	analysis := NewAnalysisService(engine, &memLearningsStore{}, logger)
	wallet := NewWalletService(&fakeFunds{balance: 1000}, &memWalletStore{}, &memSettingsStore{}, betting, logger)

	suggestions := newMemSuggestionStore()
	bets := newMemBetStore()
	locks := &fakeLocks{}

	svc := NewSuggestionService(suggestions, bets, discovery, analysis, wallet, locks, betting, time.Minute, logger)
	return &suggestionFixture{suggestions: suggestions, bets: bets, locks: locks, svc: svc}
}

func futureDate(t *testing.T) string {
	t.Helper()
	return time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
}

func TestCreateAndAnalyzeProducesAnalyzedSuggestion(t *testing.T) {
	fx := newSuggestionFixture(t)
	date := futureDate(t)

	sug, err := fx.svc.CreateAndAnalyze(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, domain.BetStatusAnalyzed, sug.Status)
	assert.Equal(t, domain.SourceHourlyAutomated, sug.Source)
	require.NotNil(t, sug.Selections)
	require.Len(t, sug.Selections.Items, 1)
	assert.NotNil(t, sug.AnalyzedAt)
}

func TestCreateAndAnalyzeConvergesOnOneLiveSuggestion(t *testing.T) {
	fx := newSuggestionFixture(t)
	ctx := context.Background()
	date := futureDate(t)

	first, err := fx.svc.CreateAndAnalyze(ctx, date)
	require.NoError(t, err)

	second, err := fx.svc.CreateAndAnalyze(ctx, date)
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateAndAnalyzeRetriesAfterFailure(t *testing.T) {
	fx := newSuggestionFixture(t)
	ctx := context.Background()
	date := futureDate(t)

	first, err := fx.svc.CreateAndAnalyze(ctx, date)
	require.NoError(t, err)
	require.NoError(t, fx.suggestions.MarkFailed(ctx, first.ID, "boom"))

	second, err := fx.svc.CreateAndAnalyze(ctx, date)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestPromoteCopiesSuggestionIntoLifecycle(t *testing.T) {
	fx := newSuggestionFixture(t)
	ctx := context.Background()
	date := futureDate(t)

	sug, err := fx.svc.CreateAndAnalyze(ctx, date)
	require.NoError(t, err)

	promoted, err := fx.svc.Promote(ctx, sug.ID)
	require.NoError(t, err)

	// The approval gate still applies: promoted records are not yet ready.
	assert.Equal(t, domain.BetStatusAnalyzed, promoted.Status)
	assert.Equal(t, domain.SourcePromoted, promoted.Source)
	assert.Equal(t, sug.TargetDate, promoted.TargetDate)
	require.NotNil(t, promoted.Selections)
	assert.Equal(t, sug.Selections.Wager, promoted.Selections.Wager)

	// The suggestion is removed after promotion.
	_, err = fx.suggestions.GetByID(ctx, sug.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPromoteRequiresAnalyzed(t *testing.T) {
	fx := newSuggestionFixture(t)
	ctx := context.Background()

	sug, err := fx.suggestions.Create(ctx, domain.BetRecord{
		TargetDate: futureDate(t),
		Status:     domain.BetStatusIntent,
		Source:     domain.SourceHourlyAutomated,
	})
	require.NoError(t, err)

	_, err = fx.svc.Promote(ctx, sug.ID)
	require.ErrorIs(t, err, domain.ErrInvalidBet)
}

func TestPromoteRespectsSharedStream(t *testing.T) {
	fx := newSuggestionFixture(t)
	ctx := context.Background()
	date := futureDate(t)

	// The hourly line already holds a live record for this date.
	existing, err := fx.bets.Create(ctx, domain.BetRecord{
		TargetDate: date,
		Status:     domain.BetStatusPlaced,
		Source:     domain.SourceHourlyAutomated,
	})
	require.NoError(t, err)

	sug, err := fx.svc.CreateAndAnalyze(ctx, date)
	require.NoError(t, err)

	promoted, err := fx.svc.Promote(ctx, sug.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Equal(t, existing.ID, promoted.ID)
}

func TestPromoteDuePromotesAnalyzedSuggestions(t *testing.T) {
	fx := newSuggestionFixture(t)
	ctx := context.Background()
	date := futureDate(t)

	sug, err := fx.svc.CreateAndAnalyze(ctx, date)
	require.NoError(t, err)

	require.NoError(t, fx.svc.PromoteDue(ctx, date))

	// Promoted with the hourly source so the learning loop sees the outcome,
	// and still awaiting approval.
	active, err := fx.bets.FindActiveByDate(ctx, date, domain.SourceHourlyAutomated.Stream())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.SourceHourlyAutomated, active[0].Source)
	assert.Equal(t, domain.BetStatusAnalyzed, active[0].Status)

	_, err = fx.suggestions.GetByID(ctx, sug.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPromoteDueDiscardsSupersededSuggestions(t *testing.T) {
	fx := newSuggestionFixture(t)
	ctx := context.Background()
	date := futureDate(t)

	// The hourly stream already holds a live record for the date.
	_, err := fx.bets.Create(ctx, domain.BetRecord{
		TargetDate: date,
		Status:     domain.BetStatusPlaced,
		Source:     domain.SourceHourlyAutomated,
	})
	require.NoError(t, err)

	sug, err := fx.suggestions.Create(ctx, domain.BetRecord{
		TargetDate: date,
		Status:     domain.BetStatusAnalyzed,
		Source:     domain.SourceHourlyAutomated,
	})
	require.NoError(t, err)

	require.NoError(t, fx.svc.PromoteDue(ctx, date))

	// The suggestion can never promote; it is discarded, not re-scanned
	// every pass.
	got, err := fx.suggestions.GetByID(ctx, sug.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusFailed, got.Status)
	assert.Contains(t, got.Error, "superseded")
}

func TestPromoteDueDiscardsStaleSuggestions(t *testing.T) {
	fx := newSuggestionFixture(t)
	ctx := context.Background()
	stale := "2020-01-01"

	sug, err := fx.suggestions.Create(ctx, domain.BetRecord{
		TargetDate: stale,
		Status:     domain.BetStatusAnalyzed,
		Source:     domain.SourceHourlyAutomated,
	})
	require.NoError(t, err)

	require.NoError(t, fx.svc.PromoteDue(ctx, stale))

	got, err := fx.suggestions.GetByID(ctx, sug.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusFailed, got.Status)
	assert.Contains(t, got.Error, "stale")

	active, err := fx.bets.FindActiveByDate(ctx, stale, domain.SourceHourlyAutomated.Stream())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestPromoteDueLockHeldIsSilentNoop(t *testing.T) {
	fx := newSuggestionFixture(t)
	ctx := context.Background()
	date := futureDate(t)

	_, err := fx.svc.CreateAndAnalyze(ctx, date)
	require.NoError(t, err)

	fx.locks.held = true
	require.NoError(t, fx.svc.PromoteDue(ctx, date))

	active, err := fx.bets.FindActiveByDate(ctx, date, domain.SourceHourlyAutomated.Stream())
	require.NoError(t, err)
	assert.Empty(t, active)
}
