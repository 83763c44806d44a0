package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/platform/advisor"
)

func eventNamed(name, competition string) domain.Event {
	t := time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC)
	return domain.Event{
		Name:        name,
		Time:        &t,
		Competition: domain.Competition{Name: competition},
		Options: []domain.MarketOption{
			{Name: "Match Odds", MarketID: "1.100"},
		},
	}
}

func intentRecord(budget float64, events ...domain.Event) domain.BetRecord {
	starting := 200.0
	return domain.BetRecord{
		ID:         "bet-1",
		TargetDate: "2026-08-29",
		Status:     domain.BetStatusIntent,
		Source:     domain.SourceAutomatedDaily,
		Preferences: domain.Preferences{
			RiskAppetite: 1.5,
			Budget:       budget,
		},
		Balance: domain.BalanceTrack{Starting: &starting},
		Events:  events,
	}
}

func rec(event string, stake, odds float64) domain.Recommendation {
	return domain.Recommendation{
		Pick:        domain.RecommendationPick{EventName: event, MarketName: "Match Odds"},
		MarketID:    "1.100",
		SelectionID: 101,
		Stake:       stake,
		Odds:        odds,
		Reasoning:   "form",
	}
}

func TestAnalyzeScalesStakesToBudget(t *testing.T) {
	engine := &fakeRecommender{fn: func(in advisor.AnalysisInput) (domain.AgentResponse, error) {
		return domain.AgentResponse{
			Recommendations: []domain.Recommendation{
				rec("A v B", 40, 2.0),
				rec("C v D", 40, 2.0),
				rec("E v F", 40, 2.0),
			},
			OverallReasoning: "three even picks",
		}, nil
	}}
	svc := NewAnalysisService(engine, &memLearningsStore{}, testLogger())

	record := intentRecord(100,
		eventNamed("A v B", "English Premier League"),
		eventNamed("C v D", "English Premier League"),
		eventNamed("E v F", "English Premier League"),
	)
	update, err := svc.Analyze(context.Background(), record, domain.Settings{MinStake: 1})
	require.NoError(t, err)

	require.Len(t, update.Selections.Items, 3)
	for _, it := range update.Selections.Items {
		assert.Equal(t, 33.33, it.Stake)
		assert.Equal(t, domain.ItemStatusPending, it.Status)
		assert.Equal(t, domain.SideBack, it.Side)
	}
	assert.Equal(t, 99.99, update.Selections.Wager.Stake)
	assert.Equal(t, "three even picks", update.AIReasoning)
}

func TestAnalyzeKeepsStakesWithinBudget(t *testing.T) {
	engine := &fakeRecommender{fn: func(in advisor.AnalysisInput) (domain.AgentResponse, error) {
		return domain.AgentResponse{
			Recommendations: []domain.Recommendation{rec("A v B", 30, 1.8)},
		}, nil
	}}
	svc := NewAnalysisService(engine, &memLearningsStore{}, testLogger())

	update, err := svc.Analyze(context.Background(), intentRecord(100, eventNamed("A v B", "Serie A")), domain.Settings{})
	require.NoError(t, err)
	require.Len(t, update.Selections.Items, 1)
	assert.Equal(t, 30.0, update.Selections.Items[0].Stake)
}

func TestAnalyzePredictedBalance(t *testing.T) {
	engine := &fakeRecommender{fn: func(in advisor.AnalysisInput) (domain.AgentResponse, error) {
		return domain.AgentResponse{
			Recommendations: []domain.Recommendation{
				rec("A v B", 10, 2.5),
				rec("C v D", 20, 1.5),
			},
		}, nil
	}}
	svc := NewAnalysisService(engine, &memLearningsStore{}, testLogger())

	update, err := svc.Analyze(context.Background(),
		intentRecord(100, eventNamed("A v B", "Serie A"), eventNamed("C v D", "Serie A")),
		domain.Settings{})
	require.NoError(t, err)

	// starting 200 + 10*(2.5-1) + 20*(1.5-1) = 225
	require.NotNil(t, update.PredictedBalance)
	assert.Equal(t, 225.0, *update.PredictedBalance)
}

func TestAnalyzeUnmatchedPickGetsUnknownStub(t *testing.T) {
	engine := &fakeRecommender{fn: func(in advisor.AnalysisInput) (domain.AgentResponse, error) {
		return domain.AgentResponse{
			Recommendations: []domain.Recommendation{rec("X v Y", 5, 2.0)},
		}, nil
	}}
	svc := NewAnalysisService(engine, &memLearningsStore{}, testLogger())

	update, err := svc.Analyze(context.Background(), intentRecord(100, eventNamed("A v B", "Bundesliga")), domain.Settings{})
	require.NoError(t, err)
	require.Len(t, update.Selections.Items, 1)

	item := update.Selections.Items[0]
	assert.Equal(t, "X v Y", item.Event.Name)
	assert.Equal(t, "Unknown", item.Event.Competition.Name)
	assert.Nil(t, item.Event.Time)
}

func TestAnalyzeNoRecommendationsYieldsEmptySlip(t *testing.T) {
	engine := &fakeRecommender{fn: func(in advisor.AnalysisInput) (domain.AgentResponse, error) {
		return domain.AgentResponse{}, nil
	}}
	svc := NewAnalysisService(engine, &memLearningsStore{}, testLogger())

	update, err := svc.Analyze(context.Background(), intentRecord(100, eventNamed("A v B", "Ligue 1")), domain.Settings{})
	require.NoError(t, err)

	assert.Empty(t, update.Selections.Items)
	assert.Equal(t, 0.0, update.Selections.Wager.Stake)
	require.NotNil(t, update.PredictedBalance)
	assert.Equal(t, 200.0, *update.PredictedBalance)
	assert.NotEmpty(t, update.AIReasoning)
}

func TestAnalyzeDiscardsPicksBelowThresholds(t *testing.T) {
	engine := &fakeRecommender{fn: func(in advisor.AnalysisInput) (domain.AgentResponse, error) {
		return domain.AgentResponse{
			Recommendations: []domain.Recommendation{
				rec("A v B", 0.50, 1.01), // stake below minimum
				rec("C v D", 5, 1.001),   // profit 0.005 below minimum
				rec("E v F", 10, 2.0),
			},
		}, nil
	}}
	svc := NewAnalysisService(engine, &memLearningsStore{}, testLogger())

	record := intentRecord(100,
		eventNamed("A v B", "Serie A"),
		eventNamed("C v D", "Serie A"),
		eventNamed("E v F", "Serie A"),
	)
	update, err := svc.Analyze(context.Background(), record, domain.Settings{MinStake: 1, MinProfit: 0.02})
	require.NoError(t, err)

	require.Len(t, update.Selections.Items, 1)
	assert.Equal(t, "E v F", update.Selections.Items[0].Event.Name)
	assert.Equal(t, 10.0, update.Selections.Wager.Stake)
}

func TestAnalyzeAllPicksFilteredYieldsEmptySlip(t *testing.T) {
	engine := &fakeRecommender{fn: func(in advisor.AnalysisInput) (domain.AgentResponse, error) {
		return domain.AgentResponse{
			Recommendations: []domain.Recommendation{rec("A v B", 0.50, 2.0)},
		}, nil
	}}
	svc := NewAnalysisService(engine, &memLearningsStore{}, testLogger())

	update, err := svc.Analyze(context.Background(), intentRecord(100, eventNamed("A v B", "Serie A")), domain.Settings{MinStake: 1})
	require.NoError(t, err)
	assert.Empty(t, update.Selections.Items)
	assert.NotEmpty(t, update.AIReasoning)
}

func TestAnalyzeNoEventsIsError(t *testing.T) {
	engine := &fakeRecommender{fn: func(in advisor.AnalysisInput) (domain.AgentResponse, error) {
		t.Fatal("engine must not be called without events")
		return domain.AgentResponse{}, nil
	}}
	svc := NewAnalysisService(engine, &memLearningsStore{}, testLogger())

	_, err := svc.Analyze(context.Background(), intentRecord(100), domain.Settings{})
	require.Error(t, err)
}

func TestAnalyzeEngineFailureDegradesToEmptySlip(t *testing.T) {
	boom := errors.New("gateway timeout")
	engine := &fakeRecommender{fn: func(in advisor.AnalysisInput) (domain.AgentResponse, error) {
		return domain.AgentResponse{}, boom
	}}
	svc := NewAnalysisService(engine, &memLearningsStore{}, testLogger())

	update, err := svc.Analyze(context.Background(), intentRecord(100, eventNamed("A v B", "FA Cup")), domain.Settings{})
	require.NoError(t, err)

	assert.Empty(t, update.Selections.Items)
	assert.Contains(t, update.AIReasoning, "gateway timeout")
	require.NotNil(t, update.PredictedBalance)
	assert.Equal(t, 200.0, *update.PredictedBalance)
}

func TestAnalyzePassesLearningsToEngine(t *testing.T) {
	learnings := &memLearningsStore{}
	require.NoError(t, learnings.Put(context.Background(), "avoid derby matches"))

	var got advisor.AnalysisInput
	engine := &fakeRecommender{fn: func(in advisor.AnalysisInput) (domain.AgentResponse, error) {
		got = in
		return domain.AgentResponse{
			Recommendations: []domain.Recommendation{rec("A v B", 5, 2.0)},
		}, nil
	}}
	svc := NewAnalysisService(engine, learnings, testLogger())

	_, err := svc.Analyze(context.Background(), intentRecord(100, eventNamed("A v B", "Serie A")), domain.Settings{MinStake: 2, MinProfit: 0.5})
	require.NoError(t, err)

	assert.Equal(t, "avoid derby matches", got.Learnings)
	assert.Equal(t, 2.0, got.MinStake)
	assert.Equal(t, 0.5, got.MinProfit)
	assert.Equal(t, 100.0, got.TotalBudget)
}
