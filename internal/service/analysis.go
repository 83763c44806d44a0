package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/platform/advisor"
)

// unknownCompetition marks a pick whose event name did not match any
// discovered fixture. The pick is kept; a human reviewing the slip sees the
// stub instead of silently losing the recommendation.
const unknownCompetition = "Unknown"

// Recommender is the slice of the AI gateway that analysis needs.
type Recommender interface {
	Recommend(ctx context.Context, in advisor.AnalysisInput) (domain.AgentResponse, error)
}

// AnalysisService turns a record's event slate into priced selections via the
// recommendation engine.
type AnalysisService struct {
	engine    Recommender
	learnings domain.LearningsStore
	logger    *slog.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(engine Recommender, learnings domain.LearningsStore, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		engine:    engine,
		learnings: learnings,
		logger:    logger.With("component", "analysis"),
	}
}

// Analyze runs the recommendation engine over the record's events and builds
// the analysis update for the intent→analyzed transition. The engine's output
// is untrusted: picks below the stake or profit floors are discarded, and
// stakes are scaled down proportionally whenever their total exceeds the
// record's budget. An engine outage degrades to an empty slip rather than an
// error, so the record still reaches analyzed and the day can be retried by a
// human instead of dying in failed.
func (s *AnalysisService) Analyze(ctx context.Context, rec domain.BetRecord, settings domain.Settings) (domain.AnalysisUpdate, error) {
	if len(rec.Events) == 0 {
		return domain.AnalysisUpdate{}, fmt.Errorf("analysis: record %s has no events", rec.ID)
	}

	lessons := ""
	if s.learnings != nil {
		doc, err := s.learnings.Get(ctx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("learnings unavailable", "error", err)
		} else {
			lessons = doc.Content
		}
	}

	resp, err := s.engine.Recommend(ctx, advisor.AnalysisInput{
		Events:       rec.Events,
		TargetDate:   rec.TargetDate,
		TotalBudget:  rec.Preferences.Budget,
		RiskAppetite: rec.Preferences.RiskAppetite,
		MinStake:     settings.MinStake,
		MinProfit:    settings.MinProfit,
		Learnings:    lessons,
	})
	if err != nil {
		s.logger.Error("recommendation engine failed", "record", rec.ID, "error", err)
		return emptyUpdate(rec, fmt.Sprintf("Analysis unavailable: %v. No wagers selected.", err)), nil
	}

	recommendations := s.applyThresholds(resp.Recommendations, settings, rec.ID)
	recommendations = enforceBudget(recommendations, rec.Preferences.Budget)
	items := buildItems(recommendations, rec.Events)

	reasoning := resp.OverallReasoning
	if len(items) == 0 && strings.TrimSpace(reasoning) == "" {
		reasoning = "No qualifying wagers for this slate."
	}

	selections := domain.Selections{
		Items: items,
		Wager: domain.RecomputeWager(items),
	}

	predicted := rec.StartingBalance()
	for _, it := range items {
		predicted += it.PotentialProfit()
	}
	predicted = domain.Round2(predicted)

	s.logger.Info("analysis complete",
		"record", rec.ID, "picks", len(items),
		"stake", selections.Wager.Stake, "predicted_balance", predicted)

	return domain.AnalysisUpdate{
		Selections:       selections,
		PredictedBalance: &predicted,
		AIReasoning:      reasoning,
	}, nil
}

// emptyUpdate is the degraded analysis result: no selections, the failure
// recorded as reasoning, and a predicted balance equal to the starting one.
func emptyUpdate(rec domain.BetRecord, reasoning string) domain.AnalysisUpdate {
	predicted := domain.Round2(rec.StartingBalance())
	return domain.AnalysisUpdate{
		Selections: domain.Selections{
			Items: []domain.SelectionItem{},
			Wager: domain.RecomputeWager(nil),
		},
		PredictedBalance: &predicted,
		AIReasoning:      reasoning,
	}
}

// applyThresholds drops picks below the stake or profit floors. The prompt
// states the floors, but the engine is not trusted to honor them.
func (s *AnalysisService) applyThresholds(recs []domain.Recommendation, settings domain.Settings, recordID string) []domain.Recommendation {
	kept := make([]domain.Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.Stake < settings.MinStake {
			s.logger.Info("pick discarded",
				"record", recordID, "event", r.Pick.EventName,
				"reason", "stake below minimum", "stake", r.Stake)
			continue
		}
		if r.Stake*(r.Odds-1) < settings.MinProfit {
			s.logger.Info("pick discarded",
				"record", recordID, "event", r.Pick.EventName,
				"reason", "profit below minimum",
				"profit", domain.Round2(r.Stake*(r.Odds-1)))
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// enforceBudget scales every stake down by the same factor when the engine
// overspends. Picks are never dropped: the engine's relative sizing is its
// opinion, the total is ours.
func enforceBudget(recs []domain.Recommendation, budget float64) []domain.Recommendation {
	var total float64
	for _, r := range recs {
		total += r.Stake
	}
	if budget <= 0 || total <= budget {
		return recs
	}

	scale := budget / total
	scaled := make([]domain.Recommendation, len(recs))
	for i, r := range recs {
		r.Stake = domain.Round2(r.Stake * scale)
		scaled[i] = r
	}
	return scaled
}

// buildItems re-attaches each recommendation to its discovered event by name
// identity. A pick naming an event outside the slate gets a stub fixture in
// the Unknown competition rather than being discarded.
func buildItems(recs []domain.Recommendation, events []domain.Event) []domain.SelectionItem {
	byName := make(map[string]domain.Event, len(events))
	for _, e := range events {
		byName[e.Name] = e
	}

	items := make([]domain.SelectionItem, 0, len(recs))
	for _, r := range recs {
		ref := domain.EventRef{
			Name:        r.Pick.EventName,
			Competition: domain.Competition{Name: unknownCompetition},
		}
		if e, ok := byName[r.Pick.EventName]; ok {
			ref = e.Ref()
		}

		side := r.Side
		if side == "" {
			side = domain.SideBack
		}

		items = append(items, domain.SelectionItem{
			Event:       ref,
			Market:      r.Pick.MarketName,
			MarketID:    r.MarketID,
			SelectionID: r.SelectionID,
			Side:        side,
			Odds:        r.Odds,
			Stake:       r.Stake,
			Reasoning:   r.Reasoning,
			Status:      domain.ItemStatusPending,
		})
	}
	return items
}
