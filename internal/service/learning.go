package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// learningBatchSize caps how many finished records feed one rewrite.
const learningBatchSize = 20

// LearningsRewriter is the slice of the AI gateway that the learning loop
// needs.
type LearningsRewriter interface {
	RewriteLearnings(ctx context.Context, current string, outcomes []string) (string, error)
}

// LearningService folds settled outcomes from the hourly line back into the
// lessons-learned memo the analysis prompts carry.
type LearningService struct {
	bets      domain.BetStore
	learnings domain.LearningsStore
	engine    LearningsRewriter
	logger    *slog.Logger
}

// NewLearningService creates a LearningService.
func NewLearningService(bets domain.BetStore, learnings domain.LearningsStore, engine LearningsRewriter, logger *slog.Logger) *LearningService {
	return &LearningService{
		bets:      bets,
		learnings: learnings,
		engine:    engine,
		logger:    logger.With("component", "learning"),
	}
}

// Run consumes a batch of finished, unlearned hourly records. The memo is
// rewritten wholesale first and the records marked learned after, so a crash
// in between re-learns a record rather than losing it.
func (s *LearningService) Run(ctx context.Context) error {
	recs, err := s.bets.ListFinishedUnlearned(ctx, domain.SourceHourlyAutomated, learningBatchSize)
	if err != nil {
		return fmt.Errorf("learning: list finished: %w", err)
	}
	if len(recs) == 0 {
		return nil
	}

	current := ""
	if doc, err := s.learnings.Get(ctx); err == nil {
		current = doc.Content
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("learning: load memo: %w", err)
	}

	outcomes := make([]string, 0, len(recs))
	for _, rec := range recs {
		outcomes = append(outcomes, summarizeOutcome(rec))
	}

	rewritten, err := s.engine.RewriteLearnings(ctx, current, outcomes)
	if err != nil {
		return fmt.Errorf("learning: rewrite memo: %w", err)
	}
	if err := s.learnings.Put(ctx, rewritten); err != nil {
		return fmt.Errorf("learning: persist memo: %w", err)
	}

	for _, rec := range recs {
		if err := s.bets.MarkLearned(ctx, rec.ID); err != nil {
			s.logger.Error("mark learned failed", "record", rec.ID, "error", err)
		}
	}

	s.logger.Info("learning pass complete", "records", len(recs))
	return nil
}

// summarizeOutcome renders one finished record as a compact line for the
// rewrite prompt.
func summarizeOutcome(rec domain.BetRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (risk %.1f): ", rec.TargetDate, rec.Preferences.RiskAppetite)

	outcomeByKey := make(map[string]domain.Settlement, len(rec.Settlements))
	for _, st := range rec.Settlements {
		outcomeByKey[fmt.Sprintf("%s/%d", st.MarketID, st.SelectionID)] = st
	}

	if rec.Selections != nil {
		parts := make([]string, 0, len(rec.Selections.Items))
		for _, it := range rec.Selections.Items {
			st, ok := outcomeByKey[fmt.Sprintf("%s/%d", it.MarketID, it.SelectionID)]
			if !ok {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s / %s @ %.2f stake %.2f -> %s (%+.2f)",
				it.Event.Name, it.Market, it.Odds, it.Stake, st.Status, st.Profit))
		}
		b.WriteString(strings.Join(parts, "; "))
	}

	fmt.Fprintf(&b, " | total %+.2f", domain.TotalProfit(rec.Settlements))
	return b.String()
}
