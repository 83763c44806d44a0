package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/betbot/internal/config"
	"github.com/alanyoungcy/betbot/internal/domain"
)

// promotionLockKey serializes scheduled promotion passes.
const promotionLockKey = "promotion"

// SuggestionService runs the exploratory hourly line. Suggestions are
// analyzed slips that sit outside the real lifecycle until promoted into the
// bet store.
type SuggestionService struct {
	suggestions domain.SuggestionStore
	bets        domain.BetStore
	discovery   *DiscoveryService
	analysis    *AnalysisService
	wallet      *WalletService
	locks       domain.LockManager
	betting     config.BettingConfig
	lockTTL     time.Duration
	logger      *slog.Logger
}

// NewSuggestionService creates a SuggestionService.
func NewSuggestionService(
	suggestions domain.SuggestionStore,
	bets domain.BetStore,
	discovery *DiscoveryService,
	analysis *AnalysisService,
	wallet *WalletService,
	locks domain.LockManager,
	betting config.BettingConfig,
	lockTTL time.Duration,
	logger *slog.Logger,
) *SuggestionService {
	if lockTTL <= 0 {
		lockTTL = 4 * time.Minute
	}
	return &SuggestionService{
		suggestions: suggestions,
		bets:        bets,
		discovery:   discovery,
		analysis:    analysis,
		wallet:      wallet,
		locks:       locks,
		betting:     betting,
		lockTTL:     lockTTL,
		logger:      logger.With("component", "suggestions"),
	}
}

// ListByDate returns all suggestions for one target date.
func (s *SuggestionService) ListByDate(ctx context.Context, targetDate string) ([]domain.BetRecord, error) {
	return s.suggestions.ListByDate(ctx, targetDate)
}

// Get returns one suggestion by id.
func (s *SuggestionService) Get(ctx context.Context, id string) (domain.BetRecord, error) {
	return s.suggestions.GetByID(ctx, id)
}

// CreateAndAnalyze runs one hourly pass for the given date: it creates a
// suggestion when the date has no live one yet and analyzes it immediately.
// An existing non-failed suggestion makes the pass a no-op, so the hourly
// schedule converges on at most one live suggestion per date.
func (s *SuggestionService) CreateAndAnalyze(ctx context.Context, targetDate string) (domain.BetRecord, error) {
	existing, err := s.suggestions.ListByDate(ctx, targetDate)
	if err != nil {
		return domain.BetRecord{}, fmt.Errorf("suggestions: list for %s: %w", targetDate, err)
	}
	for _, sug := range existing {
		if sug.Status != domain.BetStatusFailed {
			return sug, domain.ErrAlreadyExists
		}
	}

	settings, err := s.wallet.EffectiveSettings(ctx)
	if err != nil {
		return domain.BetRecord{}, err
	}
	budget, starting, err := s.wallet.Budget(ctx)
	if err != nil {
		return domain.BetRecord{}, err
	}
	if budget < settings.MinStake {
		return domain.BetRecord{}, fmt.Errorf("suggestions: budget %.2f below minimum stake: %w", budget, domain.ErrNoBalance)
	}

	events, err := s.discovery.EventsForDate(ctx, targetDate, nil)
	if err != nil {
		return domain.BetRecord{}, err
	}
	if settings.UseReliableTeams {
		events = filterReliable(events, s.betting.AllReliableTeams())
	}
	if len(events) == 0 {
		return domain.BetRecord{}, fmt.Errorf("suggestions: %s: %w", targetDate, domain.ErrNoEvents)
	}

	rec := domain.BetRecord{
		TargetDate: targetDate,
		Status:     domain.BetStatusIntent,
		Source:     domain.SourceHourlyAutomated,
		Preferences: domain.Preferences{
			RiskAppetite:      settings.RiskAppetite,
			Budget:            budget,
			Competitions:      s.betting.Competitions,
			ReliableTeamsOnly: settings.UseReliableTeams,
			Type:              "suggestion",
		},
		Balance:       domain.BalanceTrack{Starting: &starting},
		Events:        events,
		SchemaVersion: domain.SchemaVersionCurrent,
	}

	created, err := s.suggestions.Create(ctx, rec)
	if err != nil {
		return domain.BetRecord{}, err
	}
	s.logger.Info("suggestion created", "suggestion", created.ID, "date", targetDate)

	update, err := s.analysis.Analyze(ctx, created, settings)
	if err != nil {
		s.logger.Error("suggestion analysis failed", "suggestion", created.ID, "error", err)
		if ferr := s.suggestions.MarkFailed(ctx, created.ID, err.Error()); ferr != nil {
			s.logger.Error("mark suggestion failed errored", "suggestion", created.ID, "error", ferr)
		}
		return domain.BetRecord{}, err
	}
	if err := s.suggestions.RecordAnalysis(ctx, created.ID, update); err != nil {
		return domain.BetRecord{}, err
	}

	return s.suggestions.GetByID(ctx, created.ID)
}

// PromoteDue runs the scheduled promotion pass for one date: every analyzed
// suggestion is promoted into the real lifecycle as an analyzed record
// awaiting approval, keeping its hourly source so the learning loop picks the
// outcome up. Stale suggestions, those whose date has passed, are discarded
// instead, as are suggestions whose stream already holds a live record.
func (s *SuggestionService) PromoteDue(ctx context.Context, targetDate string) error {
	unlock, err := s.locks.Acquire(ctx, promotionLockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			s.logger.Info("promotion pass already running")
			return nil
		}
		return fmt.Errorf("suggestions: acquire lock: %w", err)
	}
	defer unlock()

	sugs, err := s.suggestions.ListByDate(ctx, targetDate)
	if err != nil {
		return fmt.Errorf("suggestions: list for %s: %w", targetDate, err)
	}

	for _, sug := range sugs {
		if sug.Status != domain.BetStatusAnalyzed {
			continue
		}
		if isStale(sug, time.Now().UTC()) {
			s.logger.Info("discarding stale suggestion", "suggestion", sug.ID)
			if err := s.suggestions.MarkFailed(ctx, sug.ID, "stale: target date passed before promotion"); err != nil {
				s.logger.Error("discard failed", "suggestion", sug.ID, "error", err)
			}
			continue
		}
		if _, err := s.promote(ctx, sug, domain.SourceHourlyAutomated); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				// The stream already holds a live record; the suggestion
				// lost the race and will never promote, so discard it.
				s.logger.Info("discarding superseded suggestion", "suggestion", sug.ID)
				if ferr := s.suggestions.MarkFailed(ctx, sug.ID, "superseded: date already holds a live record"); ferr != nil {
					s.logger.Error("discard failed", "suggestion", sug.ID, "error", ferr)
				}
				continue
			}
			s.logger.Error("promotion failed", "suggestion", sug.ID, "error", err)
		}
	}
	return nil
}

// Promote promotes one suggestion on explicit user request. The promoted
// record carries the suggestion-promoted source, which shares the hourly
// line's idempotency stream.
func (s *SuggestionService) Promote(ctx context.Context, id string) (domain.BetRecord, error) {
	sug, err := s.suggestions.GetByID(ctx, id)
	if err != nil {
		return domain.BetRecord{}, err
	}
	if sug.Status != domain.BetStatusAnalyzed {
		return domain.BetRecord{}, fmt.Errorf("suggestions: %s is %s, want analyzed: %w", id, sug.Status, domain.ErrInvalidBet)
	}
	return s.promote(ctx, sug, domain.SourcePromoted)
}

// promote copies a suggestion into the bet store, keeping its analyzed status
// so the approval gate applies before placement, and removes the suggestion.
// The idempotency check runs against the target source's stream, so a
// promoted suggestion and the hourly line can never both hold a live record
// for the same date.
func (s *SuggestionService) promote(ctx context.Context, sug domain.BetRecord, source domain.BetSource) (domain.BetRecord, error) {
	active, err := s.bets.FindActiveByDate(ctx, sug.TargetDate, source.Stream())
	if err != nil {
		return domain.BetRecord{}, fmt.Errorf("suggestions: idempotency check: %w", err)
	}
	if len(active) > 0 {
		return active[0], domain.ErrAlreadyExists
	}

	rec := domain.BetRecord{
		TargetDate:    sug.TargetDate,
		Status:        domain.BetStatusAnalyzed,
		Source:        source,
		Preferences:   sug.Preferences,
		Balance:       sug.Balance,
		Events:        sug.Events,
		Selections:    sug.Selections,
		AIReasoning:   sug.AIReasoning,
		SchemaVersion: domain.SchemaVersionCurrent,
	}

	created, err := s.bets.Create(ctx, rec)
	if err != nil {
		return domain.BetRecord{}, err
	}

	if err := s.suggestions.Delete(ctx, sug.ID); err != nil {
		s.logger.Warn("promoted suggestion not deleted", "suggestion", sug.ID, "error", err)
	}

	s.logger.Info("suggestion promoted",
		"suggestion", sug.ID, "record", created.ID, "source", source)
	return created, nil
}

// isStale reports whether the suggestion's target date is already over in
// UTC.
func isStale(sug domain.BetRecord, now time.Time) bool {
	day, err := time.ParseInLocation("2006-01-02", sug.TargetDate, time.UTC)
	if err != nil {
		return true
	}
	return now.After(day.AddDate(0, 0, 1))
}
