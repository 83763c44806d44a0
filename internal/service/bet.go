package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/betbot/internal/config"
	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/platform/betfair"
)

// Notification event types.
const (
	EventBetAnalyzed = "bet_analyzed"
	EventBetPlaced   = "bet_placed"
	EventBetFinished = "bet_finished"
	EventBetFailed   = "bet_failed"
)

// Notifier delivers operator alerts for lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Broadcaster pushes lifecycle events to connected dashboard clients.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// OrderPlacer is the slice of the exchange API that placement needs.
type OrderPlacer interface {
	PlaceOrders(ctx context.Context, marketID string, instructions []betfair.PlaceInstruction) (betfair.PlaceExecutionReport, error)
}

// BetService drives the bet slip lifecycle: creation, analysis, approval, and
// placement.
type BetService struct {
	bets      domain.BetStore
	discovery *DiscoveryService
	analysis  *AnalysisService
	wallet    *WalletService
	placer    OrderPlacer
	notifier  Notifier
	events    Broadcaster
	betting   config.BettingConfig
	logger    *slog.Logger
}

// NewBetService creates a BetService with all required dependencies.
func NewBetService(
	bets domain.BetStore,
	discovery *DiscoveryService,
	analysis *AnalysisService,
	wallet *WalletService,
	placer OrderPlacer,
	notifier Notifier,
	events Broadcaster,
	betting config.BettingConfig,
	logger *slog.Logger,
) *BetService {
	return &BetService{
		bets:      bets,
		discovery: discovery,
		analysis:  analysis,
		wallet:    wallet,
		placer:    placer,
		notifier:  notifier,
		events:    events,
		betting:   betting,
		logger:    logger.With("component", "bets"),
	}
}

// Get returns one record by id.
func (s *BetService) Get(ctx context.Context, id string) (domain.BetRecord, error) {
	return s.bets.GetByID(ctx, id)
}

// History returns a page of records.
func (s *BetService) History(ctx context.Context, f domain.HistoryFilter) (domain.HistoryPage, error) {
	return s.bets.ListHistory(ctx, f)
}

// CreateAutomated creates the intent record for one automation line and one
// target date. When the line already holds a non-failed record for that date
// the existing record is returned with domain.ErrAlreadyExists, so retried
// schedules never double-bet.
func (s *BetService) CreateAutomated(ctx context.Context, source domain.BetSource, targetDate string) (domain.BetRecord, error) {
	existing, err := s.bets.FindActiveByDate(ctx, targetDate, source.Stream())
	if err != nil {
		return domain.BetRecord{}, fmt.Errorf("bets: idempotency check %s: %w", targetDate, err)
	}
	if len(existing) > 0 {
		return existing[0], domain.ErrAlreadyExists
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
		return domain.BetRecord{}, fmt.Errorf("bets: budget %.2f below minimum stake: %w", budget, domain.ErrNoBalance)
	}

	events, err := s.discovery.EventsForDate(ctx, targetDate, nil)
	if err != nil {
		return domain.BetRecord{}, err
	}
	if settings.UseReliableTeams {
		events = filterReliable(events, s.betting.AllReliableTeams())
	}
	if len(events) == 0 {
		// An ordinary no-fixtures day, not a failure.
		return domain.BetRecord{}, fmt.Errorf("bets: %s: %w", targetDate, domain.ErrNoEvents)
	}

	rec := domain.BetRecord{
		TargetDate: targetDate,
		Status:     domain.BetStatusIntent,
		Source:     source,
		Preferences: domain.Preferences{
			RiskAppetite:      settings.RiskAppetite,
			Budget:            budget,
			Competitions:      s.betting.Competitions,
			ReliableTeamsOnly: settings.UseReliableTeams,
			Type:              "automated",
		},
		Balance:       domain.BalanceTrack{Starting: &starting},
		Events:        events,
		SchemaVersion: domain.SchemaVersionCurrent,
	}

	created, err := s.bets.Create(ctx, rec)
	if err != nil {
		return domain.BetRecord{}, err
	}

	s.logger.Info("intent created",
		"record", created.ID, "source", source, "date", targetDate,
		"events", len(events), "budget", budget)
	return created, nil
}

// CreateManual creates a user-built slip. Manual slips skip the automated
// idempotency check and analysis: the user already picked, so the record
// starts ready for placement.
func (s *BetService) CreateManual(ctx context.Context, targetDate string, items []domain.SelectionItem) (domain.BetRecord, error) {
	if len(items) == 0 {
		return domain.BetRecord{}, fmt.Errorf("bets: manual slip needs selections: %w", domain.ErrInvalidBet)
	}

	settings, err := s.wallet.EffectiveSettings(ctx)
	if err != nil {
		return domain.BetRecord{}, err
	}

	balance, err := s.wallet.Sync(ctx)
	if err != nil {
		return domain.BetRecord{}, err
	}
	starting := balance.Amount

	for i := range items {
		if items[i].Stake < settings.MinStake {
			return domain.BetRecord{}, fmt.Errorf("bets: stake %.2f below minimum: %w", items[i].Stake, domain.ErrInvalidBet)
		}
		if items[i].Side == "" {
			items[i].Side = domain.SideBack
		}
		items[i].Status = domain.ItemStatusPending
	}

	wager := domain.RecomputeWager(items)
	predicted := domain.Round2(starting + potentialProfit(items))

	rec := domain.BetRecord{
		TargetDate: targetDate,
		Status:     domain.BetStatusReady,
		Source:     domain.SourceManual,
		Preferences: domain.Preferences{
			RiskAppetite: settings.RiskAppetite,
			Budget:       wager.Stake,
			Type:         "manual",
		},
		Balance: domain.BalanceTrack{
			Starting:  &starting,
			Predicted: &predicted,
		},
		Selections:    &domain.Selections{Items: items, Wager: wager},
		SchemaVersion: domain.SchemaVersionCurrent,
	}

	created, err := s.bets.Create(ctx, rec)
	if err != nil {
		return domain.BetRecord{}, err
	}
	s.logger.Info("manual slip created", "record", created.ID, "stake", wager.Stake)
	return created, nil
}

// AnalyzeIntents runs the analysis transition for up to limit intent records.
// A failed analysis marks its record failed and moves on; one bad slate never
// blocks the scan.
func (s *BetService) AnalyzeIntents(ctx context.Context, limit int) error {
	recs, err := s.bets.ListByStatus(ctx, domain.BetStatusIntent, limit)
	if err != nil {
		return fmt.Errorf("bets: list intents: %w", err)
	}

	settings, err := s.wallet.EffectiveSettings(ctx)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		update, err := s.analysis.Analyze(ctx, rec, settings)
		if err != nil {
			s.logger.Error("analysis failed", "record", rec.ID, "error", err)
			s.fail(ctx, rec.ID, err.Error())
			continue
		}

		if err := s.bets.RecordAnalysis(ctx, rec.ID, update); err != nil {
			if errors.Is(err, domain.ErrInvalidBet) {
				// Another worker analyzed it first.
				continue
			}
			s.logger.Error("record analysis failed", "record", rec.ID, "error", err)
			continue
		}

		s.broadcast(EventBetAnalyzed, rec.ID)
		s.notify(ctx, EventBetAnalyzed, "Bet analyzed",
			fmt.Sprintf("Slip %s: %d picks, total stake %.2f",
				rec.ID, len(update.Selections.Items), update.Selections.Wager.Stake))
	}
	return nil
}

// Approve moves an analyzed record to ready. When the caller edited the
// selections, stakes are validated against the minimum and totals plus the
// predicted balance are recomputed server-side rather than trusted from the
// request.
func (s *BetService) Approve(ctx context.Context, id string, items []domain.SelectionItem) error {
	var selections *domain.Selections
	var predicted *float64

	if items != nil {
		rec, err := s.bets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		settings, err := s.wallet.EffectiveSettings(ctx)
		if err != nil {
			return err
		}
		for i := range items {
			if items[i].Stake < settings.MinStake {
				return fmt.Errorf("bets: stake %.2f below minimum: %w", items[i].Stake, domain.ErrInvalidBet)
			}
			items[i].Status = domain.ItemStatusPending
		}
		selections = &domain.Selections{
			Items: items,
			Wager: domain.RecomputeWager(items),
		}
		p := domain.Round2(rec.StartingBalance() + potentialProfit(items))
		predicted = &p
	}

	if err := s.bets.Approve(ctx, id, selections, predicted); err != nil {
		return err
	}
	s.logger.Info("slip approved", "record", id)
	return nil
}

// PlaceReady places every record currently in ready state.
func (s *BetService) PlaceReady(ctx context.Context, limit int) error {
	recs, err := s.bets.ListByStatus(ctx, domain.BetStatusReady, limit)
	if err != nil {
		return fmt.Errorf("bets: list ready: %w", err)
	}
	for _, rec := range recs {
		if err := s.Place(ctx, rec.ID); err != nil {
			s.logger.Error("placement failed", "record", rec.ID, "error", err)
		}
	}
	return nil
}

// Place submits one ready record's orders to the exchange. The ready→
// processing claim is atomic, so concurrent triggers for the same record
// collapse into exactly one exchange submission; the losers see the claim
// conflict and do nothing.
func (s *BetService) Place(ctx context.Context, id string) error {
	if err := s.bets.ClaimForPlacement(ctx, id); err != nil {
		if errors.Is(err, domain.ErrAlreadyClaimed) {
			s.logger.Debug("placement already claimed", "record", id)
			return nil
		}
		return err
	}

	rec, err := s.bets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Selections == nil || len(rec.Selections.Items) == 0 {
		s.fail(ctx, id, "no selections to place")
		return fmt.Errorf("bets: record %s has no selections", id)
	}

	items := rec.Selections.Items
	results := s.submitOrders(ctx, items)
	annotated, succeeded := annotateItems(items, results)

	status := domain.BetStatusPlaced
	reportStatus := domain.PlacementSuccess
	switch {
	case succeeded == 0:
		status = domain.BetStatusFailed
		reportStatus = domain.PlacementFailure
	case succeeded < len(items):
		status = domain.BetStatusPartial
		reportStatus = domain.PlacementPartialFailure
	}

	report := domain.PlacementReport{Status: reportStatus, Bets: results}
	if err := s.bets.RecordPlacement(ctx, id, status, report, annotated); err != nil {
		return err
	}

	s.logger.Info("placement recorded",
		"record", id, "status", status, "orders", len(results), "succeeded", succeeded)

	if status == domain.BetStatusFailed {
		s.broadcast(EventBetFailed, id)
		s.notify(ctx, EventBetFailed, "Bet placement failed",
			fmt.Sprintf("Slip %s: all %d orders rejected", id, len(items)))
		return nil
	}

	s.broadcast(EventBetPlaced, id)
	s.notify(ctx, EventBetPlaced, "Bet placed",
		fmt.Sprintf("Slip %s: %d/%d orders placed", id, succeeded, len(items)))
	return nil
}

// submitOrders groups the items by market and submits one placeOrders call
// per market, since the exchange accepts a single market per call. A failed
// call yields synthetic failure results for its orders so every item still
// gets a verdict.
func (s *BetService) submitOrders(ctx context.Context, items []domain.SelectionItem) []domain.PlacementResult {
	type group struct {
		marketID     string
		instructions []betfair.PlaceInstruction
		selections   []int64
	}

	var groups []*group
	byMarket := make(map[string]*group)
	for _, it := range items {
		g, ok := byMarket[it.MarketID]
		if !ok {
			g = &group{marketID: it.MarketID}
			byMarket[it.MarketID] = g
			groups = append(groups, g)
		}
		g.instructions = append(g.instructions, betfair.ToInstruction(domain.BetOrder{
			MarketID:    it.MarketID,
			SelectionID: it.SelectionID,
			Stake:       it.Stake,
			Odds:        it.Odds,
			Side:        it.Side,
		}))
		g.selections = append(g.selections, it.SelectionID)
	}

	var results []domain.PlacementResult
	for _, g := range groups {
		report, err := s.placer.PlaceOrders(ctx, g.marketID, g.instructions)
		if err != nil {
			s.logger.Error("exchange call failed", "market", g.marketID, "error", err)
			for _, selID := range g.selections {
				results = append(results, domain.PlacementResult{
					MarketID:    g.marketID,
					SelectionID: selID,
					Status:      domain.PlacementFailure,
					ErrorCode:   "EXCHANGE_UNAVAILABLE",
				})
			}
			continue
		}
		results = append(results, betfair.ToPlacementResults(report)...)
	}
	return results
}

// annotateItems copies each order's verdict onto its selection item, matched
// by (selection_id, market_id). List positions are never used: the exchange
// does not guarantee report ordering.
func annotateItems(items []domain.SelectionItem, results []domain.PlacementResult) ([]domain.SelectionItem, int) {
	type key struct {
		selectionID int64
		marketID    string
	}
	byKey := make(map[key]domain.PlacementResult, len(results))
	for _, r := range results {
		byKey[key{r.SelectionID, r.MarketID}] = r
	}

	now := time.Now().UTC()
	annotated := make([]domain.SelectionItem, len(items))
	succeeded := 0
	for i, it := range items {
		r, ok := byKey[key{it.SelectionID, it.MarketID}]
		if !ok {
			it.Status = domain.PlacementFailure
			it.ErrorCode = "NO_REPORT"
			annotated[i] = it
			continue
		}

		it.Status = r.Status
		it.BetID = r.BetID
		it.ErrorCode = r.ErrorCode
		if r.Status == domain.PlacementSuccess {
			it.PlacedAt = &now
			succeeded++
		}
		annotated[i] = it
	}
	return annotated, succeeded
}

// fail applies the terminal error transition, logging rather than returning
// the follow-up error since the caller is already on an error path.
func (s *BetService) fail(ctx context.Context, id, msg string) {
	if err := s.bets.MarkFailed(ctx, id, msg); err != nil {
		s.logger.Error("mark failed errored", "record", id, "error", err)
		return
	}
	s.broadcast(EventBetFailed, id)
	s.notify(ctx, EventBetFailed, "Bet failed", fmt.Sprintf("Slip %s: %s", id, msg))
}

func (s *BetService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.Warn("notification failed", "event", event, "error", err)
	}
}

func (s *BetService) broadcast(event, recordID string) {
	if s.events == nil {
		return
	}
	s.events.Broadcast(event, map[string]string{"record_id": recordID})
}

// filterReliable keeps only events whose name mentions a trusted team.
func filterReliable(events []domain.Event, teams []string) []domain.Event {
	if len(teams) == 0 {
		return events
	}
	var kept []domain.Event
	for _, e := range events {
		name := strings.ToLower(e.Name)
		for _, team := range teams {
			if strings.Contains(name, strings.ToLower(team)) {
				kept = append(kept, e)
				break
			}
		}
	}
	return kept
}

func potentialProfit(items []domain.SelectionItem) float64 {
	var total float64
	for _, it := range items {
		total += it.PotentialProfit()
	}
	return total
}
