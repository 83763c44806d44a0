package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/platform/betfair"
)

// settlementLockKey serializes reconciliation passes across the scheduler and
// the manual API trigger.
const settlementLockKey = "settlement"

// settlementScanLimit caps how many open records one pass reconciles.
const settlementScanLimit = 200

// ClearedSource is the slice of the exchange API that reconciliation needs.
type ClearedSource interface {
	ListClearedOrders(ctx context.Context, betIDs []string) (betfair.ClearedOrderSummaryReport, error)
}

// Archiver snapshots finished records into cold storage.
type Archiver interface {
	ArchiveRecord(ctx context.Context, rec domain.BetRecord) error
}

// SettlementService reconciles open records against the exchange's cleared
// orders and finishes them once every placed order has settled.
type SettlementService struct {
	bets     domain.BetStore
	cleared  ClearedSource
	wallet   *WalletService
	locks    domain.LockManager
	archiver Archiver
	notifier Notifier
	events   Broadcaster
	lockTTL  time.Duration
	logger   *slog.Logger
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(
	bets domain.BetStore,
	cleared ClearedSource,
	wallet *WalletService,
	locks domain.LockManager,
	archiver Archiver,
	notifier Notifier,
	events Broadcaster,
	lockTTL time.Duration,
	logger *slog.Logger,
) *SettlementService {
	if lockTTL <= 0 {
		lockTTL = 4 * time.Minute
	}
	return &SettlementService{
		bets:     bets,
		cleared:  cleared,
		wallet:   wallet,
		locks:    locks,
		archiver: archiver,
		notifier: notifier,
		events:   events,
		lockTTL:  lockTTL,
		logger:   logger.With("component", "settlement"),
	}
}

// Reconcile runs one settlement pass over every placed and partial record.
// Overlapping passes are prevented by a distributed lock; losing the lock is
// a silent no-op since the holder is doing the same work.
func (s *SettlementService) Reconcile(ctx context.Context) error {
	unlock, err := s.locks.Acquire(ctx, settlementLockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			s.logger.Info("settlement pass already running")
			return nil
		}
		return fmt.Errorf("settlement: acquire lock: %w", err)
	}
	defer unlock()

	var open []domain.BetRecord
	for _, status := range []domain.BetStatus{domain.BetStatusPlaced, domain.BetStatusPartial} {
		recs, err := s.bets.ListByStatus(ctx, status, settlementScanLimit)
		if err != nil {
			return fmt.Errorf("settlement: list %s: %w", status, err)
		}
		open = append(open, recs...)
	}
	if len(open) == 0 {
		return nil
	}

	finished := 0
	for _, rec := range open {
		done, err := s.reconcileRecord(ctx, rec)
		if err != nil {
			s.logger.Error("reconcile failed", "record", rec.ID, "error", err)
			continue
		}
		if done {
			finished++
		}
	}

	s.logger.Info("settlement pass complete", "open", len(open), "finished", finished)

	// Balances moved if anything settled; refresh the snapshot.
	if _, err := s.wallet.Sync(ctx); err != nil {
		s.logger.Warn("wallet sync after settlement failed", "error", err)
	}
	return nil
}

// reconcileRecord polls the exchange for one record's cleared orders and
// merges them in. Merging is idempotent: re-polling the same settled orders
// overwrites their entries rather than duplicating them.
func (s *SettlementService) reconcileRecord(ctx context.Context, rec domain.BetRecord) (bool, error) {
	if rec.Placement == nil {
		return false, nil
	}
	betIDs := rec.Placement.BetIDs()
	if len(betIDs) == 0 {
		return false, nil
	}

	report, err := s.cleared.ListClearedOrders(ctx, betIDs)
	if err != nil {
		return false, fmt.Errorf("list cleared orders: %w", err)
	}
	if len(report.ClearedOrders) == 0 {
		return false, nil
	}

	incoming := make([]domain.Settlement, 0, len(report.ClearedOrders))
	for _, o := range report.ClearedOrders {
		incoming = append(incoming, betfair.ToSettlement(o))
	}

	merged := domain.MergeSettlements(rec.Settlements, incoming)
	finished := len(merged) >= rec.ExpectedSettlements()
	ending := domain.Round2(rec.StartingBalance() + domain.TotalProfit(merged))

	err = s.bets.RecordSettlements(ctx, rec.ID, domain.SettlementUpdate{
		Settlements:   merged,
		EndingBalance: ending,
		Finished:      finished,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidBet) {
			// The record moved on since we listed it.
			return false, nil
		}
		return false, err
	}

	if !finished {
		s.logger.Info("partial settlement merged",
			"record", rec.ID, "settled", len(merged), "expected", rec.ExpectedSettlements())
		return false, nil
	}

	profit := domain.TotalProfit(merged)
	s.logger.Info("record finished", "record", rec.ID, "profit", profit, "ending", ending)

	s.archive(ctx, rec.ID)
	if s.events != nil {
		s.events.Broadcast(EventBetFinished, map[string]string{"record_id": rec.ID})
	}
	if s.notifier != nil {
		title := "Bet finished"
		msg := fmt.Sprintf("Slip %s settled with profit %.2f (balance %.2f)", rec.ID, profit, ending)
		if err := s.notifier.Notify(ctx, EventBetFinished, title, msg); err != nil {
			s.logger.Warn("notification failed", "error", err)
		}
	}
	return true, nil
}

// archive snapshots the finished record to cold storage. Archival is best
// effort; the primary store remains authoritative.
func (s *SettlementService) archive(ctx context.Context, id string) {
	if s.archiver == nil {
		return
	}
	rec, err := s.bets.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("archive load failed", "record", id, "error", err)
		return
	}
	if err := s.archiver.ArchiveRecord(ctx, rec); err != nil {
		s.logger.Warn("archive upload failed", "record", id, "error", err)
	}
}
