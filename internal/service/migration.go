package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// migrationBatchSize caps one migration batch.
const migrationBatchSize = 100

// MigrationService upgrades legacy records to the current document schema.
// It runs to completion in migrate mode and is safe to re-run: already
// upgraded records never match the scan.
type MigrationService struct {
	bets   domain.BetStore
	logger *slog.Logger
}

// NewMigrationService creates a MigrationService.
func NewMigrationService(bets domain.BetStore, logger *slog.Logger) *MigrationService {
	return &MigrationService{
		bets:   bets,
		logger: logger.With("component", "migration"),
	}
}

// Run upgrades every record below the current schema version, in batches,
// and returns the number migrated.
func (s *MigrationService) Run(ctx context.Context) (int, error) {
	total := 0
	for {
		recs, err := s.bets.ListUnmigrated(ctx, domain.SchemaVersionCurrent, migrationBatchSize)
		if err != nil {
			return total, fmt.Errorf("migration: list: %w", err)
		}
		if len(recs) == 0 {
			break
		}

		for _, rec := range recs {
			upgraded := upgradeRecord(rec)
			if err := s.bets.Replace(ctx, upgraded); err != nil {
				return total, fmt.Errorf("migration: replace %s: %w", rec.ID, err)
			}
			total++
		}
		s.logger.Info("migration batch applied", "count", len(recs))
	}

	s.logger.Info("migration complete", "migrated", total)
	return total, nil
}

// upgradeRecord brings one legacy document up to the current schema. Version
// 1 documents trusted client-computed wager totals and left item statuses
// blank before placement; both are normalized here.
func upgradeRecord(rec domain.BetRecord) domain.BetRecord {
	if rec.Selections != nil {
		for i := range rec.Selections.Items {
			it := &rec.Selections.Items[i]
			if it.Status == "" {
				it.Status = domain.ItemStatusPending
			}
			if it.Side == "" {
				it.Side = domain.SideBack
			}
		}
		rec.Selections.Wager = domain.RecomputeWager(rec.Selections.Items)
	}
	if rec.Settlements == nil {
		rec.Settlements = []domain.Settlement{}
	}
	rec.SchemaVersion = domain.SchemaVersionCurrent
	return rec
}
