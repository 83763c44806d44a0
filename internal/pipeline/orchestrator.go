// Package pipeline schedules the background workflows: intent creation,
// analysis and placement scans, settlement reconciliation, suggestion
// promotion, and the learning loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/betbot/internal/config"
	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/service"
)

// scanBatchLimit caps how many records one analysis or placement scan picks
// up.
const scanBatchLimit = 20

// Orchestrator runs every scheduled workflow as a goroutine under one
// errgroup. The scan loops replace the document triggers of the original
// managed deployment; the hour-of-day loops replace its cron jobs.
type Orchestrator struct {
	bets        *service.BetService
	suggestions *service.SuggestionService
	settlement  *service.SettlementService
	learning    *service.LearningService
	sched       config.SchedulerConfig
	logger      *slog.Logger
}

// NewOrchestrator creates an Orchestrator coordinating all background loops.
func NewOrchestrator(
	bets *service.BetService,
	suggestions *service.SuggestionService,
	settlement *service.SettlementService,
	learning *service.LearningService,
	sched config.SchedulerConfig,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		bets:        bets,
		suggestions: suggestions,
		settlement:  settlement,
		learning:    learning,
		sched:       sched,
		logger:      logger.With(slog.String("component", "pipeline")),
	}
}

// Run starts all loops and blocks until the context is cancelled or a loop
// fails with a non-context error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator starting",
		slog.Int("daily_intent_hour_utc", o.sched.DailyIntentHourUTC),
		slog.Int("promotion_hour_utc", o.sched.PromotionHourUTC),
		slog.Int("scan_interval_seconds", o.sched.ScanIntervalSeconds),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.runDaily(ctx, o.sched.DailyIntentHourUTC, "daily intent", o.createDailyIntent)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("daily intent loop: %w", err)
	})

	g.Go(func() error {
		err := o.runDaily(ctx, o.sched.PromotionHourUTC, "promotion", o.promoteSuggestions)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("promotion loop: %w", err)
	})

	g.Go(func() error {
		err := o.runTicker(ctx, minutes(o.sched.SuggestionIntervalMinutes, 60), "suggestion", o.runSuggestion)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("suggestion loop: %w", err)
	})

	g.Go(func() error {
		err := o.runTicker(ctx, seconds(o.sched.ScanIntervalSeconds, 30), "analysis scan", func(ctx context.Context) error {
			return o.bets.AnalyzeIntents(ctx, scanBatchLimit)
		})
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("analysis scan: %w", err)
	})

	g.Go(func() error {
		err := o.runTicker(ctx, seconds(o.sched.ScanIntervalSeconds, 30), "placement scan", func(ctx context.Context) error {
			return o.bets.PlaceReady(ctx, scanBatchLimit)
		})
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("placement scan: %w", err)
	})

	g.Go(func() error {
		err := o.runTicker(ctx, minutes(o.sched.SettlementIntervalMinutes, 120), "settlement", o.settlement.Reconcile)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("settlement loop: %w", err)
	})

	g.Go(func() error {
		err := o.runTicker(ctx, minutes(o.sched.LearningIntervalMinutes, 60), "learning", o.learning.Run)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("learning loop: %w", err)
	})

	if err := g.Wait(); err != nil {
		o.logger.Error("orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("orchestrator stopped cleanly")
	return nil
}

// runTicker runs fn on a fixed interval. A failing pass is logged and the
// loop keeps going; only context cancellation ends it.
func (o *Orchestrator) runTicker(ctx context.Context, interval time.Duration, name string, fn func(context.Context) error) error {
	o.logger.Info("loop starting", slog.String("loop", name), slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("loop stopped", slog.String("loop", name))
			return ctx.Err()
		case <-ticker.C:
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				o.logger.Error("pass failed",
					slog.String("loop", name), slog.String("error", err.Error()))
			}
		}
	}
}

// runDaily runs fn once per UTC day at the given hour. The target instant is
// recomputed after every run, so a pass that overruns never double-fires.
func (o *Orchestrator) runDaily(ctx context.Context, hourUTC int, name string, fn func(context.Context) error) error {
	o.logger.Info("daily loop starting", slog.String("loop", name), slog.Int("hour_utc", hourUTC))

	for {
		wait := untilNextHour(time.Now().UTC(), hourUTC)
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			o.logger.Info("daily loop stopped", slog.String("loop", name))
			return ctx.Err()
		case <-timer.C:
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				o.logger.Error("daily pass failed",
					slog.String("loop", name), slog.String("error", err.Error()))
			}
		}
	}
}

// createDailyIntent creates today's automated slip. An existing live slip and
// a day without fixtures are both the expected steady state, not errors.
func (o *Orchestrator) createDailyIntent(ctx context.Context) error {
	date := time.Now().UTC().Format("2006-01-02")
	_, err := o.bets.CreateAutomated(ctx, domain.SourceAutomatedDaily, date)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		o.logger.Info("daily slip already live", slog.String("date", date))
		return nil
	case errors.Is(err, domain.ErrNoEvents):
		o.logger.Info("no fixtures today", slog.String("date", date))
		return nil
	}
	return err
}

// runSuggestion runs one hourly suggestion pass for today.
func (o *Orchestrator) runSuggestion(ctx context.Context) error {
	date := time.Now().UTC().Format("2006-01-02")
	_, err := o.suggestions.CreateAndAnalyze(ctx, date)
	if errors.Is(err, domain.ErrAlreadyExists) || errors.Is(err, domain.ErrNoEvents) {
		return nil
	}
	return err
}

// promoteSuggestions promotes today's analyzed suggestions into the real
// lifecycle.
func (o *Orchestrator) promoteSuggestions(ctx context.Context) error {
	date := time.Now().UTC().Format("2006-01-02")
	return o.suggestions.PromoteDue(ctx, date)
}

// untilNextHour is the duration until the next occurrence of hourUTC.
func untilNextHour(now time.Time, hourUTC int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func minutes(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Minute
}

func seconds(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}
