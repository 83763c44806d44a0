package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/pipeline"
	"github.com/alanyoungcy/betbot/internal/server"
	"github.com/alanyoungcy/betbot/internal/server/handler"
	"github.com/alanyoungcy/betbot/internal/server/ws"
	"github.com/alanyoungcy/betbot/internal/service"
)

// services bundles the service layer built on top of the wired dependencies.
type services struct {
	discovery   *service.DiscoveryService
	analysis    *service.AnalysisService
	wallet      *service.WalletService
	bets        *service.BetService
	suggestions *service.SuggestionService
	settlement  *service.SettlementService
	learning    *service.LearningService
	migration   *service.MigrationService
}

// buildServices constructs the service layer. hub may be nil in worker mode;
// services treat a nil broadcaster as a no-op.
func (a *App) buildServices(deps *Dependencies, hub *ws.Hub) *services {
	discovery := service.NewDiscoveryService(deps.Exchange, deps.OddsCache, a.cfg.Betting, a.logger)
	analysis := service.NewAnalysisService(deps.Advisor, deps.LearningsStore, a.logger)
	wallet := service.NewWalletService(deps.Exchange, deps.WalletStore, deps.SettingsStore, a.cfg.Betting, a.logger)

	var events service.Broadcaster
	if hub != nil {
		events = hub
	}

	bets := service.NewBetService(
		deps.BetStore, discovery, analysis, wallet,
		deps.Placer, deps.Notifier, events, a.cfg.Betting, a.logger,
	)
	suggestions := service.NewSuggestionService(
		deps.SuggestionStore, deps.BetStore, discovery, analysis, wallet,
		deps.LockManager, a.cfg.Betting, deps.LockTTL, a.logger,
	)
	settlement := service.NewSettlementService(
		deps.BetStore, deps.Exchange, wallet, deps.LockManager,
		deps.Archiver, deps.Notifier, events, deps.LockTTL, a.logger,
	)
	learning := service.NewLearningService(deps.BetStore, deps.LearningsStore, deps.Advisor, a.logger)
	migration := service.NewMigrationService(deps.BetStore, a.logger)

	return &services{
		discovery:   discovery,
		analysis:    analysis,
		wallet:      wallet,
		bets:        bets,
		suggestions: suggestions,
		settlement:  settlement,
		learning:    learning,
		migration:   migration,
	}
}

// newServer builds the HTTP server around the given services and hub.
func (a *App) newServer(deps *Dependencies, svcs *services, hub *ws.Hub) *server.Server {
	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(deps.PG, deps.Redis, a.logger),
		Bets:        handler.NewBetHandler(svcs.bets, a.logger),
		Odds:        handler.NewOddsHandler(svcs.discovery, a.logger),
		Wallet:      handler.NewWalletHandler(svcs.wallet, a.logger),
		Settings:    handler.NewSettingsHandler(deps.SettingsStore, a.settingsDefaults(), a.logger),
		Learnings:   handler.NewLearningsHandler(deps.LearningsStore, a.logger),
		Suggestions: handler.NewSuggestionHandler(svcs.suggestions, a.logger),
		Settlements: handler.NewSettlementHandler(svcs.settlement, a.logger),
	}

	return server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)
}

// ServeMode runs the HTTP API and WebSocket hub without the background
// scheduler. Lifecycle transitions still happen through explicit API calls.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})

	svcs := a.buildServices(deps, hub)
	a.runServer(ctx, g, a.newServer(deps, svcs, hub))

	return g.Wait()
}

// WorkerMode runs the background scheduler without the HTTP API.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	svcs := a.buildServices(deps, nil)
	orch := pipeline.NewOrchestrator(
		svcs.bets, svcs.suggestions, svcs.settlement, svcs.learning,
		a.cfg.Scheduler, a.logger,
	)

	err := orch.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// FullMode runs everything: API, WebSocket hub, and the background scheduler.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})

	svcs := a.buildServices(deps, hub)

	orch := pipeline.NewOrchestrator(
		svcs.bets, svcs.suggestions, svcs.settlement, svcs.learning,
		a.cfg.Scheduler, a.logger,
	)
	g.Go(func() error {
		err := orch.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	a.runServer(ctx, g, a.newServer(deps, svcs, hub))

	return g.Wait()
}

// MigrateMode upgrades stored records to the current schema version and
// exits.
func (a *App) MigrateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting migrate mode")

	svcs := a.buildServices(deps, nil)
	migrated, err := svcs.migration.Run(ctx)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "schema migration complete", "migrated", migrated)
	return nil
}

// settingsDefaults exposes the config fallbacks as a settings document for
// the API.
func (a *App) settingsDefaults() domain.Settings {
	return domain.Settings{
		BankrollPercent:  a.cfg.Betting.BankrollPercent,
		MaxBankroll:      a.cfg.Betting.MaxBankroll,
		RiskAppetite:     a.cfg.Betting.RiskAppetite,
		UseReliableTeams: a.cfg.Betting.UseReliableTeams,
		MinStake:         a.cfg.Betting.MinStake,
		MinProfit:        a.cfg.Betting.MinProfit,
	}
}

// runServer adds the HTTP server plus its graceful shutdown to the errgroup.
func (a *App) runServer(ctx context.Context, g *errgroup.Group, srv *server.Server) {
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
