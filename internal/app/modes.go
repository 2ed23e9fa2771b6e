package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/doumori-team/tradingpost/internal/server"
	"github.com/doumori-team/tradingpost/internal/server/handler"
	"github.com/doumori-team/tradingpost/internal/server/ws"
	"github.com/doumori-team/tradingpost/internal/service"
)

// ServeMode runs the HTTP API and the websocket hub until the context is
// cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering serve mode")

	catalogSvc := service.NewCatalogService(deps.CatalogStore, deps.CatalogCache, a.logger)
	exchangeSvc := service.NewExchangeService(
		deps.ExchangeStore,
		deps.CommentStore,
		deps.RatingStore,
		deps.AuditStore,
		deps.IdentityStore,
		catalogSvc,
		deps.SignalBus,
		deps.Notifier,
		a.logger,
	)

	hub := ws.NewHub(deps.SignalBus, a.logger)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		},
		server.Handlers{
			Health:   handler.NewHealthHandler(a.logger),
			Listings: handler.NewListingHandler(exchangeSvc, a.logger),
			Offers:   handler.NewOfferHandler(exchangeSvc, a.logger),
			Ratings:  handler.NewRatingHandler(exchangeSvc, a.logger),
			Catalog:  handler.NewCatalogHandler(catalogSvc, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// ArchiveMode runs one pass of the audit-log archive job and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering archive mode",
		slog.Duration("retention", a.cfg.Archive.Retention.Duration),
	)

	archiveSvc := service.NewArchiveService(deps.AuditStore, deps.BlobWriter, deps.LockManager, a.logger).
		WithReader(deps.BlobReader)

	shipped, err := archiveSvc.Run(ctx, a.cfg.Archive.Retention.Duration)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "archive run finished",
		slog.Int64("entries_shipped", shipped),
	)
	return nil
}
