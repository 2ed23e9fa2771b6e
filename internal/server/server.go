// Package server exposes the trading post over HTTP for the community site.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/doumori-team/tradingpost/internal/domain"
	"github.com/doumori-team/tradingpost/internal/server/handler"
	"github.com/doumori-team/tradingpost/internal/server/middleware"
	"github.com/doumori-team/tradingpost/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps mutating requests per member within RateWindow.
	// Zero disables throttling.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Listings *handler.ListingHandler
	Offers   *handler.OfferHandler
	Ratings  *handler.RatingHandler
	Catalog  *handler.CatalogHandler
}

// Server is the HTTP + websocket API fronting the exchange engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain wired up. limiter may be nil when throttling is
// disabled.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Listing lifecycle.
	mux.HandleFunc("POST /api/listings", handlers.Listings.CreateListing)
	mux.HandleFunc("GET /api/listings", handlers.Listings.ListListings)
	mux.HandleFunc("GET /api/listings/{id}", handlers.Listings.GetListing)
	mux.HandleFunc("POST /api/listings/{id}/offers", handlers.Listings.MakeOffer)
	mux.HandleFunc("POST /api/listings/{id}/offers/{offerID}/accept", handlers.Listings.AcceptOffer)
	mux.HandleFunc("POST /api/listings/{id}/contact", handlers.Listings.ShareInfo)
	mux.HandleFunc("POST /api/listings/{id}/complete", handlers.Listings.CompleteTrade)
	mux.HandleFunc("POST /api/listings/{id}/fail", handlers.Listings.FailTrade)
	mux.HandleFunc("POST /api/listings/{id}/feedback", handlers.Listings.SubmitFeedback)
	mux.HandleFunc("POST /api/listings/{id}/comments", handlers.Listings.AddComment)
	mux.HandleFunc("GET /api/listings/{id}/comments", handlers.Listings.ListComments)

	// Offers across listings.
	mux.HandleFunc("GET /api/offers", handlers.Offers.ListMine)
	mux.HandleFunc("POST /api/offers/{id}/cancel", handlers.Offers.CancelOffer)

	// Feedback history.
	mux.HandleFunc("GET /api/users/{id}/ratings", handlers.Ratings.ListForUser)

	// Catalog metadata.
	mux.HandleFunc("GET /api/catalog/games", handlers.Catalog.ListGames)
	mux.HandleFunc("GET /api/catalog/games/{scope}/items", handlers.Catalog.ResolveItems)

	// Websocket trade-event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Middleware chain, innermost first: rate limit, identity, auth,
	// logging, CORS.
	var h http.Handler = mux

	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Identity()(h)
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
