// Package app contains the application setup for the storecore service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkovtun/storecore/internal/config"
	"github.com/mkovtun/storecore/internal/inventory"
	"github.com/mkovtun/storecore/internal/order"
	"github.com/mkovtun/storecore/internal/review"
	"github.com/mkovtun/storecore/internal/store"
	"github.com/mkovtun/storecore/internal/transport/rest"
	"github.com/mkovtun/storecore/pkg/auth"
	"github.com/mkovtun/storecore/pkg/messaging"
	"github.com/mkovtun/storecore/pkg/server"
)

type Dependencies struct {
	OrderService  order.Service
	ReviewService review.Service
	Verifier      auth.Verifier
	Logger        *slog.Logger
}

func SetupDependencies(dbPool *pgxpool.Pool, verifier auth.Verifier, publisher messaging.Publisher, logger *slog.Logger) *Dependencies {
	pgStore := store.NewPgStore(dbPool)
	stockService := inventory.NewStockService(pgStore, logger)

	return &Dependencies{
		OrderService:  order.NewService(pgStore, pgStore, stockService, publisher, logger),
		ReviewService: review.NewService(pgStore, pgStore, logger),
		Verifier:      verifier,
		Logger:        logger,
	}
}

// SetupHttpHandler initializes the HTTP routes for the storecore application.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storecore application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	orderHandler := rest.NewOrderHandler(deps.OrderService, deps.Logger)
	orderHandler.RegisterRoutes(mux, deps.Verifier)

	reviewHandler := rest.NewReviewHandler(deps.ReviewService, deps.Logger)
	reviewHandler.RegisterRoutes(mux, deps.Verifier)

	mux.Get("/healthz", rest.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())
}

// SetupHttpServer creates and configures an HTTP server for the storecore application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
