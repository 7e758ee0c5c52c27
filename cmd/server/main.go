// Package main implements the storecore HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"golang.org/x/sync/errgroup"

	"github.com/mkovtun/storecore/internal/app"
	"github.com/mkovtun/storecore/internal/config"
	"github.com/mkovtun/storecore/internal/store"
	"github.com/mkovtun/storecore/pkg/auth"
	"github.com/mkovtun/storecore/pkg/bootstrap"
	"github.com/mkovtun/storecore/pkg/config/configloader"
	"github.com/mkovtun/storecore/pkg/messaging"
	"github.com/mkovtun/storecore/pkg/nats"
)

const serviceName = "storecore"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run initializes the application, sets up the database connection, and starts the HTTP and pprof servers.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create database connection pool: %w", err)
	}
	defer dbPool.Close()
	logger.Info("Successfully connected to the database!")

	if err := store.Migrate(cfg.Database.URL); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	logger.Info("Database migrations applied")

	publisher, closePublisher, err := setupPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	verifier, err := auth.NewJWTVerifier(startupCtx, cfg.IdP)
	if err != nil {
		return fmt.Errorf("failed to create JWT verifier: %w", err)
	}

	deps := app.SetupDependencies(dbPool, verifier, publisher, logger)
	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := &http.Server{
		Addr: cfg.PProf.Addr,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// setupPublisher connects to NATS when messaging is enabled, and falls back
// to a no-op publisher otherwise.
func setupPublisher(cfg *config.Config, logger *slog.Logger) (messaging.Publisher, func(), error) {
	if !cfg.Nats.Enabled {
		logger.Info("Messaging disabled, order events will not be published")
		return messaging.NoopPublisher{}, func() {}, nil
	}

	natsConn, err := nats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := nats.NewJetStreamContext(natsConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	logger.Info("Successfully connected to NATS", slog.String("url", cfg.Nats.Url))

	closeFn := func() {
		natsConn.Close()
		logger.Info("NATS connection closed")
	}
	return nats.NewNatsPublisher(js), closeFn, nil
}
