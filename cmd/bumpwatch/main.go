package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/BumpBTC/bumpcore/internal/address"
	"github.com/BumpBTC/bumpcore/internal/api"
	"github.com/BumpBTC/bumpcore/internal/config"
	"github.com/BumpBTC/bumpcore/internal/keystore"
	"github.com/BumpBTC/bumpcore/internal/logger"
	"github.com/BumpBTC/bumpcore/internal/metrics"
	"github.com/BumpBTC/bumpcore/internal/rates"
	"github.com/BumpBTC/bumpcore/internal/session"
	"github.com/BumpBTC/bumpcore/internal/store"
)

// bumpwatch keeps a wallet's client-side state warm: it polls the rate
// provider, re-syncs wallet and transaction state from the backend on an
// interval, and serves Prometheus metrics. It needs a stored session from
// `bumpcli login` and exits if none is present.
func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl := logger.New(cfg.LogLevel)
	zl.Info().
		Str("api", cfg.APIBaseURL).
		Str("network", cfg.Network).
		Str("metrics_port", cfg.MetricsPort).
		Msg("Starting bumpwatch")

	ks, err := keystore.Open(cfg.KeystorePath)
	if err != nil {
		zl.Fatal().Err(err).Str("path", cfg.KeystorePath).Msg("Failed to open keystore")
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, ks, zl)
	sessions := session.NewManager(client, ks, zl)
	if sessions.Restore() == nil {
		zl.Fatal().Msg("No stored session, run `bumpcli login` first")
	}

	validator, err := address.NewValidator(address.Network(cfg.Network))
	if err != nil {
		zl.Fatal().Err(err).Msg("Failed to build address validator")
	}
	wallets := store.New(client, validator, zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rateClient := rates.NewClient(cfg.RateAPIURL, cfg.RequestTimeout, zl)
	poller := rates.NewPoller(rateClient, cfg.RateRefreshInterval, wallets.SetRates, zl)
	poller.Start(ctx)
	defer poller.Stop()

	g, gctx := errgroup.WithContext(ctx)

	// Metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux}
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Wallet state sync loop
	g.Go(func() error {
		ticker := time.NewTicker(cfg.WalletRefreshInterval)
		defer ticker.Stop()

		if err := syncOnce(gctx, wallets, zl); err != nil {
			return err
		}
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := syncOnce(gctx, wallets, zl); err != nil {
					return err
				}
			}
		}
	})

	// Rate table age gauge
	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				state := wallets.Snapshot()
				if !state.RatesFetchedAt.IsZero() {
					metrics.SetRateTableAge(time.Since(state.RatesFetchedAt).Seconds())
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		zl.Fatal().Err(err).Msg("bumpwatch exited with error")
	}
	zl.Info().Msg("bumpwatch stopped")
}

// syncOnce refreshes wallet state once and logs the outcome. A session
// expiry is terminal for the daemon since every further call would fail
// the same way.
func syncOnce(ctx context.Context, wallets *store.Store, zl zerolog.Logger) error {
	if err := wallets.Refresh(ctx); err != nil {
		if api.IsSessionExpired(err) {
			return err
		}
		zl.Warn().Err(err).Msg("Wallet sync failed, keeping previous state")
		return nil
	}

	state := wallets.Snapshot()
	zl.Debug().
		Int("wallets", len(state.Wallets)).
		Int("transactions", len(state.Transactions)).
		Msg("Wallet state synced")
	return nil
}
