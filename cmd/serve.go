package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"roomtoken/internal/app/token"
	"roomtoken/internal/configs"
	"roomtoken/internal/handler"
	"roomtoken/internal/pkg/keeper"
	"roomtoken/internal/pkg/limiter"
	"roomtoken/internal/pkg/logx"
	"roomtoken/internal/pkg/metrics"
	"roomtoken/internal/pkg/pow"
	"roomtoken/internal/pkg/randx"
)

const shutdownTimeout = 5 * time.Second

// newAuthority resolves the signing secret (through the keeper when configured) and
// builds the token authority.
func newAuthority(ctx context.Context, cfg *configs.AppConfig, opts ...token.Option) (*token.Authority, error) {
	secret, err := keeper.ResolveSecret(ctx, cfg.APISecretKeeperURI, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("resolve API secret: %w", err)
	}

	return token.NewAuthority(cfg.APIKey, secret, cfg.TokenTTL, opts...)
}

func runServe(ctx context.Context) error {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return err
	}

	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Dur("token_ttl", cfg.TokenTTL).
		Int("pow_difficulty", cfg.PowDifficulty).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	authority, err := newAuthority(ctx, cfg)
	if err != nil {
		return err
	}
	if !randx.IsValidAPIKey(authority.KeyID()) {
		logx.Warn("API_KEY does not look like a generated key; run gen-key for a new pair", "key_id", authority.KeyID())
	}
	logx.Info("Token authority ready", "key_id", authority.KeyID(), "token_ttl", authority.TTL().String())

	deps := &handler.AppDeps{
		Config: cfg,
		TokenLimiter: limiter.NewIPRateLimiter(ctx,
			rate.Limit(cfg.TokenRateLimitPerSec), cfg.TokenRateLimitBurst, limiter.DefaultCleanupInterval),
	}

	if cfg.PowDifficulty > 0 {
		deps.PoW = pow.NewManager(ctx, cfg.PowDifficulty)
	}

	business := metrics.NewNoopBusinessMetrics()
	var provider *metrics.Provider
	if cfg.MetricsEnabled {
		provider, err = metrics.NewProvider()
		if err != nil {
			return err
		}
		business, err = metrics.NewBusinessMetrics(provider.MeterProvider(), cfg.MetricsNamespace)
		if err != nil {
			return err
		}
		deps.MeterProvider = provider.MeterProvider()
	}
	deps.Tokens = token.NewMetricsDecorator(authority, business)

	servers := []*http.Server{{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler.Router(deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}}
	if provider != nil {
		servers = append(servers, &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:      handler.MetricsRouter(provider),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		g.Go(func() error {
			logx.Info("Server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logx.Info("Received shutdown signal. Starting graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var shutdownErrs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				shutdownErrs = append(shutdownErrs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		if provider != nil {
			if err := provider.Shutdown(shutdownCtx); err != nil {
				shutdownErrs = append(shutdownErrs, err)
			}
		}
		return errors.Join(shutdownErrs...)
	})

	if err := g.Wait(); err != nil {
		logx.Error(err, "Server stopped with error")
		return err
	}

	logx.Info("Server gracefully stopped.")
	return nil
}
