// Command senate serves the senate evaluation API and the ghost-resolve
// partner endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghostpass/senate/infrastructure/llm"
	"github.com/ghostpass/senate/infrastructure/middleware"
	"github.com/ghostpass/senate/infrastructure/seats"
	"github.com/ghostpass/senate/internal/application"
	"github.com/ghostpass/senate/internal/handler"
	"github.com/ghostpass/senate/internal/ports"
)

// Provider call resilience.
const (
	providerRetries    = 2
	providerRetryBase  = 500 * time.Millisecond
	providerRetryMax   = 4 * time.Second
	breakerMaxFailures = 5
	breakerCooldown    = 30 * time.Second
)

func main() {
	configPath := flag.String("config", os.Getenv("SENATE_CONFIG"), "path to the YAML config file")
	seedPath := flag.String("seed", "", "JSON file of disclosure tokens and subject records to load at startup")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*configPath, *seedPath, logger); err != nil {
		logger.Error("senate exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath, seedPath string, logger *slog.Logger) error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	roster, err := cfg.Roster()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := middleware.NewPrometheusMetrics(prometheus.DefaultRegisterer)

	registry, err := newRegistry(cfg, metrics)
	if err != nil {
		return fmt.Errorf("build model registry: %w", err)
	}
	logger.Info("model providers available", "providers", registry.Providers())

	st, err := openStores(ctx, cfg.Stores, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if seedPath != "" {
		seed, err := loadSeed(seedPath)
		if err != nil {
			return err
		}
		if err := applySeed(ctx, st, seed, logger); err != nil {
			return err
		}
	}

	var judgeClient ports.LLMClient
	if c, err := registry.GetClient(cfg.Senate.Judge.Model); err != nil {
		logger.Warn("judge model unavailable, verdicts will be degraded",
			"model", cfg.Senate.Judge.Model, "error", err)
	} else {
		judgeClient = c
	}

	senate, err := application.NewSenateService(application.SenateDeps{
		Roster: roster,
		Evaluator: seats.NewEvaluator(registry, seats.EvaluatorConfig{
			Timeout:   cfg.Senate.SeatTimeout,
			MaxTokens: cfg.Senate.SeatMaxTokens,
			Logger:    logger,
		}),
		Judge: seats.NewJudge(judgeClient, seats.JudgeConfig{
			Rule:      cfg.Senate.Contest,
			Timeout:   cfg.Senate.Judge.Timeout,
			MaxTokens: cfg.Senate.Judge.MaxTokens,
		}),
		Calibration:    st.calibration,
		Recorder:       st.recorder,
		DefaultWeights: cfg.DefaultWeights(roster),
		MinInputChars:  cfg.Senate.MinInputChars,
		MaxInputChars:  cfg.Senate.MaxInputChars,
		RecordTimeout:  cfg.Senate.RecordTimeout,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("build senate service: %w", err)
	}

	calibration, err := application.NewCalibrationService(roster, st.calibration, cfg.DefaultWeights(roster), metrics, logger)
	if err != nil {
		return fmt.Errorf("build calibration service: %w", err)
	}

	resolver, err := application.NewResolver(application.ResolverDeps{
		Tokens:     st.tokens,
		Subjects:   st.subjects,
		Audit:      st.audit,
		Policy:     cfg.GradePolicy(),
		MinimumAge: cfg.Ghost.MinimumAge,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}

	router := handler.NewRouter(handler.RouterDeps{
		Senate:  handler.NewSenateHandler(senate, calibration, logger),
		Ghost:   handler.NewGhostHandler(resolver, logger),
		Metrics: promhttp.Handler(),
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting senate",
			"addr", cfg.Server.Addr,
			"seats", roster.Len(),
			"enabled_seats", roster.Enabled(),
			"store_backend", cfg.Stores.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// newRegistry builds the provider registry. Every client gets its own
// circuit breaker; the per-request timeout covers the slower of a seat and
// the judge.
func newRegistry(cfg application.Config, pm *middleware.PrometheusMetrics) (*llm.Registry, error) {
	timeout := max(cfg.Senate.SeatTimeout, cfg.Senate.Judge.Timeout)
	return llm.NewRegistry(llm.RegistryConfig{
		Providers:      llm.DefaultProviders(),
		DefaultTimeout: timeout,
		ClientMiddleware: func(provider, model string) []llm.Middleware {
			return []llm.Middleware{
				llm.TracingMiddleware(provider),
				llm.MetricsMiddleware(pm, provider),
				llm.RetryMiddleware(providerRetries, providerRetryBase, providerRetryMax),
				llm.BreakerMiddleware(
					llm.NewCircuitBreaker(breakerMaxFailures, breakerCooldown),
					pm.BreakerMetrics(provider, model),
				),
				llm.TimeoutMiddleware(timeout),
			}
		},
	})
}
