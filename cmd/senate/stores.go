package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ghostpass/senate/infrastructure/store/memory"
	"github.com/ghostpass/senate/infrastructure/store/postgres"
	"github.com/ghostpass/senate/infrastructure/store/redis"
	"github.com/ghostpass/senate/infrastructure/store/supabase"
	"github.com/ghostpass/senate/internal/application"
	"github.com/ghostpass/senate/internal/ports"
)

// stores holds the persistence adapters selected by configuration.
type stores struct {
	calibration ports.CalibrationStore
	recorder    ports.RunRecorder
	tokens      ports.TokenStore
	subjects    ports.SubjectStore
	audit       ports.AuditSink

	closers []io.Closer
	logger  *slog.Logger
}

// openStores builds the primary backend and then applies the optional
// Supabase and Redis overrides.
func openStores(ctx context.Context, cfg application.StoreConfig, logger *slog.Logger) (*stores, error) {
	st := &stores{logger: logger}

	switch cfg.Backend {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		st.closers = append(st.closers, db)
		if err := postgres.Migrate(ctx, db); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		st.calibration = postgres.NewCalibrationStore(db)
		st.recorder = postgres.NewRunStore(db)
		st.tokens = postgres.NewTokenStore(db)
		st.subjects = postgres.NewSubjectStore(db)
		st.audit = postgres.NewAuditStore(db)
	default:
		logger.Warn("using in-memory stores, state is lost on restart")
		st.calibration = memory.NewCalibrationStore()
		st.recorder = memory.NewRunStore()
		st.tokens = memory.NewTokenStore()
		st.subjects = memory.NewSubjectStore()
		st.audit = memory.NewAuditLog()
	}

	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.recorder = supabase.NewRunStore(client)
		st.subjects = supabase.NewSubjectStore(client)
		logger.Info("supabase enabled for runs and subjects")
	}

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, client)
		if err := client.Ping(ctx).Err(); err != nil {
			st.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		st.tokens = redis.NewTokenStore(client)
		logger.Info("redis enabled for disclosure tokens")
	}

	return st, nil
}

// Close releases connections in reverse order of acquisition.
func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn("failed to close store", "error", err)
		}
	}
	s.closers = nil
}
