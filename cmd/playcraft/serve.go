package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/p-blackswan/playcraft/internal/api"
	"github.com/p-blackswan/playcraft/internal/auth"
	"github.com/p-blackswan/playcraft/internal/bucket"
	"github.com/p-blackswan/playcraft/internal/config"
	"github.com/p-blackswan/playcraft/internal/embedding"
	"github.com/p-blackswan/playcraft/internal/health"
	"github.com/p-blackswan/playcraft/internal/intelligence"
	"github.com/p-blackswan/playcraft/internal/kit"
	"github.com/p-blackswan/playcraft/internal/metrics"
	"github.com/p-blackswan/playcraft/internal/notify"
	"github.com/p-blackswan/playcraft/internal/project"
	"github.com/p-blackswan/playcraft/internal/store"
	"github.com/p-blackswan/playcraft/internal/tracker"
	"github.com/p-blackswan/playcraft/internal/weights"
)

const (
	retentionInterval = 6 * time.Hour
	shutdownTimeout   = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func runServe(parent context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	logger.Info().
		Str("environment", cfg.Environment).
		Str("http_addr", cfg.HTTPAddr).
		Str("auth_mode", cfg.AuthMode).
		Str("embedding_provider", cfg.EmbeddingProvider).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Msg("starting playcraft")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	b, err := bucket.NewDiskBucket(cfg.BucketDir, logger)
	if err != nil {
		return fmt.Errorf("failed to open bucket: %w", err)
	}

	m := metrics.New()

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	index := embedding.NewIndex(embedder, st, logger)

	feedback := weights.NewFeedbackProvider(st, logger)
	intelOpts := intelligenceOptions(cfg, logger)
	intelOpts.Hashes = st
	intelOpts.Similar = index
	intelOpts.Weights = feedback
	intelOpts.Metrics = m
	intel := intelligence.NewService(intelOpts)

	trackers := newTrackers(cfg, st, index, m, tracker.Hooks{
		OnHashesUpdated: func(projectID string, _ []string) {
			intel.ClearCache(projectID)
		},
	}, logger)

	projects := project.NewService(st, trackers, logger)
	projects.OnDelete(func(_ context.Context, projectID string) {
		intel.ClearCache(projectID)
		index.Forget(projectID)
	})

	var notifier notify.Notifier = notify.Nop{}
	if cfg.SlackEnabled() {
		notifier = notify.NewSlack(cfg.SlackWebhookURL, logger)
	}

	gc, err := gameConfig(cfg)
	if err != nil {
		return err
	}
	sessions := kit.NewRegistry(cfg.SessionCapacity, gc, logger)
	m.RegisterActiveSessions(sessions.Len)

	checker := health.NewChecker(logger)
	checker.Register("database", health.PingCheck(st))
	checker.Register("bucket", func(ctx context.Context) health.Status {
		if _, err := b.Exists(ctx, "healthz"); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})
	if index.Enabled() {
		checker.Register("embeddings", func(context.Context) health.Status { return health.StatusOK })
	} else {
		checker.Register("embeddings", func(context.Context) health.Status { return health.StatusDegraded })
	}

	authCfg := api.AuthConfig{Mode: cfg.AuthMode, APIKey: cfg.APIKey}
	if cfg.AuthMode == api.AuthJWT {
		if authCfg.Verifier, err = auth.NewVerifier(cfg.JWTSecret); err != nil {
			return err
		}
	}

	srv := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.HTTPAddr,
		Auth:       authCfg,
		RateLimit: api.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}, api.Deps{
		Projects:     projects,
		Profiles:     project.NewProfileService(st, logger),
		Publisher:    project.NewPublishService(projects, st, b, notifier, project.PublishConfig{PublicBaseURL: cfg.PublicBaseURL}, logger),
		Assets:       project.NewAssetService(projects, b, cfg.PublicBaseURL, logger),
		Trackers:     trackers,
		Intelligence: intel,
		Feedback:     feedback,
		Sessions:     sessions,
		Bucket:       b,
		Health:       checker,
		Metrics:      m,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown()
	})
	g.Go(func() error {
		ticker := time.NewTicker(retentionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := st.RunRetention(gctx); err != nil {
					logger.Warn().Err(err).Msg("retention run failed")
					continue
				}
				if size, err := st.DBSizeBytes(); err == nil {
					logger.Info().Int64("db_size_bytes", size).Msg("retention run complete")
				}
			}
		}
	})

	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if derr := trackers.DisposeAll(shutdownCtx); derr != nil {
		logger.Error().Err(derr).Msg("flushing trackers on shutdown failed")
	}
	logger.Info().Msg("playcraft stopped")
	return err
}
