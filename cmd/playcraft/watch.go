package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-blackswan/playcraft/internal/config"
	"github.com/p-blackswan/playcraft/internal/embedding"
	"github.com/p-blackswan/playcraft/internal/store"
	"github.com/p-blackswan/playcraft/internal/tracker"
)

var (
	watchDir     string
	watchProject string
	watchNoScan  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Track file changes of a local directory into the database",
	Long: `Watch a local directory and feed every write into the change tracker
of a project. Hashes, and embeddings when a provider is configured, are
written to DATABASE_PATH. The directory is scanned once on start.

Examples:
  playcraft watch --dir ./my-game --project 6f1c...`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", ".", "Project directory")
	watchCmd.Flags().StringVar(&watchProject, "project", "", "Project ID")
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "Skip the initial directory scan")
	_ = watchCmd.MarkFlagRequired("project")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadOffline()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	index := embedding.NewIndex(embedder, st, logger)

	trackers := newTrackers(cfg, st, index, nil, tracker.Hooks{
		OnHashesUpdated: func(projectID string, paths []string) {
			logger.Info().Str("project_id", projectID).Strs("paths", paths).Msg("hashes updated")
		},
	}, logger)
	t := trackers.Get(watchProject)

	if !watchNoScan {
		n, err := tracker.ScanDir(watchDir, t)
		if err != nil {
			return err
		}
		logger.Info().Int("files", n).Str("dir", watchDir).Msg("initial scan queued")
	}

	werr := tracker.Watch(ctx, watchDir, t)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := trackers.DisposeAll(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("flushing tracker failed")
	}
	return werr
}
