package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/p-blackswan/playcraft/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "playcraft",
	Short: "PlayCraft - AI assisted game builder backend",
	Long: `PlayCraft hosts game projects, tracks file changes, ranks the files an
edit prompt most likely touches, publishes project versions and serves
Puzzle Kit play sessions.

Configuration is read from the environment (see internal/config).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, suggestCmd, watchCmd, tokenCmd)
}

// newLogger builds the process logger the way every command shares it:
// JSON to stdout, console output in development.
func newLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
	if cfg.IsDevelopment() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Logger = logger
	return logger
}
