package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/p-blackswan/playcraft/internal/config"
	"github.com/p-blackswan/playcraft/internal/embedding"
	"github.com/p-blackswan/playcraft/internal/intelligence"
	"github.com/p-blackswan/playcraft/internal/tracker"
)

var (
	suggestDir    string
	suggestPrompt string
	suggestLimit  int
	suggestFormat string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Rank the files of a local directory for an edit prompt",
	Long: `Rank the files of a local directory for an edit prompt without a
database. Recently modified files count as changed. When an embedding
provider is configured the files are embedded first.

Examples:
  playcraft suggest --dir ./my-game --prompt "make the board bigger"
  playcraft suggest --dir ./my-game --prompt "add a shop" --format json`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().StringVar(&suggestDir, "dir", ".", "Project directory")
	suggestCmd.Flags().StringVar(&suggestPrompt, "prompt", "", "Edit prompt")
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 0, "Maximum suggestions (default MAX_SUGGESTIONS)")
	suggestCmd.Flags().StringVar(&suggestFormat, "format", "table", "Output format: table or json")
	_ = suggestCmd.MarkFlagRequired("prompt")
}

const localProject = "local"

func runSuggest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadOffline()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	dirFiles, err := tracker.ReadDir(suggestDir)
	if err != nil {
		return err
	}
	files := make([]intelligence.File, len(dirFiles))
	for i, f := range dirFiles {
		files[i] = intelligence.File{Path: f.Path, Content: f.Content, ModifiedAt: f.ModifiedAt}
	}

	opts := intelligenceOptions(cfg, logger)
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	if embedder != nil {
		index := embedding.NewIndex(embedder, nil, logger)
		for _, f := range files {
			if err := index.GenerateEmbedding(ctx, localProject, f.Path, f.Content); err != nil {
				logger.Warn().Err(err).Str("path", f.Path).Msg("embedding failed")
			}
		}
		opts.Similar = index
	}

	in, err := intelligence.NewService(opts).Get(ctx, localProject, files)
	if err != nil {
		return err
	}
	suggestions, err := in.SuggestFiles(ctx, suggestPrompt, intelligence.SuggestOptions{Limit: suggestLimit})
	if err != nil {
		return err
	}
	return printSuggestions(cmd.OutOrStdout(), suggestFormat, suggestions)
}

func printSuggestions(w io.Writer, format string, suggestions []intelligence.Suggestion) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(suggestions)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCORE\tPATH\tREASONS")
		for _, s := range suggestions {
			fmt.Fprintf(tw, "%.3f\t%s\t%s\n", s.Score, s.Path, strings.Join(s.Reasons, ","))
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown format %q (use table or json)", format)
}
