// tenet is a specification consistency engine: it stores project facts,
// detects contradictions between them deterministically, enriches detected
// conflicts with AI-generated guidance, and scores how complete the
// specification is per category.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tenet-io/tenet/internal/config"
	"github.com/tenet-io/tenet/internal/engine"
	"github.com/tenet-io/tenet/internal/judge"
	"github.com/tenet-io/tenet/internal/maturity"
	"github.com/tenet-io/tenet/internal/storage"
)

var (
	cfg   *config.Config
	store storage.Storage
	eng   *engine.Engine

	dbPath      string
	projectID   string
	actor       string
	configPath  string
	noJudge     bool
	verboseLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "tenet",
	Short: "Specification consistency engine",
	Long: `tenet stores project specifications, detects conflicts between them,
and tracks how mature each part of the specification is.

Facts are grouped by project and category. Adding a fact runs the full
deterministic rule set over the project's active facts; any contradiction
becomes a recorded conflict with concrete resolution options. Medium and
high severity conflicts hold the phase gate closed until resolved.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

func setup(ctx context.Context) error {
	level := slog.LevelWarn
	if verboseLogs {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	if actor == "" {
		actor = cfg.Actor
	}
	if projectID == "" {
		projectID = os.Getenv("TENET_PROJECT")
	}
	if projectID == "" {
		projectID = "default"
	}

	store, err = storage.NewStorage(ctx, &storage.Config{Path: cfg.Database})
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	eng, err = engine.New(&engine.Config{
		Store: store,
		Judge: buildJudge(),
		Calculator: maturity.NewCalculator(&maturity.Config{
			BaseWeight:      cfg.Maturity.BaseWeight,
			CategoryWeights: cfg.Maturity.Weights,
		}),
		BlockingSeverities: cfg.Gate.BlockingSeverities(),
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	return nil
}

// buildJudge picks the enrichment backend. Without an API key (or with the
// judge disabled) conflicts keep their rule-template descriptions.
func buildJudge() judge.Judge {
	if noJudge || cfg.Judge.Disabled {
		return judge.NewTemplateJudge()
	}
	j, err := judge.NewAnthropicJudge(&judge.Config{
		Model:          cfg.Judge.Model,
		Timeout:        cfg.Judge.Timeout(),
		MaxRetries:     cfg.Judge.MaxRetries,
		MaxConcurrent:  cfg.Judge.MaxConcurrent,
		RequestsPerSec: cfg.Judge.RequestsPerSec,
	})
	if err != nil {
		slog.Debug("semantic judge unavailable, using templates", "error", err)
		return judge.NewTemplateJudge()
	}
	return j
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default .tenet/tenet.db)")
	rootCmd.PersistentFlags().StringVarP(&projectID, "project", "p", "", "project ID (default $TENET_PROJECT or \"default\")")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "actor recorded in the audit trail")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".tenet/config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&noJudge, "no-judge", false, "skip AI enrichment; use rule templates only")
	rootCmd.PersistentFlags().BoolVarP(&verboseLogs, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
