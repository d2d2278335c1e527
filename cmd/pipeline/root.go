package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Sangvierr/My-Lab/pkg/config"
	"github.com/Sangvierr/My-Lab/pkg/logging"
	"github.com/Sangvierr/My-Lab/pkg/models"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	envFile    string
	year       int
	corps      []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "dart-finance",
		Short: "Collect DART financials and AI business summaries, then bulk-load them",
		Long: `dart-finance runs the DART finance pipeline once.

For every target company it pulls the consolidated income-statement figures
from OpenDART, cuts the business-description section out of the latest
business report, asks a language model for a one-line summary and main risk,
and submits all records to the finance ingest service in one request.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (environment variables override it)")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading configuration")
	rootCmd.Flags().IntVar(&opts.year, "year", 0, "business year to collect (overrides DART_YEAR)")
	rootCmd.Flags().StringArrayVar(&opts.corps, "corp", nil, "target company name, corp code or stock code (repeatable, overrides DART_TARGETS)")

	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dart-finance %s\n", version)
		},
	}
}

func runPipeline(ctx context.Context, opts *rootOptions) error {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", opts.envFile, err)
		}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, opts); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator, err := buildOrchestrator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	sink, closeSink, err := buildLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	entities := make([]models.CorporateEntity, 0, len(cfg.Pipeline.Targets))
	for _, name := range cfg.Pipeline.Targets {
		entities = append(entities, models.CorporateEntity{Name: name})
	}

	report, result := orchestrator.RunAndLoad(ctx, entities, sink)
	logger.Info("Pipeline complete",
		zap.String("run_id", report.RunID),
		zap.Int("emitted", report.Emitted()),
		zap.Int("skipped", report.Skipped()),
		zap.Bool("load_ok", result.OK()))

	if result.Err != nil {
		return result.Err
	}
	return nil
}

// applyOverrides lets command-line flags win over file and environment values.
func applyOverrides(cfg *config.Config, opts *rootOptions) error {
	if opts.year != 0 {
		cfg.Pipeline.Year = opts.year
	}
	if len(opts.corps) > 0 {
		cfg.Pipeline.Targets = opts.corps
	}
	return cfg.Validate()
}
