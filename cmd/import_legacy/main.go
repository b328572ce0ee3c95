package main

import (
	"fmt"
	"os"

	"github.com/meur/comparador/internal/app"
	"github.com/meur/comparador/internal/config"
	"github.com/meur/comparador/internal/logging"
	"github.com/meur/comparador/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath  string
	dbPath      string
	inputPath   string
	fallback    string
	dryRun      bool
	skipInvalid bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "comparador-import",
	Short: "Import a legacy institutions export into the per-category collections",
	Long: `Reads a JSON array exported from the old single "institutions" collection,
where rows carry flat indicator fields, a "type" tag and older field
spellings. Every row is normalized to the current schema and written to the
collection of its category in a single transaction. Rows whose category
cannot be resolved are reported and skipped; rows failing validation are
reported and imported unless --skip-invalid is set. Each row keeps a stable
id, so running the import again adds only rows that are new.`,
	SilenceUsage: true,
	RunE:         runImport,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "comparador.yaml", "Config file path")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.Flags().StringVarP(&inputPath, "input", "i", "data/institutions.json", "Legacy export JSON path")
	rootCmd.Flags().StringVar(&fallback, "fallback-category", "", "Category assumed for rows without category or type")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Normalize and report without writing")
	rootCmd.Flags().BoolVar(&skipInvalid, "skip-invalid", false, "Leave out rows that fail validation instead of flagging them")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}

	logger, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	defer f.Close()

	rows, err := decodeExport(f)
	if err != nil {
		return err
	}

	a, err := app.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var fb models.Category
	if fallback != "" {
		fb, err = a.Service.ResolveCategory(fallback)
		if err != nil {
			return err
		}
	}

	im := importer{
		registry:    a.Registry,
		normalizer:  a.Normalizer,
		validator:   a.Validator,
		fallback:    fb,
		skipInvalid: skipInvalid,
	}
	plan, err := im.group(rows)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range plan.Skipped {
		logger.Warn("Skipping legacy record",
			zap.Int("index", s.Index),
			zap.String("name", s.Name),
			zap.String("reason", s.Reason))
	}
	for _, s := range plan.Invalid {
		logger.Warn("Importing legacy record that fails validation",
			zap.Int("index", s.Index),
			zap.String("name", s.Name),
			zap.String("reason", s.Reason))
	}

	if dryRun {
		for _, b := range plan.Batches {
			fmt.Fprintf(out, "- %s: %d rows (dry run)\n", b.Category, len(b.Docs))
		}
	} else {
		ctx := cmd.Context()
		inserted, err := apply(ctx, a.Store, plan)
		if err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}
		for _, b := range plan.Batches {
			stored, err := a.Store.CountDocuments(ctx, b.Collection)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ %s: %d new of %d rows, %d stored\n", b.Category, inserted[b.Category], len(b.Docs), stored)
		}
	}
	fmt.Fprintf(out, "%d read, %d skipped, %d imported with validation errors\n",
		len(rows), len(plan.Skipped), len(plan.Invalid))

	logger.Info("Import finished",
		zap.Int("read", len(rows)),
		zap.Int("planned", plan.Rows()),
		zap.Int("skipped", len(plan.Skipped)),
		zap.Int("invalid", len(plan.Invalid)),
		zap.Bool("dry_run", dryRun))
	return nil
}
