package main

import (
	"fmt"
	"io"
	"os"

	"github.com/meur/comparador/internal/app"
	"github.com/meur/comparador/internal/config"
	"github.com/meur/comparador/internal/logging"
	"github.com/meur/comparador/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	dbPath     string
	category   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "comparador-seed",
	Short: "Populate empty categories with the demo dataset",
	Long: `Inserts the embedded demo institutions into every category whose
collection is empty. Categories that already hold data are left untouched,
so running the command twice never duplicates rows.`,
	SilenceUsage: true,
	RunE:         runSeed,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "comparador.yaml", "Config file path")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.Flags().StringVar(&category, "category", "", "Seed only this category")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
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

	a, err := app.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if category != "" {
		c, err := a.Service.ResolveCategory(category)
		if err != nil {
			return err
		}
		n, err := a.Service.Seed(ctx, c)
		if err != nil {
			return err
		}
		printSeeded(out, c, n)
		return nil
	}

	report, err := a.Service.SeedAll(ctx)
	for _, c := range a.Registry.Categories() {
		if n, ok := report.Inserted[c]; ok {
			printSeeded(out, c, n)
		}
	}
	if err != nil {
		return err
	}

	logger.Info("Seeding complete", zap.Int("rows", report.Total))
	return nil
}

func printSeeded(out io.Writer, c models.Category, n int) {
	if n == 0 {
		fmt.Fprintf(out, "- %s already has data, skipped\n", c)
		return
	}
	fmt.Fprintf(out, "✓ Seeded %d rows into %s\n", n, c)
}
