// Package app wires configuration into the storage, schema and service
// layers shared by every binary.
package app

import (
	"fmt"

	"github.com/meur/comparador/internal/config"
	"github.com/meur/comparador/internal/normalize"
	"github.com/meur/comparador/internal/schema"
	"github.com/meur/comparador/internal/seed"
	"github.com/meur/comparador/internal/service"
	"github.com/meur/comparador/internal/storage"
	"github.com/meur/comparador/internal/validate"
	"go.uber.org/zap"
)

// App bundles the long-lived components
type App struct {
	Config     *config.Config
	Store      *storage.Store
	Registry   *schema.Registry
	Normalizer *normalize.Normalizer
	Validator  *validate.Validator
	Service    *service.Service
	Logger     *zap.Logger
}

// Open validates cfg, opens the store and builds the service
func Open(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	registry := schema.Default()
	dataset := seed.Demo()
	if err := dataset.Check(registry); err != nil {
		return nil, fmt.Errorf("demo dataset: %w", err)
	}

	ranges, err := cfg.IndicatorRanges(registry)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	normalizer := normalize.New(registry, cfg.Display.FallbackColor)
	validator := validate.New(registry, ranges)
	svc := service.New(store, service.Options{
		Registry:   registry,
		Normalizer: normalizer,
		Validator:  validator,
		Dataset:    dataset,
		Logger:     logger,
	})

	logger.Debug("Application wired",
		zap.String("db", cfg.Storage.Path),
		zap.Int("ranges", len(ranges)),
		zap.String("fallback_color", normalizer.FallbackColor()))

	return &App{
		Config:     cfg,
		Store:      store,
		Registry:   registry,
		Normalizer: normalizer,
		Validator:  validator,
		Service:    svc,
		Logger:     logger,
	}, nil
}

// Close releases the store
func (a *App) Close() error {
	return a.Store.Close()
}
