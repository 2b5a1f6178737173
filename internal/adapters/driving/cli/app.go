package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/whis/internal/adapters/driven/ai"
	"github.com/custodia-labs/whis/internal/adapters/driven/artifacts"
	"github.com/custodia-labs/whis/internal/adapters/driven/config/file"
	"github.com/custodia-labs/whis/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/whis/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
	"github.com/custodia-labs/whis/internal/core/services"
	"github.com/custodia-labs/whis/internal/logger"
	"github.com/custodia-labs/whis/internal/postprocessors"
	"github.com/custodia-labs/whis/internal/sanitizer"
)

// Options locate the configuration and registry on disk.
type Options struct {
	ConfigDir string
	DataDir   string
}

// App holds the services a command needs. Construction is deferred until a
// command runs so that config commands work without an embedder or salt.
type App struct {
	Settings        *domain.Settings
	SettingsService *services.SettingsService
	Store           driven.GenerationStore
	Retrieval       *services.RetrievalService
	Index           *services.IndexService

	ingest  *services.IngestService
	closers []func() error
}

// appFactory and settingsFactory are replaced in tests.
var (
	appFactory      = NewApp
	settingsFactory = newSettingsService
)

func newSettingsService(configDir string) (*services.SettingsService, error) {
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	return services.NewSettingsService(store, ai.ValidateEmbeddingConfig), nil
}

// NewApp loads and validates settings, opens the SQLite registry and wires
// the core services around it.
func NewApp(ctx context.Context, opts Options) (*App, error) {
	settingsSvc, err := settingsFactory(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Configure(logger.Config{Format: settings.Log.Format, File: settings.Log.File}); err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}

	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}
	logger.Debug("registry: %s", store.Path())

	app, err := assemble(ctx, settingsSvc, settings, store.GenerationStore())
	if err != nil {
		store.Close()
		return nil, err
	}
	app.closers = append(app.closers, store.Close)
	return app, nil
}

// assemble creates the embedder, retrieval and index services and loads the
// current generation, if any.
func assemble(
	ctx context.Context,
	settingsSvc *services.SettingsService,
	settings *domain.Settings,
	store driven.GenerationStore,
) (*App, error) {
	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}

	retrieval := services.NewRetrievalService(embedder, flat.Build, settings)
	index := services.NewIndexService(embedder, store, retrieval, artifacts.Archive{}, settings)

	if err := retrieval.Load(ctx, store); err != nil && !errors.Is(err, domain.ErrNoGeneration) {
		logger.Warn("current generation not loaded: %v", err)
	}

	return &App{
		Settings:        settings,
		SettingsService: settingsSvc,
		Store:           store,
		Retrieval:       retrieval,
		Index:           index,
		closers:         []func() error{embedder.Close},
	}, nil
}

// Ingest returns the ingest service, creating the sanitizer on first use.
// The salt is only required here.
func (a *App) Ingest() (*services.IngestService, error) {
	if a.ingest != nil {
		return a.ingest, nil
	}

	pipeline, err := postprocessors.NewDefaultPipeline(a.Settings.Sanitizer)
	if err != nil {
		return nil, err
	}
	logger.Debug("chunk pipeline: %s", strings.Join(pipeline.Names(), ", "))
	san, err := sanitizer.NewFromSettings(a.Settings.Sanitizer, a.SettingsService.Salt(), pipeline)
	if err != nil {
		return nil, err
	}
	a.ingest = services.NewIngestService(san, a.Settings.Sanitizer.Workers)
	return a.ingest, nil
}

// Pipeline returns a service that ingests and builds in one step.
func (a *App) Pipeline() (*services.PipelineService, error) {
	ingest, err := a.Ingest()
	if err != nil {
		return nil, err
	}
	return services.NewPipelineService(ingest, a.Index), nil
}

// Close releases the embedder and the registry.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openApp creates the app from the global flags.
func openApp(ctx context.Context) (*App, error) {
	return appFactory(ctx, Options{ConfigDir: configDir, DataDir: dataDir})
}
