package main

import (
	"fmt"
	"log/slog"

	"github.com/kalambet/thoth/internal/capture"
	"github.com/kalambet/thoth/internal/config"
	"github.com/kalambet/thoth/internal/engine"
	"github.com/kalambet/thoth/internal/enhance"
	"github.com/kalambet/thoth/internal/observe"
	"github.com/kalambet/thoth/internal/prompts"
	"github.com/kalambet/thoth/internal/storage"
)

// app is the set of components shared by serve and the local commands.
type app struct {
	cfg     config.Config
	store   *storage.Store
	engine  *engine.Handle
	catalog *prompts.Catalog
	service *enhance.Service
	logger  *slog.Logger
}

// newApp opens storage and builds the enhancement service. metrics may be
// nil for one-shot commands.
func newApp(cfg config.Config, logger *slog.Logger, metrics *observe.Metrics) (*app, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	eng := engine.NewHandle(cfg.Ollama.BaseURL)
	catalog := prompts.NewCatalog(store)
	capturer := capture.New(
		capture.SystemClipboard{},
		capture.NewCommandSelection(capture.ParseCommand(cfg.Capture.SelectionCommand), 0),
	).WithLogger(logger)

	svc := enhance.New(enhance.Deps{
		Engine:        eng,
		Catalog:       catalog,
		Capture:       capturer,
		History:       store,
		Metrics:       metrics,
		Logger:        logger,
		DefaultModel:  cfg.Enhancement.Model,
		DefaultPrompt: cfg.Enhancement.PromptID,
	})

	return &app{
		cfg:     cfg,
		store:   store,
		engine:  eng,
		catalog: catalog,
		service: svc,
		logger:  logger,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// loadApp loads configuration and builds the app for a one-shot command.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := setupLogging(cfg.Log.Level)
	return newApp(cfg, logger, nil)
}
