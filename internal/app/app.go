// Package app wires config, storage, collaborators, and the worker into a
// single process.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/videditor/jobrunner/internal/collab"
	"github.com/videditor/jobrunner/internal/config"
	"github.com/videditor/jobrunner/internal/db"
	"github.com/videditor/jobrunner/internal/handler"
	"github.com/videditor/jobrunner/internal/healthz"
	"github.com/videditor/jobrunner/internal/pkg/logger"
	"github.com/videditor/jobrunner/internal/processor"
	"github.com/videditor/jobrunner/internal/repo"
	"github.com/videditor/jobrunner/internal/runtime"
	"github.com/videditor/jobrunner/internal/worker"
)

// App holds every long-lived component of the process.
type App struct {
	Log    *logger.Logger
	Cfg    config.Config
	DB     *db.Service
	Worker *worker.Worker
	Router http.Handler
}

// New loads configuration, connects to Postgres, migrates the schema,
// builds the collaborators and handler registry, and assembles the worker
// and health router. It does not start anything.
func New() (*App, error) {
	log, err := logger.New("development")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.IsProd() {
		if prodLog, err := logger.New("production"); err == nil {
			log = prodLog
		}
	}

	database, err := db.Open(cfg.DatabaseURL, cfg.JobConcurrency, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	jobRepo := repo.NewJobRepo(database.DB(), log)
	projectRepo := repo.NewProjectRepo(database.DB(), log)
	transcriptionRepo := repo.NewTranscriptionRepo(database.DB(), log)
	shortRepo := repo.NewShortRepo(database.DB(), log)

	store, err := collab.NewTigrisStore(context.Background(), collab.TigrisConfig{
		Endpoint:        cfg.TigrisEndpoint,
		Region:          cfg.TigrisRegion,
		AccessKeyID:     cfg.TigrisAccessKeyID,
		SecretAccessKey: cfg.TigrisSecretAccessKey,
	})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init object store: %w", err)
	}
	media := collab.NewFFmpegToolchain(cfg.FFmpegBinary)
	transcriber := collab.NewShellTranscriber(cfg.WhisperBinary)
	textgen := collab.NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)

	registry := runtime.NewRegistry()
	handlers := []runtime.Handler{
		handler.NewThumbnailHandler(store, media, projectRepo, log),
		handler.NewTranscriptionHandler(store, transcriber, projectRepo, transcriptionRepo, log),
		handler.NewAnalysisHandler(store, media, textgen, projectRepo, transcriptionRepo, shortRepo, cfg.TigrisBucket, log),
		handler.NewCuttingHandler(log),
		handler.NewDeliveryHandler(log),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			log.Sync()
			return nil, fmt.Errorf("register handler %s: %w", h.Type(), err)
		}
	}

	proc := processor.New(jobRepo, registry, log)
	w := worker.New(jobRepo, proc, worker.Config{
		Concurrency:  cfg.JobConcurrency,
		PollInterval: cfg.PollInterval(),
	}, log)

	router := chi.NewRouter()
	router.Get("/healthz", healthz.Handler(w))

	return &App{
		Log:    log,
		Cfg:    cfg,
		DB:     database,
		Worker: w,
		Router: router,
	}, nil
}

// Start begins worker polling.
func (a *App) Start(ctx context.Context) {
	a.Worker.Start(ctx)
}

// Drain stops the worker: no further claims, in-flight jobs run to
// completion within the drain timeout.
func (a *App) Drain(ctx context.Context) {
	a.Worker.Stop(ctx)
}

// Close releases the database pool and flushes the logger. Best-effort:
// errors are logged, not returned, so shutdown always runs to completion.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		a.Log.Warn("failed to close database pool", "error", err)
	}
	a.Log.Sync()
}
