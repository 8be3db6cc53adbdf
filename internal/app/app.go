// Package app assembles the store, translator, propagation and pipeline
// from configuration. Every binary starts here.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/radiograb/internal/config"
	"github.com/radiograb/internal/metrics"
	"github.com/radiograb/internal/pipeline"
	"github.com/radiograb/internal/process"
	"github.com/radiograb/internal/propagation"
	"github.com/radiograb/internal/recorder"
	"github.com/radiograb/internal/storage/gormstore"
	"github.com/radiograb/internal/translator"
	"github.com/radiograb/pkg/logger"
	"github.com/radiograb/pkg/ratelimit"
)

// App holds the wired components
type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Repo     *gormstore.Repository
	Limiter  *ratelimit.MultiLimiter
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Pipeline *pipeline.Orchestrator
	Recorder *recorder.Scheduler // nil unless requested
}

// Options adjust assembly
type Options struct {
	// WithRecorder builds the live recording scheduler. It also serves the
	// scheduler collaborator when that runs "inprocess".
	WithRecorder bool
}

// New opens the store, runs migrations and wires the pipeline
func New(cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	repo, err := gormstore.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repo.Migrate(); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	limiter := ratelimit.NewDefaultLimiter(cfg.Translator.RequestsPerMinute)

	tr, err := translator.New(cfg.Translator, limiter, log)
	if err != nil {
		repo.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var rec *recorder.Scheduler
	var local pipeline.Scheduler
	if opts.WithRecorder {
		record := recorder.CommandRecorder(process.Command{Path: cfg.Recorder.Command, Args: cfg.Recorder.Args})
		rec = recorder.New(repo, record, m, log)
		local = rec
	}
	ttl, scheduler, err := propagation.New(cfg.Propagation, local, log)
	if err != nil {
		repo.Close()
		return nil, err
	}

	orch := pipeline.New(pipeline.Dependencies{
		Repository:         repo,
		Translator:         tr,
		TTLManager:         ttl,
		Scheduler:          scheduler,
		PropagationTimeout: cfg.Propagation.Timeout,
		Observer:           m,
		Log:                log,
	})

	return &App{
		Config:   cfg,
		Log:      log,
		Repo:     repo,
		Limiter:  limiter,
		Registry: reg,
		Metrics:  m,
		Pipeline: orch,
		Recorder: rec,
	}, nil
}

// Close releases the store
func (a *App) Close() error {
	return a.Repo.Close()
}
