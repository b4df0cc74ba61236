// Package pipeline runs the document analysis workers. Each worker claims
// tasks from the durable queue, runs extraction, matching, and scoring, and
// commits the outcome atomically with the task and document transitions.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloudwise/docuproc/internal/config"
	"github.com/cloudwise/docuproc/internal/documents"
	"github.com/cloudwise/docuproc/internal/extraction"
	"github.com/cloudwise/docuproc/internal/matching"
	"github.com/cloudwise/docuproc/internal/notify"
	"github.com/cloudwise/docuproc/internal/results"
	"github.com/cloudwise/docuproc/internal/scoring"
	"github.com/cloudwise/docuproc/internal/tasks"
	"github.com/cloudwise/docuproc/pkg/lifecycle"
	"github.com/cloudwise/docuproc/pkg/storage"
)

// Pipeline owns the worker pool. Workers share the queue through atomic
// claims; the pool size is fixed for the process lifetime.
type Pipeline struct {
	db        *sql.DB
	documents documents.System
	results   results.System
	tasks     tasks.System
	storage   storage.System
	extractor extraction.Extractor
	matcher   matching.Engine
	notifier  notify.Notifier
	config    config.PipelineConfig
	scoring   scoring.Config
	logger    *slog.Logger
}

// New assembles a pipeline from its collaborators.
func New(
	db *sql.DB,
	docs documents.System,
	res results.System,
	queue tasks.System,
	store storage.System,
	extractor extraction.Extractor,
	matcher matching.Engine,
	notifier notify.Notifier,
	pipelineCfg config.PipelineConfig,
	scoringCfg config.ScoringConfig,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		db:        db,
		documents: docs,
		results:   res,
		tasks:     queue,
		storage:   store,
		extractor: extractor,
		matcher:   matcher,
		notifier:  notifier,
		config:    pipelineCfg,
		scoring: scoring.Config{
			Weights: scoring.Weights{
				Customer: scoringCfg.WeightCustomer,
				Policy:   scoringCfg.WeightPolicy,
				Invoice:  scoringCfg.WeightInvoice,
				Quality:  scoringCfg.WeightQuality,
			},
			ReviewThreshold: scoringCfg.ReviewThreshold,
			DimensionFloor:  scoringCfg.DimensionFloor,
		},
		logger: logger.With("system", "pipeline"),
	}
}

// Start launches the worker pool bound to the coordinator's context and
// registers a shutdown hook that waits for in-flight work to finish.
func (p *Pipeline) Start(lc *lifecycle.Coordinator) error {
	ctx := lc.Context()

	g, ctx := errgroup.WithContext(ctx)
	for i := range p.config.Workers {
		g.Go(func() error {
			p.worker(ctx, i)
			return nil
		})
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		g.Wait()
		p.logger.Info("pipeline stopped")
	})

	p.logger.Info(
		"pipeline started",
		"workers", p.config.Workers,
		"poll_interval", p.config.PollInterval,
		"lease_duration", p.config.LeaseDuration,
	)
	return nil
}

// worker polls the queue and drains it: after a successful claim it keeps
// claiming until the queue is empty, then falls back to the poll interval.
func (p *Pipeline) worker(ctx context.Context, id int) {
	logger := p.logger.With("worker", id)

	ticker := time.NewTicker(p.config.PollIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for ctx.Err() == nil {
			task, err := p.tasks.Claim(ctx, p.config.LeaseDurationDuration())
			if errors.Is(err, tasks.ErrNoTask) {
				break
			}
			if err != nil {
				logger.Error("claim failed", "error", err)
				break
			}

			p.process(ctx, logger, task)
		}
	}
}
