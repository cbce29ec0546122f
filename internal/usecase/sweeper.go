package usecase

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
	"github.com/titledoctor/pipeline-service/internal/infra/metrics"
	"go.uber.org/zap"
)

// Sweeper fails jobs stuck in a non-terminal state past the stale
// deadline, typically because an external call hung or an event was
// lost, and reports them on pipeline.internal so the failure email
// still goes out instead of the job stalling invisibly.
type Sweeper struct {
	repo       port.JobRepository
	publisher  port.EventPublisher
	logger     *zap.Logger
	staleAfter time.Duration
}

func NewSweeper(repo port.JobRepository, publisher port.EventPublisher, logger *zap.Logger, staleAfter time.Duration) *Sweeper {
	return &Sweeper{
		repo:       repo,
		publisher:  publisher,
		logger:     logger,
		staleAfter: staleAfter,
	}
}

// Start schedules periodic sweeps. The returned cron is already running;
// stop it on shutdown.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) *cron.Cron {
	c := cron.New()
	c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		if err := s.Run(ctx); err != nil {
			s.logger.Error("sweep failed", zap.Error(err))
		}
	}))
	c.Start()
	return c
}

// Run performs one sweep.
func (s *Sweeper) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.staleAfter)
	jobs, err := s.repo.ListStale(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		log := s.logger.With(zap.String("job_id", job.ID.String()), zap.String("status", string(job.Status)))

		if err := job.MarkFailed("processing timed out"); err != nil {
			continue
		}
		ok, err := writeJob(ctx, s.repo, job, log)
		if err != nil {
			log.Error("failed to reap stale job", zap.Error(err))
			continue
		}
		if !ok {
			// Someone touched the record since the stale listing; it
			// is making progress after all.
			continue
		}

		emitInternal(ctx, s.publisher, job.ID, job.Email, "processing timed out", log)
		metrics.StaleJobsReapedTotal.Inc()
		log.Warn("stale job reaped")
	}
	return nil
}
