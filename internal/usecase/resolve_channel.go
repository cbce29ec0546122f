package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/titledoctor/pipeline-service/internal/domain/entity"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
	"github.com/titledoctor/pipeline-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ResolveChannelUseCase consumes channel.submit and turns the submitted
// handle or search term into a channel id and display name.
type ResolveChannelUseCase struct {
	repo        port.JobRepository
	publisher   port.EventPublisher
	directory   port.ChannelDirectory
	logger      *zap.Logger
	callTimeout time.Duration
}

func NewResolveChannelUseCase(
	repo port.JobRepository,
	publisher port.EventPublisher,
	directory port.ChannelDirectory,
	logger *zap.Logger,
	callTimeout time.Duration,
) *ResolveChannelUseCase {
	return &ResolveChannelUseCase{
		repo:        repo,
		publisher:   publisher,
		directory:   directory,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

func (uc *ResolveChannelUseCase) Execute(ctx context.Context, body []byte) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "ResolveChannel.Execute")
	defer span.End()
	start := time.Now()

	var evt entity.ChannelSubmitEvent
	if err := json.Unmarshal(body, &evt); err != nil || evt.JobID == uuid.Nil || evt.Email == "" {
		emitInternal(ctx, uc.publisher, evt.JobID, evt.Email, "malformed channel.submit payload", uc.logger)
		metrics.StageProcessedTotal.WithLabelValues("resolve_channel", "internal").Inc()
		return nil
	}

	span.SetAttributes(attribute.String("job.id", evt.JobID.String()))
	log := uc.logger.With(zap.String("job_id", evt.JobID.String()), zap.String("channel", evt.Channel))
	log.Info("resolving channel")

	job, err := loadAndAdvance(ctx, uc.repo, evt.JobID, entity.JobStatusResolvingChannel, log)
	if err != nil {
		if errors.Is(err, port.ErrJobNotFound) {
			emitInternal(ctx, uc.publisher, evt.JobID, evt.Email, "no job record for channel.submit", log)
			metrics.StageProcessedTotal.WithLabelValues("resolve_channel", "internal").Inc()
			return nil
		}
		return err
	}
	if job == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()

	ch, err := uc.directory.ResolveChannel(callCtx, evt.Channel)
	switch {
	case errors.Is(err, port.ErrChannelNotFound):
		log.Info("channel not found")
		metrics.StageProcessedTotal.WithLabelValues("resolve_channel", "not_found").Inc()
		return failJob(ctx, uc.repo, uc.publisher, job, entity.TopicChannelError, msgChannelNotFound, log)
	case err != nil:
		log.Error("channel resolution failed", zap.Error(err))
		metrics.StageProcessedTotal.WithLabelValues("resolve_channel", "error").Inc()
		return failJob(ctx, uc.repo, uc.publisher, job, entity.TopicChannelError, msgResolveFailed, log)
	}

	job.ChannelID = ch.ID
	job.ChannelName = ch.Name
	if ok, err := writeJob(ctx, uc.repo, job, log); err != nil || !ok {
		return err
	}

	err = uc.publisher.Emit(ctx, entity.TopicChannelResolved, entity.ChannelResolvedEvent{
		JobID:       job.ID,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		Email:       job.Email,
	})
	if err != nil {
		return err
	}

	metrics.StageProcessedTotal.WithLabelValues("resolve_channel", "success").Inc()
	metrics.StageDuration.WithLabelValues("resolve_channel").Observe(time.Since(start).Seconds())
	log.Info("channel resolved", zap.String("channel_id", ch.ID), zap.String("channel_name", ch.Name))
	return nil
}
