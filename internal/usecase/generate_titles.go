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

// GenerateTitlesUseCase consumes videos.fetched and asks the generative
// model for one improved title per video. The batch is all-or-nothing:
// any parse or correlation failure fails the whole job.
type GenerateTitlesUseCase struct {
	repo        port.JobRepository
	publisher   port.EventPublisher
	generator   port.TitleGenerator
	logger      *zap.Logger
	callTimeout time.Duration
}

func NewGenerateTitlesUseCase(
	repo port.JobRepository,
	publisher port.EventPublisher,
	generator port.TitleGenerator,
	logger *zap.Logger,
	callTimeout time.Duration,
) *GenerateTitlesUseCase {
	return &GenerateTitlesUseCase{
		repo:        repo,
		publisher:   publisher,
		generator:   generator,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

func (uc *GenerateTitlesUseCase) Execute(ctx context.Context, body []byte) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "GenerateTitles.Execute")
	defer span.End()
	start := time.Now()

	var evt entity.VideosFetchedEvent
	if err := json.Unmarshal(body, &evt); err != nil || evt.JobID == uuid.Nil || evt.Email == "" {
		emitInternal(ctx, uc.publisher, evt.JobID, evt.Email, "malformed videos.fetched payload", uc.logger)
		metrics.StageProcessedTotal.WithLabelValues("generate_titles", "internal").Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", evt.JobID.String()),
		attribute.Int("video.count", len(evt.Videos)),
	)
	log := uc.logger.With(zap.String("job_id", evt.JobID.String()), zap.Int("video_count", len(evt.Videos)))
	log.Info("generating improved titles")

	job, err := loadAndAdvance(ctx, uc.repo, evt.JobID, entity.JobStatusGeneratingTitles, log)
	if err != nil {
		if errors.Is(err, port.ErrJobNotFound) {
			emitInternal(ctx, uc.publisher, evt.JobID, evt.Email, "no job record for videos.fetched", log)
			metrics.StageProcessedTotal.WithLabelValues("generate_titles", "internal").Inc()
			return nil
		}
		return err
	}
	if job == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()

	titles, err := uc.generator.ImproveTitles(callCtx, evt.ChannelName, evt.Videos)
	if err != nil {
		log.Error("title generation failed", zap.Error(err))
		metrics.StageProcessedTotal.WithLabelValues("generate_titles", "error").Inc()
		return failJob(ctx, uc.repo, uc.publisher, job, entity.TopicTitlesError, msgTitlesFailed, log)
	}

	job.ImprovedTitles = titles
	if ok, err := writeJob(ctx, uc.repo, job, log); err != nil || !ok {
		return err
	}

	err = uc.publisher.Emit(ctx, entity.TopicTitlesReady, entity.TitlesReadyEvent{
		JobID:          job.ID,
		ChannelName:    evt.ChannelName,
		Email:          job.Email,
		ImprovedTitles: titles,
	})
	if err != nil {
		return err
	}

	metrics.StageProcessedTotal.WithLabelValues("generate_titles", "success").Inc()
	metrics.StageDuration.WithLabelValues("generate_titles").Observe(time.Since(start).Seconds())
	log.Info("titles generated", zap.Int("title_count", len(titles)))
	return nil
}
