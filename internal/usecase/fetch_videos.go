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

// FetchVideosUseCase consumes channel.resolved and lists the channel's
// most recent videos, newest first, capped at maxVideos. A channel with
// zero videos is a not-found outcome, not an empty success.
type FetchVideosUseCase struct {
	repo        port.JobRepository
	publisher   port.EventPublisher
	directory   port.ChannelDirectory
	logger      *zap.Logger
	maxVideos   int
	callTimeout time.Duration
}

func NewFetchVideosUseCase(
	repo port.JobRepository,
	publisher port.EventPublisher,
	directory port.ChannelDirectory,
	logger *zap.Logger,
	maxVideos int,
	callTimeout time.Duration,
) *FetchVideosUseCase {
	return &FetchVideosUseCase{
		repo:        repo,
		publisher:   publisher,
		directory:   directory,
		logger:      logger,
		maxVideos:   maxVideos,
		callTimeout: callTimeout,
	}
}

func (uc *FetchVideosUseCase) Execute(ctx context.Context, body []byte) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "FetchVideos.Execute")
	defer span.End()
	start := time.Now()

	var evt entity.ChannelResolvedEvent
	if err := json.Unmarshal(body, &evt); err != nil || evt.JobID == uuid.Nil || evt.Email == "" {
		emitInternal(ctx, uc.publisher, evt.JobID, evt.Email, "malformed channel.resolved payload", uc.logger)
		metrics.StageProcessedTotal.WithLabelValues("fetch_videos", "internal").Inc()
		return nil
	}

	span.SetAttributes(attribute.String("job.id", evt.JobID.String()))
	log := uc.logger.With(zap.String("job_id", evt.JobID.String()), zap.String("channel_id", evt.ChannelID))
	log.Info("fetching recent videos")

	job, err := loadAndAdvance(ctx, uc.repo, evt.JobID, entity.JobStatusFetchingVideos, log)
	if err != nil {
		if errors.Is(err, port.ErrJobNotFound) {
			emitInternal(ctx, uc.publisher, evt.JobID, evt.Email, "no job record for channel.resolved", log)
			metrics.StageProcessedTotal.WithLabelValues("fetch_videos", "internal").Inc()
			return nil
		}
		return err
	}
	if job == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()

	videos, err := uc.directory.RecentVideos(callCtx, evt.ChannelID, uc.maxVideos)
	if err != nil {
		log.Error("video fetch failed", zap.Error(err))
		metrics.StageProcessedTotal.WithLabelValues("fetch_videos", "error").Inc()
		return failJob(ctx, uc.repo, uc.publisher, job, entity.TopicVideosError, msgFetchFailed, log)
	}
	if len(videos) == 0 {
		log.Info("no videos found for channel")
		metrics.StageProcessedTotal.WithLabelValues("fetch_videos", "not_found").Inc()
		return failJob(ctx, uc.repo, uc.publisher, job, entity.TopicVideosError, msgNoVideos, log)
	}

	job.Videos = videos
	if ok, err := writeJob(ctx, uc.repo, job, log); err != nil || !ok {
		return err
	}

	err = uc.publisher.Emit(ctx, entity.TopicVideosFetched, entity.VideosFetchedEvent{
		JobID:       job.ID,
		ChannelName: evt.ChannelName,
		Videos:      videos,
		Email:       job.Email,
	})
	if err != nil {
		return err
	}

	metrics.StageProcessedTotal.WithLabelValues("fetch_videos", "success").Inc()
	metrics.StageDuration.WithLabelValues("fetch_videos").Observe(time.Since(start).Seconds())
	log.Info("videos fetched", zap.Int("video_count", len(videos)))
	return nil
}
