// Package usecase holds one handler per pipeline stage. Every stage
// follows the same contract: consume one event, write the in-progress
// status before the external call, then write the outcome and emit
// exactly one follow-on event — the next success topic or the stage's
// error topic, never both, never neither.
package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/titledoctor/pipeline-service/internal/domain/entity"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
	"github.com/titledoctor/pipeline-service/internal/infra/metrics"
	"go.uber.org/zap"
)

// User-facing failure texts. The specific upstream error is logged, not
// forwarded.
const (
	msgChannelNotFound = "Channel not found"
	msgResolveFailed   = "Failed to resolve channel, please try again later."
	msgNoVideos        = "No videos found for this channel"
	msgFetchFailed     = "Failed to fetch videos, please try again later."
	msgTitlesFailed    = "Failed to generate improved titles, please try again later."
	msgEmailFailed     = "Failed to send the report email, please try again later."
)

// loadAndAdvance loads the job and writes the stage's in-progress status
// before any external work, so an observer reading the record after the
// follow-on event always sees a status consistent with or ahead of it.
// A (nil, nil) return means the delivery must be dropped without any
// emission: the job is already terminal, the event is stale relative to
// the record, or the conditional write lost to a concurrent execution.
func loadAndAdvance(ctx context.Context, repo port.JobRepository, id uuid.UUID, next entity.JobStatus, log *zap.Logger) (*entity.Job, error) {
	job, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		log.Warn("dropping event for terminal job", zap.String("status", string(job.Status)))
		return nil, nil
	}
	if err := job.Advance(next); err != nil {
		log.Warn("dropping stale event", zap.Error(err))
		return nil, nil
	}
	ok, err := writeJob(ctx, repo, job, log)
	if err != nil || !ok {
		return nil, err
	}
	return job, nil
}

// writeJob persists the record conditionally on its loaded version.
// A lost write is not an error: the delivery that lost simply emits
// nothing, which keeps duplicate deliveries harmless.
func writeJob(ctx context.Context, repo port.JobRepository, job *entity.Job, log *zap.Logger) (bool, error) {
	err := repo.Update(ctx, job)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, port.ErrVersionConflict) {
		metrics.VersionConflictsTotal.Inc()
		log.Warn("lost conditional write, dropping delivery")
		return false, nil
	}
	return false, err
}

// failJob writes FAILED with the user-facing message and emits the
// stage's error event, in that order.
func failJob(ctx context.Context, repo port.JobRepository, pub port.EventPublisher, job *entity.Job, topic, userMsg string, log *zap.Logger) error {
	if err := job.MarkFailed(userMsg); err != nil {
		log.Warn("cannot fail terminal job", zap.Error(err))
		return nil
	}
	ok, err := writeJob(ctx, repo, job, log)
	if err != nil || !ok {
		return err
	}
	err = pub.Emit(ctx, topic, entity.FailureEvent{
		JobID: job.ID,
		Email: job.Email,
		Error: userMsg,
	})
	if err != nil {
		return err
	}
	log.Info("job failed", zap.String("topic", topic), zap.String("reason", userMsg))
	return nil
}

// emitInternal reports an orchestration bug (malformed payload, vanished
// job record) on pipeline.internal with whatever fields were recovered.
// Best-effort: a broken bus only gets logged, the pipeline must never
// stall silently on these.
func emitInternal(ctx context.Context, pub port.EventPublisher, jobID uuid.UUID, email, cause string, log *zap.Logger) {
	log.Error("orchestration error", zap.String("cause", cause))
	err := pub.Emit(ctx, entity.TopicInternalError, entity.FailureEvent{
		JobID: jobID,
		Email: email,
		Error: cause,
	})
	if err != nil {
		log.Error("failed to emit internal error event", zap.Error(err))
	}
}
