package usecase

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/titledoctor/pipeline-service/internal/domain/entity"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
	"github.com/titledoctor/pipeline-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// emailPattern is the local@domain.tld shape required at intake, and it
// is actually matched against the input.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidationError rejects a submission synchronously; no job record is
// created for it.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SubmitUseCase is the intake stage: validate, create the Queued job,
// emit channel.submit. It acknowledges without waiting for the pipeline.
type SubmitUseCase struct {
	repo      port.JobRepository
	publisher port.EventPublisher
	logger    *zap.Logger
}

func NewSubmitUseCase(repo port.JobRepository, publisher port.EventPublisher, logger *zap.Logger) *SubmitUseCase {
	return &SubmitUseCase{repo: repo, publisher: publisher, logger: logger}
}

func (uc *SubmitUseCase) Execute(ctx context.Context, channel, email string) (*entity.Job, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "Submit.Execute")
	defer span.End()
	start := time.Now()

	if channel == "" || email == "" {
		return nil, &ValidationError{Message: "missing required fields: channel and email"}
	}
	if !emailPattern.MatchString(email) {
		return nil, &ValidationError{Message: "invalid email format"}
	}

	job := entity.NewJob(channel, email)
	span.SetAttributes(attribute.String("job.id", job.ID.String()))
	log := uc.logger.With(zap.String("job_id", job.ID.String()), zap.String("channel", channel))

	if err := uc.repo.Create(ctx, job); err != nil {
		log.Error("failed to create job record", zap.Error(err))
		return nil, fmt.Errorf("create job: %w", err)
	}

	err := uc.publisher.Emit(ctx, entity.TopicChannelSubmit, entity.ChannelSubmitEvent{
		JobID:   job.ID,
		Channel: channel,
		Email:   email,
	})
	if err != nil {
		// The Queued record exists but the pipeline never starts; the
		// sweeper will fail it once it goes stale.
		log.Error("failed to emit channel.submit", zap.Error(err))
		return nil, fmt.Errorf("emit channel.submit: %w", err)
	}

	metrics.JobsSubmittedTotal.Inc()
	metrics.StageDuration.WithLabelValues("submit").Observe(time.Since(start).Seconds())
	log.Info("job created")
	return job, nil
}
