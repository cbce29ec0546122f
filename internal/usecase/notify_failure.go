package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/titledoctor/pipeline-service/internal/domain/entity"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
	"github.com/titledoctor/pipeline-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// NotifyFailureUseCase is the terminal sink for every error topic. It
// sends the fixed failure email and never re-raises: its own failures
// are logged and dropped. It does not touch the job record; the emitting
// stage already wrote FAILED.
type NotifyFailureUseCase struct {
	publisher   port.EventPublisher
	mailer      port.Mailer
	logger      *zap.Logger
	callTimeout time.Duration
}

func NewNotifyFailureUseCase(
	publisher port.EventPublisher,
	mailer port.Mailer,
	logger *zap.Logger,
	callTimeout time.Duration,
) *NotifyFailureUseCase {
	return &NotifyFailureUseCase{
		publisher:   publisher,
		mailer:      mailer,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

func (uc *NotifyFailureUseCase) Execute(ctx context.Context, body []byte) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "NotifyFailure.Execute")
	defer span.End()

	var evt entity.FailureEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		uc.logger.Error("malformed failure payload, dropping", zap.Error(err))
		metrics.StageProcessedTotal.WithLabelValues("notify_failure", "dropped").Inc()
		return nil
	}

	log := uc.logger.With(zap.String("job_id", evt.JobID.String()))
	if evt.Email == "" {
		log.Warn("failure event without recipient, dropping")
		metrics.StageProcessedTotal.WithLabelValues("notify_failure", "dropped").Inc()
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()

	emailID, err := uc.mailer.Send(callCtx, evt.Email, failureSubject, failureBody)
	if err != nil {
		log.Error("failure email could not be sent", zap.Error(err))
		metrics.StageProcessedTotal.WithLabelValues("notify_failure", "error").Inc()
		return nil
	}

	err = uc.publisher.Emit(ctx, entity.TopicErrorNotified, entity.ErrorNotifiedEvent{
		JobID:   evt.JobID,
		Email:   evt.Email,
		EmailID: emailID,
	})
	if err != nil {
		log.Error("failed to emit error.notified", zap.Error(err))
	}

	metrics.EmailsSentTotal.WithLabelValues("failure").Inc()
	metrics.StageProcessedTotal.WithLabelValues("notify_failure", "success").Inc()
	log.Info("failure notification sent", zap.String("email_id", emailID))
	return nil
}
