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

// SendReportUseCase consumes titles.ready, renders the report, sends it
// to the requester, and closes the job as COMPLETED. Success is
// broadcast on email.sent; a send failure is broadcast on email.error so
// the failure notifier still fires.
type SendReportUseCase struct {
	repo        port.JobRepository
	publisher   port.EventPublisher
	mailer      port.Mailer
	logger      *zap.Logger
	callTimeout time.Duration
}

func NewSendReportUseCase(
	repo port.JobRepository,
	publisher port.EventPublisher,
	mailer port.Mailer,
	logger *zap.Logger,
	callTimeout time.Duration,
) *SendReportUseCase {
	return &SendReportUseCase{
		repo:        repo,
		publisher:   publisher,
		mailer:      mailer,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

func (uc *SendReportUseCase) Execute(ctx context.Context, body []byte) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "SendReport.Execute")
	defer span.End()
	start := time.Now()

	var evt entity.TitlesReadyEvent
	if err := json.Unmarshal(body, &evt); err != nil || evt.JobID == uuid.Nil || evt.Email == "" {
		emitInternal(ctx, uc.publisher, evt.JobID, evt.Email, "malformed titles.ready payload", uc.logger)
		metrics.StageProcessedTotal.WithLabelValues("send_report", "internal").Inc()
		return nil
	}

	span.SetAttributes(attribute.String("job.id", evt.JobID.String()))
	log := uc.logger.With(zap.String("job_id", evt.JobID.String()), zap.Int("title_count", len(evt.ImprovedTitles)))
	log.Info("sending report email")

	job, err := loadAndAdvance(ctx, uc.repo, evt.JobID, entity.JobStatusSendingEmail, log)
	if err != nil {
		if errors.Is(err, port.ErrJobNotFound) {
			emitInternal(ctx, uc.publisher, evt.JobID, evt.Email, "no job record for titles.ready", log)
			metrics.StageProcessedTotal.WithLabelValues("send_report", "internal").Inc()
			return nil
		}
		return err
	}
	if job == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()

	text := renderReport(evt.ChannelName, evt.ImprovedTitles)
	emailID, err := uc.mailer.Send(callCtx, job.Email, reportSubject(evt.ChannelName), text)
	if err != nil {
		log.Error("report email failed", zap.Error(err))
		metrics.StageProcessedTotal.WithLabelValues("send_report", "error").Inc()
		return failJob(ctx, uc.repo, uc.publisher, job, entity.TopicEmailError, msgEmailFailed, log)
	}

	if err := job.MarkCompleted(emailID); err != nil {
		log.Warn("cannot complete job", zap.Error(err))
		return nil
	}
	if ok, err := writeJob(ctx, uc.repo, job, log); err != nil || !ok {
		return err
	}

	err = uc.publisher.Emit(ctx, entity.TopicEmailSent, entity.EmailSentEvent{
		JobID:   job.ID,
		Email:   job.Email,
		EmailID: emailID,
	})
	if err != nil {
		return err
	}

	metrics.EmailsSentTotal.WithLabelValues("report").Inc()
	metrics.StageProcessedTotal.WithLabelValues("send_report", "success").Inc()
	metrics.StageDuration.WithLabelValues("send_report").Observe(time.Since(start).Seconds())
	log.Info("job completed", zap.String("email_id", emailID))
	return nil
}
