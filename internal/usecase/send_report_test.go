package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/titledoctor/pipeline-service/internal/domain/entity"
	"go.uber.org/zap"
)

func titlesBody(t *testing.T, job *entity.Job) []byte {
	t.Helper()
	body, err := json.Marshal(entity.TitlesReadyEvent{
		JobID:          job.ID,
		ChannelName:    job.ChannelName,
		Email:          job.Email,
		ImprovedTitles: job.ImprovedTitles,
	})
	require.NoError(t, err)
	return body
}

func generatedJob() *entity.Job {
	job := fetchedJob()
	job.Status = entity.JobStatusGeneratingTitles
	job.ImprovedTitles = improvedFor(job.Videos)
	return job
}

func TestSendReportCompletesJob(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	mailer := &fakeMailer{id: "re_abc123"}
	uc := NewSendReportUseCase(repo, pub, mailer, zap.NewNop(), time.Second)

	job := generatedJob()
	repo.put(job)

	require.NoError(t, uc.Execute(context.Background(), titlesBody(t, job)))

	stored := repo.get(job.ID)
	assert.Equal(t, entity.JobStatusCompleted, stored.Status)
	assert.Equal(t, "re_abc123", stored.EmailID)
	require.NotNil(t, stored.CompletedAt)

	require.Len(t, mailer.sends, 1)
	sent := mailer.sends[0]
	assert.Equal(t, "a@b.com", sent.to)
	assert.Equal(t, "New titles for Marques Brownlee", sent.subject)
	assert.Contains(t, sent.text, "Improved Titles for Marques Brownlee")
	for _, title := range job.ImprovedTitles {
		assert.Contains(t, sent.text, title.Improved)
		assert.Contains(t, sent.text, title.URL)
	}

	require.Equal(t, []string{entity.TopicEmailSent}, pub.topics())
	evt := pub.last().payload.(entity.EmailSentEvent)
	assert.Equal(t, job.ID, evt.JobID)
	assert.Equal(t, "re_abc123", evt.EmailID)
}

func TestSendReportMailerFailure(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	mailer := &fakeMailer{err: errors.New("resend: 429")}
	uc := NewSendReportUseCase(repo, pub, mailer, zap.NewNop(), time.Second)

	job := generatedJob()
	repo.put(job)

	require.NoError(t, uc.Execute(context.Background(), titlesBody(t, job)))

	stored := repo.get(job.ID)
	assert.Equal(t, entity.JobStatusFailed, stored.Status)
	assert.Equal(t, msgEmailFailed, stored.ErrorMessage)
	assert.Empty(t, stored.EmailID)

	// email.error keeps the failure notifier in the loop.
	require.Equal(t, []string{entity.TopicEmailError}, pub.topics())
	evt := pub.last().payload.(entity.FailureEvent)
	assert.Equal(t, job.ID, evt.JobID)
	assert.Equal(t, "a@b.com", evt.Email)
}

func TestSendReportMalformedPayloadEmitsInternal(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	mailer := &fakeMailer{}
	uc := NewSendReportUseCase(repo, pub, mailer, zap.NewNop(), time.Second)

	require.NoError(t, uc.Execute(context.Background(), []byte(`{"improvedTitles":[]}`)))

	assert.Empty(t, mailer.sends)
	assert.Equal(t, []string{entity.TopicInternalError}, pub.topics())
}

func TestSendReportRedeliveryAfterCompletionDoesNotResend(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	mailer := &fakeMailer{}
	uc := NewSendReportUseCase(repo, pub, mailer, zap.NewNop(), time.Second)

	job := generatedJob()
	repo.put(job)
	body := titlesBody(t, job)

	require.NoError(t, uc.Execute(context.Background(), body))
	require.Len(t, mailer.sends, 1)

	// The job is COMPLETED now; the duplicate must not email again.
	require.NoError(t, uc.Execute(context.Background(), body))
	assert.Len(t, mailer.sends, 1)
	assert.Equal(t, []string{entity.TopicEmailSent}, pub.topics())
}

func TestSendReportLostWriteDoesNotEmit(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	mailer := &fakeMailer{}
	uc := NewSendReportUseCase(repo, pub, mailer, zap.NewNop(), time.Second)

	job := generatedJob()
	repo.put(job)
	repo.conflictNext = true

	require.NoError(t, uc.Execute(context.Background(), titlesBody(t, job)))
	assert.Empty(t, pub.topics())
	assert.Empty(t, mailer.sends)
}

func TestReportEndsWithSignature(t *testing.T) {
	text := renderReport("Some Channel", improvedFor(sampleVideos(1)))
	assert.True(t, strings.HasSuffix(text, "-- YouTube Title Doctor\n"))
}
