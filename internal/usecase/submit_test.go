package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/titledoctor/pipeline-service/internal/domain/entity"
	"go.uber.org/zap"
)

func TestSubmitCreatesQueuedJobAndEmitsEvent(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	uc := NewSubmitUseCase(repo, pub, zap.NewNop())

	job, err := uc.Execute(context.Background(), "@mkbhd", "a@b.com")
	require.NoError(t, err)

	stored := repo.get(job.ID)
	assert.Equal(t, entity.JobStatusQueued, stored.Status)
	assert.Equal(t, "@mkbhd", stored.Channel)
	assert.Equal(t, "a@b.com", stored.Email)

	require.Equal(t, []string{entity.TopicChannelSubmit}, pub.topics())
	evt := pub.last().payload.(entity.ChannelSubmitEvent)
	assert.Equal(t, job.ID, evt.JobID)
	assert.Equal(t, "@mkbhd", evt.Channel)
	assert.Equal(t, "a@b.com", evt.Email)
}

func TestSubmitJobIDsAreUnique(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	uc := NewSubmitUseCase(repo, pub, zap.NewNop())

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		job, err := uc.Execute(context.Background(), "@mkbhd", "a@b.com")
		require.NoError(t, err)
		require.False(t, seen[job.ID.String()], "duplicate job id")
		seen[job.ID.String()] = true
	}
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	uc := NewSubmitUseCase(repo, pub, zap.NewNop())

	for _, tc := range []struct{ channel, email string }{
		{"", "a@b.com"},
		{"@mkbhd", ""},
		{"", ""},
	} {
		_, err := uc.Execute(context.Background(), tc.channel, tc.email)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	}

	assert.Zero(t, repo.count(), "no job record may exist for a rejected submission")
	assert.Empty(t, pub.topics())
}

func TestSubmitRejectsMalformedEmail(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	uc := NewSubmitUseCase(repo, pub, zap.NewNop())

	for _, email := range []string{
		"not-an-email",
		"a@b",
		"a b@c.com",
		"@c.com",
		"a@",
	} {
		_, err := uc.Execute(context.Background(), "@mkbhd", email)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "email %q should be rejected", email)
	}

	assert.Zero(t, repo.count())
	assert.Empty(t, pub.topics())
}

func TestSubmitAcceptsPlainChannelName(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	uc := NewSubmitUseCase(repo, pub, zap.NewNop())

	job, err := uc.Execute(context.Background(), "Marques Brownlee", "user@example.org")
	require.NoError(t, err)
	assert.Equal(t, "Marques Brownlee", repo.get(job.ID).Channel)
}
