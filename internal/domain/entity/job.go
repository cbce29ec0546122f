package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusQueued           JobStatus = "QUEUED"
	JobStatusResolvingChannel JobStatus = "RESOLVING_CHANNEL"
	JobStatusFetchingVideos   JobStatus = "FETCHING_VIDEOS"
	JobStatusGeneratingTitles JobStatus = "GENERATING_TITLES"
	JobStatusSendingEmail     JobStatus = "SENDING_EMAIL"
	JobStatusCompleted        JobStatus = "COMPLETED"
	JobStatusFailed           JobStatus = "FAILED"
)

// allowedTransitions is the forward edge set of the lifecycle. FAILED is
// reachable from every non-terminal state and handled in MarkFailed.
var allowedTransitions = map[JobStatus]JobStatus{
	JobStatusQueued:           JobStatusResolvingChannel,
	JobStatusResolvingChannel: JobStatusFetchingVideos,
	JobStatusFetchingVideos:   JobStatusGeneratingTitles,
	JobStatusGeneratingTitles: JobStatusSendingEmail,
	JobStatusSendingEmail:     JobStatusCompleted,
}

// Job is the single mutable record of one submission, tracked from intake
// to completion or failure. Version is the optimistic-concurrency token:
// every store write is conditional on it, so a stale or duplicate stage
// execution loses the write instead of silently clobbering the record.
type Job struct {
	ID             uuid.UUID       `json:"jobId"`
	Channel        string          `json:"channel"`
	Email          string          `json:"email"`
	Status         JobStatus       `json:"status"`
	ErrorMessage   string          `json:"error,omitempty"`
	ChannelID      string          `json:"channelId,omitempty"`
	ChannelName    string          `json:"channelName,omitempty"`
	Videos         []Video         `json:"videos,omitempty"`
	ImprovedTitles []ImprovedTitle `json:"improvedTitles,omitempty"`
	EmailID        string          `json:"emailId,omitempty"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
}

func NewJob(channel, email string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.New(),
		Channel:   channel,
		Email:     email,
		Status:    JobStatusQueued,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Advance moves the job to the next lifecycle state. Only the single
// forward edge from the current state is legal; terminal states never
// transition again.
func (j *Job) Advance(next JobStatus) error {
	if j.Terminal() {
		return fmt.Errorf("job %s is terminal (%s)", j.ID, j.Status)
	}
	if allowedTransitions[j.Status] != next {
		return fmt.Errorf("illegal transition %s -> %s for job %s", j.Status, next, j.ID)
	}
	j.Status = next
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (j *Job) MarkFailed(errMsg string) error {
	if j.Terminal() {
		return fmt.Errorf("job %s is terminal (%s)", j.ID, j.Status)
	}
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (j *Job) MarkCompleted(emailID string) error {
	if err := j.Advance(JobStatusCompleted); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.EmailID = emailID
	j.CompletedAt = &now
	return nil
}
