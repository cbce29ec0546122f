package entity

import "github.com/google/uuid"

// Event topics. Each stage subscribes to exactly one success topic and
// emits exactly one of its success or error topic per received event.
// The failure notifier fans in every error topic plus pipeline.internal,
// which carries orchestration bugs (malformed payloads, stale jobs)
// rather than domain failures.
const (
	TopicChannelSubmit   = "channel.submit"
	TopicChannelResolved = "channel.resolved"
	TopicChannelError    = "channel.error"
	TopicVideosFetched   = "videos.fetched"
	TopicVideosError     = "videos.error"
	TopicTitlesReady     = "titles.ready"
	TopicTitlesError     = "titles.error"
	TopicEmailSent       = "email.sent"
	TopicEmailError      = "email.error"
	TopicInternalError   = "pipeline.internal"
	TopicErrorNotified   = "error.notified"
)

// ChannelSubmitEvent starts the pipeline for a freshly created job.
type ChannelSubmitEvent struct {
	JobID   uuid.UUID `json:"jobId"`
	Channel string    `json:"channel"`
	Email   string    `json:"email"`
}

type ChannelResolvedEvent struct {
	JobID       uuid.UUID `json:"jobId"`
	ChannelID   string    `json:"channelId"`
	ChannelName string    `json:"channelName"`
	Email       string    `json:"email"`
}

type VideosFetchedEvent struct {
	JobID       uuid.UUID `json:"jobId"`
	ChannelName string    `json:"channelName"`
	Videos      []Video   `json:"videos"`
	Email       string    `json:"email"`
}

type TitlesReadyEvent struct {
	JobID          uuid.UUID       `json:"jobId"`
	ChannelName    string          `json:"channelName"`
	Email          string          `json:"email"`
	ImprovedTitles []ImprovedTitle `json:"improvedTitles"`
}

type EmailSentEvent struct {
	JobID   uuid.UUID `json:"jobId"`
	Email   string    `json:"email"`
	EmailID string    `json:"emailId"`
}

// FailureEvent is the payload of every *.error topic and of
// pipeline.internal. For internal errors the fields are best-effort:
// whatever could be recovered from the malformed payload.
type FailureEvent struct {
	JobID uuid.UUID `json:"jobId,omitempty"`
	Email string    `json:"email,omitempty"`
	Error string    `json:"error,omitempty"`
}

// ErrorNotifiedEvent closes the pipeline after a failure email.
type ErrorNotifiedEvent struct {
	JobID   uuid.UUID `json:"jobId,omitempty"`
	Email   string    `json:"email,omitempty"`
	EmailID string    `json:"emailId,omitempty"`
}
