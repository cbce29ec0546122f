package port

import (
	"context"
	"errors"

	"github.com/titledoctor/pipeline-service/internal/domain/entity"
)

// ErrChannelNotFound reports the not-found domain outcome: the search
// returned no channel at all. It is not an integration failure.
var ErrChannelNotFound = errors.New("channel not found")

// ChannelDirectory is the video platform's search surface.
type ChannelDirectory interface {
	// ResolveChannel turns a handle ("@name") or plain search term into
	// a channel id and display name, taking the first search result.
	ResolveChannel(ctx context.Context, query string) (*entity.ChannelRef, error)
	// RecentVideos lists up to max videos for the channel, newest first.
	// An empty slice is a valid response; the caller decides what an
	// empty channel means.
	RecentVideos(ctx context.Context, channelID string, max int) ([]entity.Video, error)
}
