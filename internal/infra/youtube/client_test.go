package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		RatePerSec: 1000,
		Timeout:    time.Second,
	})
}

const channelSearchBody = `{
	"items": [
		{"snippet": {"channelId": "UCBJycsmduvYEL83R_U4JriQ", "title": "Marques Brownlee"}},
		{"snippet": {"channelId": "UCother", "title": "Some Fan Channel"}}
	]
}`

func TestResolveChannelStripsHandlePrefix(t *testing.T) {
	var query string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "snippet", r.URL.Query().Get("part"))
		assert.Equal(t, "channel", r.URL.Query().Get("type"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(channelSearchBody))
	})

	ref, err := c.ResolveChannel(context.Background(), "@mkbhd")
	require.NoError(t, err)
	assert.Equal(t, "mkbhd", query)
	assert.Equal(t, "UCBJycsmduvYEL83R_U4JriQ", ref.ID)
	assert.Equal(t, "Marques Brownlee", ref.Name)
}

func TestResolveChannelPlainNameUsedVerbatim(t *testing.T) {
	var query string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		w.Write([]byte(channelSearchBody))
	})

	_, err := c.ResolveChannel(context.Background(), "Marques Brownlee")
	require.NoError(t, err)
	assert.Equal(t, "Marques Brownlee", query)
}

func TestResolveChannelNoHits(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	})

	_, err := c.ResolveChannel(context.Background(), "@doesnotexist")
	assert.ErrorIs(t, err, port.ErrChannelNotFound)
}

func TestRecentVideos(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "UCBJycsmduvYEL83R_U4JriQ", q.Get("channelId"))
		assert.Equal(t, "date", q.Get("order"))
		assert.Equal(t, "5", q.Get("maxResults"))
		w.Write([]byte(`{
			"items": [
				{
					"id": {"videoId": "dQw4w9WgXcQ"},
					"snippet": {
						"title": "Latest Upload",
						"publishedAt": "2026-08-20T10:00:00Z",
						"thumbnails": {"default": {"url": "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg"}}
					}
				},
				{
					"id": {"videoId": "abc123"},
					"snippet": {"title": "Older Upload", "publishedAt": "2026-08-10T10:00:00Z"}
				}
			]
		}`))
	})

	videos, err := c.RecentVideos(context.Background(), "UCBJycsmduvYEL83R_U4JriQ", 5)
	require.NoError(t, err)
	require.Len(t, videos, 2)

	assert.Equal(t, "dQw4w9WgXcQ", videos[0].VideoID)
	assert.Equal(t, "Latest Upload", videos[0].Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", videos[0].URL)
	assert.Equal(t, "2026-08-20T10:00:00Z", videos[0].PublishedAt)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg", videos[0].Thumbnail)

	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", videos[1].URL)
	assert.Empty(t, videos[1].Thumbnail)
}

func TestRecentVideosEmptyChannel(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	})

	videos, err := c.RecentVideos(context.Background(), "UCempty", 5)
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestSearchNon200(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"message": "quotaExceeded"}}`))
	})

	_, err := c.ResolveChannel(context.Background(), "@mkbhd")
	require.Error(t, err)
	assert.NotErrorIs(t, err, port.ErrChannelNotFound)
	assert.Contains(t, err.Error(), "status 403")
}
