// Package youtube wraps the YouTube Data API v3 search endpoint for the
// two lookups the pipeline needs: channel resolution and recent videos.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/titledoctor/pipeline-service/internal/domain/entity"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type ClientConfig struct {
	APIKey string
	// BaseURL overrides the Google endpoint, used by tests.
	BaseURL string
	// RatePerSec caps outbound search calls across all jobs.
	RatePerSec float64
	Timeout    time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 5
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			ChannelID   string `json:"channelId"`
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			Thumbnails  struct {
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// ResolveChannel searches for the channel and takes the first hit. A
// handle ("@name") is queried without its prefix; anything else is used
// verbatim as a search term. No hits at all is ErrChannelNotFound.
func (c *Client) ResolveChannel(ctx context.Context, query string) (*entity.ChannelRef, error) {
	term := strings.TrimPrefix(query, "@")

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "channel")
	params.Set("q", term)

	var res searchResponse
	if err := c.search(ctx, params, &res); err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, port.ErrChannelNotFound
	}

	return &entity.ChannelRef{
		ID:   res.Items[0].Snippet.ChannelID,
		Name: res.Items[0].Snippet.Title,
	}, nil
}

// RecentVideos lists up to max videos for the channel, newest first.
func (c *Client) RecentVideos(ctx context.Context, channelID string, max int) ([]entity.Video, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("channelId", channelID)
	params.Set("order", "date")
	params.Set("maxResults", strconv.Itoa(max))

	var res searchResponse
	if err := c.search(ctx, params, &res); err != nil {
		return nil, err
	}

	videos := make([]entity.Video, 0, len(res.Items))
	for _, item := range res.Items {
		videos = append(videos, entity.Video{
			VideoID:     item.ID.VideoID,
			Title:       item.Snippet.Title,
			URL:         "https://www.youtube.com/watch?v=" + item.ID.VideoID,
			PublishedAt: item.Snippet.PublishedAt,
			Thumbnail:   item.Snippet.Thumbnails.Default.URL,
		})
	}
	return videos, nil
}

func (c *Client) search(ctx context.Context, params url.Values, out *searchResponse) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("youtube search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("youtube search: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}
