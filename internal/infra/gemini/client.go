// Package gemini calls the generateContent endpoint and parses the
// model's structured title suggestions. The prompt makes the model echo
// each video's id so suggestions are joined back by key, never by array
// position.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/titledoctor/pipeline-service/internal/domain/entity"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

type Client struct {
	apiKey      string
	model       string
	temperature float64
	baseURL     string
	httpClient  *http.Client
}

type ClientConfig struct {
	APIKey string
	Model  string
	// Temperature is the creativity knob passed straight through.
	Temperature float64
	// BaseURL overrides the Google endpoint, used by tests.
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		baseURL:     strings.TrimRight(base, "/"),
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type promptPart struct {
	Text string `json:"text"`
}

type promptContent struct {
	Role  string       `json:"role"`
	Parts []promptPart `json:"parts"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []promptContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type suggestedTitle struct {
	VideoID   string `json:"videoId"`
	Original  string `json:"original"`
	Improved  string `json:"improved"`
	Rationale string `json:"rationale"`
}

type suggestionDoc struct {
	Titles []suggestedTitle `json:"titles"`
}

func (c *Client) ImproveTitles(ctx context.Context, channelName string, videos []entity.Video) ([]entity.ImprovedTitle, error) {
	req := generateRequest{
		Contents: []promptContent{{
			Role:  "user",
			Parts: []promptPart{{Text: buildPrompt(channelName, videos)}},
		}},
		GenerationConfig: generationConfig{Temperature: c.temperature},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read generate response: %w", err)
	}

	var gen generateResponse
	if err := json.Unmarshal(raw, &gen); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := "unknown model error"
		if gen.Error != nil && gen.Error.Message != "" {
			msg = gen.Error.Message
		}
		return nil, fmt.Errorf("generate content: status %d: %s", resp.StatusCode, msg)
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("generate content: empty candidate set")
	}

	return parseSuggestions(gen.Candidates[0].Content.Parts[0].Text, videos)
}

func buildPrompt(channelName string, videos []entity.Video) string {
	var lines strings.Builder
	for _, v := range videos {
		fmt.Fprintf(&lines, "- id: %s, title: %q\n", v.VideoID, v.Title)
	}

	return fmt.Sprintf(`You are a YouTube SEO and engagement expert who helps creators write better video titles.

Below are %d video titles from the channel %q.

For each title, provide:
1. An improved version that is more engaging, SEO-friendly, and likely to get more clicks
2. A brief rationale (1-2 sentences) explaining why the improved title is better

Guidelines:
- Keep the core topic and authenticity
- Use action verbs, numbers, and specific value propositions
- Make it curiosity-inducing without being clickbait
- Optimize for searchability and clarity

Videos:
%s
Respond with only a JSON object of this exact shape, one entry per input video, each carrying the id of the video it refers to:
{
  "titles": [
    {
      "videoId": "...",
      "original": "...",
      "improved": "...",
      "rationale": "..."
    }
  ]
}`, len(videos), channelName, lines.String())
}

// parseSuggestions decodes the model text and joins each suggestion to
// its input video by videoId. Any missing, unknown, duplicate, or
// incomplete entry fails the whole batch; there is no partial result.
func parseSuggestions(text string, videos []entity.Video) ([]entity.ImprovedTitle, error) {
	var doc suggestionDoc
	if err := json.Unmarshal([]byte(stripFences(text)), &doc); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}

	byID := make(map[string]suggestedTitle, len(doc.Titles))
	for _, t := range doc.Titles {
		if t.VideoID == "" {
			return nil, fmt.Errorf("parse model response: entry without videoId")
		}
		if _, dup := byID[t.VideoID]; dup {
			return nil, fmt.Errorf("parse model response: duplicate entry for video %s", t.VideoID)
		}
		byID[t.VideoID] = t
	}
	if len(doc.Titles) != len(videos) {
		return nil, fmt.Errorf("parse model response: got %d entries for %d videos", len(doc.Titles), len(videos))
	}

	titles := make([]entity.ImprovedTitle, 0, len(videos))
	for _, v := range videos {
		t, ok := byID[v.VideoID]
		if !ok {
			return nil, fmt.Errorf("parse model response: no entry for video %s", v.VideoID)
		}
		if t.Improved == "" || t.Rationale == "" {
			return nil, fmt.Errorf("parse model response: incomplete entry for video %s", v.VideoID)
		}
		original := t.Original
		if original == "" {
			original = v.Title
		}
		titles = append(titles, entity.ImprovedTitle{
			Original:  original,
			Improved:  t.Improved,
			Rationale: t.Rationale,
			URL:       v.URL,
		})
	}
	return titles, nil
}

// stripFences removes a markdown code fence the model sometimes wraps
// its JSON in.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
