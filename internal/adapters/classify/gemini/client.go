// Package gemini is a minimal Gemini generateContent client that classifies
// a document as productive or unproductive and drafts a reply suggestion
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

	perr "triage/internal/platform/errors"
	"triage/internal/platform/logger"
)

const (
	baseURLDefault = "https://generativelanguage.googleapis.com"
	modelDefault   = "gemini-2.0-flash"
	defaultTimeout = 30 * time.Second
)

// Labels the model must answer with
const (
	LabelProductive   = "productive"
	LabelUnproductive = "unproductive"
)

// Options configures the Client
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls the generateContent endpoint. One shot per call, retry
// policy belongs to the caller
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
	now  func() time.Time
}

// New creates a Client with sane defaults
func New(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.Model == "" {
		o.Model = modelDefault
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("gemini"),
		now:  time.Now,
	}
}

// Ready reports whether the client can serve classifications at all
func (c *Client) Ready(_ context.Context) error {
	if strings.TrimSpace(c.opts.APIKey) == "" {
		return perr.Unavailablef("gemini api key not configured")
	}
	return nil
}

// request/response shapes for generateContent

type genRequest struct {
	Contents         []genContent `json:"contents"`
	GenerationConfig genConfig    `json:"generationConfig"`
}

type genContent struct {
	Parts []genPart `json:"parts"`
}

type genPart struct {
	Text string `json:"text"`
}

type genConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type genResponse struct {
	Candidates []struct {
		Content struct {
			Parts []genPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// verdict is the strict JSON shape the prompt demands from the model
type verdict struct {
	Classification string  `json:"classification"`
	SuggestedReply *string `json:"suggested_reply"`
}

// Classify asks the model to label content. Suggestion is nil for
// unproductive documents regardless of what the model volunteered.
// Transport failures, 429 and 5xx map to an unavailable (retryable) error;
// anything else wrong with the exchange is an upstream (permanent) error
func (c *Client) Classify(ctx context.Context, content, sharedContext string) (string, *string, error) {
	if err := c.Ready(ctx); err != nil {
		return "", nil, err
	}

	body, err := json.Marshal(genRequest{
		Contents: []genContent{
			{Parts: []genPart{{Text: buildPrompt(content, sharedContext)}}},
		},
		GenerationConfig: genConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "gemini marshal request")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.opts.BaseURL, c.opts.Model, c.opts.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "gemini new request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "gemini request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().
		Int("status", resp.StatusCode).
		Dur("latency", c.now().Sub(start)).
		Msg("generateContent")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "gemini read response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", nil, perr.Unavailablef("gemini status %d", resp.StatusCode)
	default:
		return "", nil, perr.Upstreamf("gemini status %d", resp.StatusCode)
	}

	var gr genResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "gemini decode response")
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", nil, perr.Upstreamf("gemini returned no candidates")
	}

	return parseVerdict(gr.Candidates[0].Content.Parts[0].Text)
}

// parseVerdict decodes the model's JSON answer, tolerating markdown fences
func parseVerdict(text string) (string, *string, error) {
	var v verdict
	if err := json.Unmarshal([]byte(stripFences(text)), &v); err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "gemini verdict is not valid JSON")
	}

	label := strings.ToLower(strings.TrimSpace(v.Classification))
	switch label {
	case LabelProductive:
		sugg := v.SuggestedReply
		if sugg != nil && strings.TrimSpace(*sugg) == "" {
			sugg = nil
		}
		return label, sugg, nil
	case LabelUnproductive:
		// the model sometimes drafts a reply anyway, discard it
		return label, nil, nil
	default:
		return "", nil, perr.Upstreamf("gemini verdict has unknown classification %q", v.Classification)
	}
}

// stripFences removes a surrounding markdown code fence if present
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
