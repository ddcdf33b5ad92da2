package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "triage/internal/platform/errors"
)

// modelAnswer builds a generateContent body whose single candidate is text
func modelAnswer(t *testing.T, text string) []byte {
	t.Helper()
	body := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return buf
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, APIKey: "test-key"})
}

func TestClassify_Productive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key")
		}
		_, _ = w.Write(modelAnswer(t, `{"classification":"productive","suggested_reply":"On it, expect an update today."}`))
	})

	label, sugg, err := c.Classify(context.Background(), "can you check the invoice?", "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != LabelProductive {
		t.Fatalf("label = %q", label)
	}
	if sugg == nil || *sugg != "On it, expect an update today." {
		t.Fatalf("suggestion = %v", sugg)
	}
}

func TestClassify_UnproductiveDropsSuggestion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(modelAnswer(t, `{"classification":"Unproductive","suggested_reply":"thanks!"}`))
	})

	label, sugg, err := c.Classify(context.Background(), "happy birthday!", "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != LabelUnproductive {
		t.Fatalf("label = %q", label)
	}
	if sugg != nil {
		t.Fatalf("unproductive suggestion must be nil, got %q", *sugg)
	}
}

func TestClassify_StripsMarkdownFences(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(modelAnswer(t, "```json\n{\"classification\":\"productive\",\"suggested_reply\":null}\n```"))
	})

	label, _, err := c.Classify(context.Background(), "question", "")
	if err != nil || label != LabelProductive {
		t.Fatalf("label = %q, err = %v", label, err)
	}
}

func TestClassify_TransientStatuses(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, _, err := c.Classify(context.Background(), "x", "")
		if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
			t.Fatalf("status %d: want unavailable, got %v", status, err)
		}
		if !perr.Retryable(err) {
			t.Fatalf("status %d must be retryable", status)
		}
	}
}

func TestClassify_PermanentFailures(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{
			name: "bad request",
			h:    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) },
		},
		{
			name: "no candidates",
			h: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"candidates":[]}`))
			},
		},
		{
			name: "verdict not json",
			h: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(modelAnswer(t, "sure, that looks productive to me"))
			},
		},
		{
			name: "unknown label",
			h: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(modelAnswer(t, `{"classification":"maybe","suggested_reply":null}`))
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, tc.h)
			_, _, err := c.Classify(context.Background(), "x", "")
			if !perr.IsCode(err, perr.ErrorCodeUpstream) {
				t.Fatalf("want upstream, got %v", err)
			}
			if perr.Retryable(err) {
				t.Fatalf("permanent failure must not be retryable")
			}
		})
	}
}

func TestClassify_NetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := New(Options{BaseURL: srv.URL, APIKey: "k"})
	srv.Close()

	_, _, err := c.Classify(context.Background(), "x", "")
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
}

func TestReady(t *testing.T) {
	if err := New(Options{APIKey: "k"}).Ready(context.Background()); err != nil {
		t.Fatalf("configured client: %v", err)
	}
	err := New(Options{}).Ready(context.Background())
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("missing key: %v", err)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, out string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range tests {
		if got := stripFences(tc.in); got != tc.out {
			t.Fatalf("stripFences(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestBuildPrompt_IncludesContext(t *testing.T) {
	p := buildPrompt("the message", "customer is on the enterprise plan")
	for _, want := range []string{"the message", "enterprise plan", "suggested_reply"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if strings.Contains(buildPrompt("m", ""), "Additional context") {
		t.Fatalf("empty context must not add a context section")
	}
}
