package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"triage/internal/adapters/extract"
	"triage/internal/core/document"
	phttp "triage/internal/platform/net/http"
	"triage/internal/platform/testkit"
	"triage/internal/services/analysis/domain"
	sessdomain "triage/internal/services/sessions/domain"
)

type fakeRegistry struct {
	known map[string]bool
}

func (f *fakeRegistry) Admit(context.Context) (string, <-chan sessdomain.Event, error) {
	return "", nil, nil
}
func (f *fakeRegistry) Deliver(context.Context, string, sessdomain.Event) error { return nil }
func (f *fakeRegistry) Remove(string)                                           {}

func (f *fakeRegistry) Heartbeat(id string) error {
	if !f.known[id] {
		return fmt.Errorf("unknown session")
	}
	return nil
}

type fakeOrchestrator struct {
	mu      sync.Mutex
	batches []domain.Batch
}

func (f *fakeOrchestrator) Run(_ context.Context, b domain.Batch) {
	f.mu.Lock()
	f.batches = append(f.batches, b)
	f.mu.Unlock()
}

func (f *fakeOrchestrator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

const liveSession = "3f1a8e9c-1111-4222-8333-444455556666"

type fixture struct {
	srv  *httptest.Server
	orch *fakeOrchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pol := document.DefaultPolicy()
	pol.MaxTexts = 3
	pol.Extractor = extract.NewRegistry()

	orch := &fakeOrchestrator{}
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), Deps{
		Registry:     &fakeRegistry{known: map[string]bool{liveSession: true}},
		Orchestrator: orch,
		Policy:       pol,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, orch: orch}
}

func postJSON(t *testing.T, url string, body any) (*stdhttp.Response, map[string]any) {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := stdhttp.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var envelope map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&envelope)
	return resp, envelope
}

func TestText_AcceptsBatch(t *testing.T) {
	fx := newFixture(t)

	resp, env := postJSON(t, fx.srv.URL+"/text", map[string]any{
		"session_id": liveSession,
		"documents":  []string{"please review the contract", "thanks!"},
		"context":    "legal inbox",
	})
	if resp.StatusCode != stdhttp.StatusAccepted {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, env)
	}
	data, _ := env["data"].(map[string]any)
	if data["total_documents"] != float64(2) {
		t.Fatalf("total_documents = %v", data["total_documents"])
	}
	if data["batch_id"] == "" || data["batch_id"] == nil {
		t.Fatalf("batch_id missing")
	}

	testkit.Eventually(t, time.Second, func() bool { return fx.orch.count() == 1 }, "orchestrator never saw the batch")

	b := fx.orch.batches[0]
	if b.SessionID != liveSession || len(b.Documents) != 2 || b.SharedContext != "legal inbox" {
		t.Fatalf("batch = %+v", b)
	}
}

func TestText_ValidationFailures(t *testing.T) {
	fx := newFixture(t)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{
			name:   "missing session id",
			body:   map[string]any{"documents": []string{"x"}},
			status: stdhttp.StatusBadRequest,
		},
		{
			name:   "session id not a uuid",
			body:   map[string]any{"session_id": "nope", "documents": []string{"x"}},
			status: stdhttp.StatusBadRequest,
		},
		{
			name:   "no documents",
			body:   map[string]any{"session_id": liveSession, "documents": []string{}},
			status: stdhttp.StatusBadRequest,
		},
		{
			name:   "too many documents",
			body:   map[string]any{"session_id": liveSession, "documents": []string{"a", "b", "c", "d"}},
			status: stdhttp.StatusBadRequest,
		},
		{
			name:   "unknown session",
			body:   map[string]any{"session_id": "9f1a8e9c-1111-4222-8333-444455556666", "documents": []string{"x"}},
			status: stdhttp.StatusNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, env := postJSON(t, fx.srv.URL+"/text", tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d (body %v)", resp.StatusCode, tc.status, env)
			}
		})
	}

	if fx.orch.count() != 0 {
		t.Fatalf("rejected batches must never reach the orchestrator")
	}
}

func TestFiles_AcceptsMultipart(t *testing.T) {
	fx := newFixture(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("session_id", liveSession)
	_ = w.WriteField("context", "support inbox")
	fw, _ := w.CreateFormFile("files", "note.txt")
	_, _ = fw.Write([]byte("the printer is on fire"))
	_ = w.Close()

	resp, err := stdhttp.Post(fx.srv.URL+"/files", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != stdhttp.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	testkit.Eventually(t, time.Second, func() bool { return fx.orch.count() == 1 }, "orchestrator never saw the batch")

	b := fx.orch.batches[0]
	if len(b.Documents) != 1 || b.Documents[0].Source != document.SourceFile {
		t.Fatalf("batch = %+v", b)
	}
	if !strings.Contains(b.Documents[0].Content, "printer") {
		t.Fatalf("content = %q", b.Documents[0].Content)
	}
}

func TestFiles_RejectsUnsupportedType(t *testing.T) {
	fx := newFixture(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("session_id", liveSession)
	fw, _ := w.CreateFormFile("files", "payload.exe")
	_, _ = fw.Write([]byte("MZ"))
	_ = w.Close()

	resp, err := stdhttp.Post(fx.srv.URL+"/files", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if fx.orch.count() != 0 {
		t.Fatalf("rejected upload must not start a batch")
	}
}

func TestFiles_RequiresSessionID(t *testing.T) {
	fx := newFixture(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, _ := w.CreateFormFile("files", "a.txt")
	_, _ = fw.Write([]byte("hello"))
	_ = w.Close()

	resp, err := stdhttp.Post(fx.srv.URL+"/files", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
