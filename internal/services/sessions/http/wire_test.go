package http

import (
	"encoding/json"
	"testing"
	"time"

	"triage/internal/services/sessions/domain"
)

func decode(t *testing.T, buf []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestEncodeEvent_Frames(t *testing.T) {
	at := time.Unix(1700000000, 0)
	sugg := "reply politely"

	tests := []struct {
		name string
		ev   domain.Event
		want map[string]any
	}{
		{
			name: "connection established",
			ev:   domain.ConnectionEstablished{SessionID: "s1"},
			want: map[string]any{"type": "connection_established", "session_id": "s1"},
		},
		{
			name: "analysis result",
			ev: domain.AnalysisResult{
				BatchID:         "b1",
				DocumentIndex:   2,
				Label:           "productive",
				Suggestion:      &sugg,
				OriginalContent: "hello",
			},
			want: map[string]any{
				"type":             "analysis_result",
				"batch_id":         "b1",
				"document_index":   float64(2),
				"label":            "productive",
				"suggestion":       "reply politely",
				"original_content": "hello",
			},
		},
		{
			name: "analysis complete",
			ev:   domain.AnalysisComplete{BatchID: "b1", Message: "done"},
			want: map[string]any{"type": "analysis_complete", "batch_id": "b1", "message": "done"},
		},
		{
			name: "error",
			ev:   domain.Error{Message: "service unavailable"},
			want: map[string]any{"type": "error", "message": "service unavailable"},
		},
		{
			name: "ping",
			ev:   domain.Ping{},
			want: map[string]any{"type": "ping"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := encodeEvent(tc.ev, at)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got := decode(t, buf)
			if got["timestamp"] != float64(1700000000) {
				t.Fatalf("timestamp: %v", got["timestamp"])
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Fatalf("%s: got %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestEncodeEvent_IndexZeroSurvives(t *testing.T) {
	buf, err := encodeEvent(domain.AnalysisResult{DocumentIndex: 0, Label: "unproductive"}, time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := decode(t, buf)
	if _, ok := got["document_index"]; !ok {
		t.Fatalf("document_index 0 must not be omitted: %s", buf)
	}
	if _, ok := got["suggestion"]; ok {
		t.Fatalf("nil suggestion must be omitted: %s", buf)
	}
}
