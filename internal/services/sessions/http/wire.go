// Package http exposes the session event stream over a websocket
package http

import (
	"encoding/json"
	"fmt"
	"time"

	"triage/internal/services/sessions/domain"
)

// wireEvent is the flat frame pushed to clients
type wireEvent struct {
	Type      domain.EventType `json:"type"`
	Timestamp int64            `json:"timestamp"`

	SessionID       string  `json:"session_id,omitempty"`
	BatchID         string  `json:"batch_id,omitempty"`
	DocumentIndex   *int    `json:"document_index,omitempty"`
	Label           string  `json:"label,omitempty"`
	Suggestion      *string `json:"suggestion,omitempty"`
	OriginalContent string  `json:"original_content,omitempty"`
	Error           string  `json:"error,omitempty"`
	Message         string  `json:"message,omitempty"`
}

// encodeEvent renders ev as a wire frame. The switch is exhaustive over the
// sealed event set; an unknown type is a programming error
func encodeEvent(ev domain.Event, now time.Time) ([]byte, error) {
	w := wireEvent{Type: ev.Type(), Timestamp: now.Unix()}

	switch e := ev.(type) {
	case domain.ConnectionEstablished:
		w.SessionID = e.SessionID
	case domain.AnalysisResult:
		idx := e.DocumentIndex
		w.BatchID = e.BatchID
		w.DocumentIndex = &idx
		w.Label = e.Label
		w.Suggestion = e.Suggestion
		w.OriginalContent = e.OriginalContent
		w.Error = e.Error
	case domain.AnalysisComplete:
		w.BatchID = e.BatchID
		w.Message = e.Message
	case domain.Error:
		w.Message = e.Message
	case domain.Ping:
	default:
		return nil, fmt.Errorf("unknown event type %T", ev)
	}

	return json.Marshal(w)
}
