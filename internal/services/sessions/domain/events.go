// Package domain defines the session registry ports and the closed set of
// events a session can observe
package domain

// EventType tags wire events
type EventType string

// Event types pushed to connected clients
const (
	EventConnectionEstablished EventType = "connection_established"
	EventAnalysisResult        EventType = "analysis_result"
	EventAnalysisComplete      EventType = "analysis_complete"
	EventError                 EventType = "error"
	EventPing                  EventType = "ping"
)

// Event is the sealed union of session events. Transports switch on the
// concrete type exhaustively
type Event interface{ Type() EventType }

// ConnectionEstablished greets a freshly admitted session
type ConnectionEstablished struct {
	SessionID string
}

// Type implements Event
func (ConnectionEstablished) Type() EventType { return EventConnectionEstablished }

// AnalysisResult carries one document outcome
type AnalysisResult struct {
	BatchID         string
	DocumentIndex   int
	Label           string
	Suggestion      *string
	OriginalContent string
	Error           string
}

// Type implements Event
func (AnalysisResult) Type() EventType { return EventAnalysisResult }

// AnalysisComplete is the single terminal event of a batch
type AnalysisComplete struct {
	BatchID string
	Message string
}

// Type implements Event
func (AnalysisComplete) Type() EventType { return EventAnalysisComplete }

// Error reports a batch level failure
type Error struct {
	Message string
}

// Type implements Event
func (Error) Type() EventType { return EventError }

// Ping keeps idle connections alive
type Ping struct{}

// Type implements Event
func (Ping) Type() EventType { return EventPing }
