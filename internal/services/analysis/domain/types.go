// Package domain defines the batch orchestration types and ports
package domain

import (
	"context"

	"triage/internal/core/document"
)

// Label is a classification verdict
type Label string

// Verdicts
const (
	LabelProductive   Label = "productive"
	LabelUnproductive Label = "unproductive"
)

// Batch is one submitted unit of orchestration work
type Batch struct {
	ID            string
	SessionID     string
	Documents     []document.Document
	SharedContext string
}

// Outcome is the terminal state of a single document. Err is set when the
// document failed extraction or classification; Label is empty then
type Outcome struct {
	DocumentIndex   int
	Label           Label
	Suggestion      *string // productive only
	OriginalContent string  // truncated preview of the input
	Err             string
}

// ClassifierPort is the AI backend the orchestrator fans out to
type ClassifierPort interface {
	// Ready reports whether classification can be attempted at all
	Ready(ctx context.Context) error
	// Classify labels content. A retryable error means the backend may
	// recover; anything else is final for this document
	Classify(ctx context.Context, content, sharedContext string) (Label, *string, error)
}

// OrchestratorPort runs batches to completion
type OrchestratorPort interface {
	// Run processes the batch, streaming outcomes to the batch's session.
	// It blocks until the batch is terminal; callers wanting fire and
	// forget wrap it in a goroutine with a detached context
	Run(ctx context.Context, b Batch)
}
