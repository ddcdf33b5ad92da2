package module

import (
	"context"

	"triage/internal/adapters/classify/gemini"
	"triage/internal/services/analysis/domain"
)

// geminiClassifier adapts the gemini client to the classifier port
type geminiClassifier struct {
	c *gemini.Client
}

func (g geminiClassifier) Ready(ctx context.Context) error {
	return g.c.Ready(ctx)
}

func (g geminiClassifier) Classify(ctx context.Context, content, sharedContext string) (domain.Label, *string, error) {
	label, sugg, err := g.c.Classify(ctx, content, sharedContext)
	return domain.Label(label), sugg, err
}
