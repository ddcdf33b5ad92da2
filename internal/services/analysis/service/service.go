// Package service orchestrates concurrent document classification for a batch
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"triage/internal/core/document"
	"triage/internal/modkit"
	perr "triage/internal/platform/errors"
	"triage/internal/platform/logger"
	pstrings "triage/internal/platform/strings"
	"triage/internal/services/analysis/domain"
	sessdomain "triage/internal/services/sessions/domain"
)

// preview length pushed back to clients alongside each outcome
const previewRunes = 200

// Config tunes the orchestrator
type Config struct {
	Workers    int64         // concurrent classifications per batch
	MaxRetries uint64        // transient retries per document
	RetryBase  time.Duration // initial backoff interval
}

// Service is the batch orchestrator
type Service struct {
	log        logger.Logger
	cfg        Config
	classifier domain.ClassifierPort
	sessions   sessdomain.RegistryPort
}

// New constructs the orchestrator
func New(deps modkit.Deps, cfg Config, classifier domain.ClassifierPort, sessions sessdomain.RegistryPort) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	return &Service{
		log:        *logger.Named("analysis"),
		cfg:        cfg,
		classifier: classifier,
		sessions:   sessions,
	}
}

// Run implements domain.OrchestratorPort. Every document yields exactly one
// analysis_result and the batch exactly one terminal event: analysis_complete
// after all units settle, or a single error event when the classifier is
// down before any work starts
func (s *Service) Run(ctx context.Context, b domain.Batch) {
	log := s.log.With().Str("batch_id", b.ID).Str("session_id", b.SessionID).Logger()

	if err := s.classifier.Ready(ctx); err != nil {
		log.Warn().Err(err).Msg("classifier not ready, failing batch")
		s.deliver(ctx, &log, b.SessionID, sessdomain.Error{
			Message: "analysis is unavailable right now, please retry later",
		})
		return
	}

	sem := semaphore.NewWeighted(s.cfg.Workers)
	var wg sync.WaitGroup

	dispatched := 0
	for _, doc := range b.Documents {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("batch interrupted, stopping dispatch")
			break
		}
		dispatched++
		wg.Add(1)
		go func(doc document.Document) {
			defer wg.Done()
			defer sem.Release(1)

			out := s.classifyOne(ctx, b, doc)
			s.deliver(ctx, &log, b.SessionID, sessdomain.AnalysisResult{
				BatchID:         b.ID,
				DocumentIndex:   out.DocumentIndex,
				Label:           string(out.Label),
				Suggestion:      out.Suggestion,
				OriginalContent: out.OriginalContent,
				Error:           out.Err,
			})
		}(doc)
	}

	wg.Wait()

	// an interrupted dispatch left documents unsettled, so the batch may not
	// claim completion
	if dispatched < len(b.Documents) {
		s.deliver(context.WithoutCancel(ctx), &log, b.SessionID, sessdomain.Error{
			Message: fmt.Sprintf("analysis interrupted, %d of %d documents processed", dispatched, len(b.Documents)),
		})
		log.Warn().Int("processed", dispatched).Int("documents", len(b.Documents)).Msg("batch interrupted")
		return
	}

	s.deliver(ctx, &log, b.SessionID, sessdomain.AnalysisComplete{
		BatchID: b.ID,
		Message: fmt.Sprintf("analysis complete, %d documents processed", len(b.Documents)),
	})
	log.Info().Int("documents", len(b.Documents)).Msg("batch done")
}

// classifyOne settles a single document. Extraction failures short circuit;
// classification retries transient errors with exponential backoff and
// treats everything else as final
func (s *Service) classifyOne(ctx context.Context, b domain.Batch, doc document.Document) domain.Outcome {
	out := domain.Outcome{
		DocumentIndex:   doc.Index,
		OriginalContent: pstrings.Truncate(doc.Content, previewRunes),
	}
	if doc.Err != nil {
		out.Err = doc.Err.Error()
		return out
	}

	var label domain.Label
	var sugg *string

	op := func() error {
		var err error
		label, sugg, err = s.classifier.Classify(ctx, doc.Content, b.SharedContext)
		if err != nil && !perr.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.RetryBase
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.MaxRetries), ctx))
	if err != nil {
		out.Err = fmt.Sprintf("classification failed: %v", perr.Root(err))
		return out
	}

	out.Label = label
	out.Suggestion = sugg
	return out
}

// deliver pushes ev to the session. A vanished session is logged and
// otherwise ignored, it must never fail the batch
func (s *Service) deliver(ctx context.Context, log *logger.Logger, sessionID string, ev sessdomain.Event) {
	if err := s.sessions.Deliver(ctx, sessionID, ev); err != nil {
		log.Debug().Err(err).Str("event", string(ev.Type())).Msg("session gone, event dropped")
	}
}
