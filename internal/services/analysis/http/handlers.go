// Package http provides the batch submission endpoints
package http

import (
	stdctx "context"
	"io"
	stdhttp "net/http"

	"github.com/google/uuid"

	"triage/internal/core/document"
	"triage/internal/modkit/httpkit"
	perr "triage/internal/platform/errors"
	"triage/internal/services/analysis/domain"
	sessdomain "triage/internal/services/sessions/domain"
)

// memory ceiling for multipart parsing; larger parts spill to disk
const multipartMemory = 8 << 20

// Deps are the handler dependencies
type Deps struct {
	Registry     sessdomain.RegistryPort
	Orchestrator domain.OrchestratorPort
	Policy       document.Policy
}

type handlers struct {
	deps  Deps
	newID func() string
}

// Register mounts the submission routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d, newID: uuid.NewString}
	httpkit.PostJSON[domain.TextRequest](r, "/text", h.text)
	r.Post("/files", h.files)
}

// swagger:route POST /analysis/text Analysis submitText
// @Summary Submit inline documents for classification
// @Tags analysis
// @Accept json
// @Produce json
// @Param payload body domain.TextRequest true "Batch"
// @Success 202 {object} domain.Accepted "accepted"
// @Failure 400 {object} httpkit.Envelope "validation failed"
// @Failure 404 {object} httpkit.Envelope "session not connected"
// @Failure 429 {object} httpkit.Envelope "rate limited"
// @Router /analysis/text [post]
func (h *handlers) text(r *stdhttp.Request, in domain.TextRequest) (any, error) {
	docs, err := document.Normalize(in.Documents, nil, h.deps.Policy)
	if err != nil {
		return nil, err
	}
	resp, err := h.launch(r, in.SessionID, in.Context, docs)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// swagger:route POST /analysis/files Analysis submitFiles
// @Summary Submit files for classification
// @Tags analysis
// @Accept mpfd
// @Produce json
// @Param session_id formData string true "Session id"
// @Param context formData string false "Shared context"
// @Param files formData file true "Files"
// @Success 202 {object} domain.Accepted "accepted"
// @Failure 400 {object} httpkit.Envelope "validation failed"
// @Failure 404 {object} httpkit.Envelope "session not connected"
// @Failure 429 {object} httpkit.Envelope "rate limited"
// @Router /analysis/files [post]
func (h *handlers) files(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	httpkit.Handle(func(r *stdhttp.Request) httpkit.Response {
		resp, err := h.filesBatch(r)
		if err != nil {
			return httpkit.Error(err)
		}
		return resp
	})(w, r)
}

func (h *handlers) filesBatch(r *stdhttp.Request) (httpkit.Response, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return httpkit.Response{}, perr.Validationf("invalid multipart form: %v", err)
	}
	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		return httpkit.Response{}, perr.Validationf("session_id is required")
	}

	form := r.MultipartForm
	defer func() { _ = form.RemoveAll() }()

	headers := form.File["files"]
	if len(headers) == 0 {
		return httpkit.Response{}, perr.Validationf("at least one file is required")
	}

	files := make([]document.File, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.deps.Policy.MaxFileBytes {
			return httpkit.Response{}, perr.Validationf("file %q is %d bytes, limit is %d", fh.Filename, fh.Size, h.deps.Policy.MaxFileBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return httpkit.Response{}, perr.Validationf("file %q is unreadable: %v", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, h.deps.Policy.MaxFileBytes+1))
		_ = f.Close()
		if err != nil {
			return httpkit.Response{}, perr.Validationf("file %q is unreadable: %v", fh.Filename, err)
		}
		files = append(files, document.File{Name: fh.Filename, Data: data})
	}

	docs, err := document.Normalize(nil, files, h.deps.Policy)
	if err != nil {
		return httpkit.Response{}, err
	}
	return h.launch(r, sessionID, r.FormValue("context"), docs)
}

// launch verifies the session is live, then hands the batch to the
// orchestrator on a detached context and acknowledges with 202
func (h *handlers) launch(r *stdhttp.Request, sessionID, sharedCtx string, docs []document.Document) (httpkit.Response, error) {
	if err := h.deps.Registry.Heartbeat(sessionID); err != nil {
		return httpkit.Response{}, perr.NotFoundf("session %s is not connected", sessionID)
	}

	batch := domain.Batch{
		ID:            h.newID(),
		SessionID:     sessionID,
		Documents:     docs,
		SharedContext: sharedCtx,
	}
	go h.deps.Orchestrator.Run(stdctx.WithoutCancel(r.Context()), batch)

	return httpkit.Accepted(domain.Accepted{
		BatchID:        batch.ID,
		TotalDocuments: len(docs),
	}), nil
}
