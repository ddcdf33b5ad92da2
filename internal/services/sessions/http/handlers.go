package http

import (
	stdctx "context"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"triage/internal/modkit/httpkit"
	"triage/internal/platform/logger"
	"triage/internal/services/sessions/domain"
)

// Deps are the handler dependencies
type Deps struct {
	Registry domain.RegistryPort

	// WriteTimeout bounds a single frame write, default 10s
	WriteTimeout time.Duration
}

type handlers struct {
	deps Deps
	now  func() time.Time
}

// Register mounts the websocket endpoint on r. Mount it outside any
// middleware stack that wraps the response writer (timeout, compression),
// those break the hijack the upgrade needs
func Register(r httpkit.Router, d Deps) {
	if d.WriteTimeout <= 0 {
		d.WriteTimeout = 10 * time.Second
	}
	h := &handlers{deps: d, now: time.Now}
	r.Get("/ws", h.serve)
}

// serve upgrades the connection, admits a session, then pumps events until
// the client goes away or the registry closes the stream
func (h *handlers) serve(w http.ResponseWriter, r *http.Request) {
	log := logger.Named("sessions.ws")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	// every exit path must release the connection, graceful closes above
	// this are a no-op by then
	defer conn.CloseNow()

	ctx := r.Context()
	id, events, err := h.deps.Registry.Admit(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("session admission refused")
		_ = conn.Close(websocket.StatusTryAgainLater, "session limit reached")
		return
	}
	defer h.deps.Registry.Remove(id)

	ctx = logger.WithSession(ctx, id)
	log = logger.C(ctx)

	if err := h.write(ctx, conn, domain.ConnectionEstablished{SessionID: id}); err != nil {
		log.Warn().Err(err).Msg("greeting write failed")
		_ = conn.Close(websocket.StatusInternalError, "write failed")
		return
	}

	// reader: any inbound frame counts as a heartbeat
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
			_ = h.deps.Registry.Heartbeat(id)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-readDone:
			log.Debug().Msg("client disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			if err := h.write(ctx, conn, ev); err != nil {
				log.Debug().Err(err).Msg("event write failed, dropping session")
				return
			}
		}
	}
}

func (h *handlers) write(ctx stdctx.Context, conn *websocket.Conn, ev domain.Event) error {
	buf, err := encodeEvent(ev, h.now())
	if err != nil {
		return err
	}
	wctx, cancel := stdctx.WithTimeout(ctx, h.deps.WriteTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, buf)
}
