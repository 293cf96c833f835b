// Package events serves the per-session event stream that forwards
// queued chat messages to the browser.
package events

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	sessionService "github.com/bifrotek/voicebridge/internal/service/session"
	"github.com/bifrotek/voicebridge/pkg/utils"
)

// Handler owns the long-lived SSE streams. One cooperative poll loop
// runs per open browser stream; loops interact with webhook delivery
// only through the shared session queues.
type Handler struct {
	sessions *sessionService.Service

	tick           time.Duration
	keepAliveTicks int

	mu     sync.Mutex
	active map[string]struct{}
}

// New creates the dispatcher with the production 1-second tick and a
// keep-alive roughly every 15 seconds of idle stream.
func New(sessions *sessionService.Service) *Handler {
	return &Handler{
		sessions:       sessions,
		tick:           time.Second,
		keepAliveTicks: 15,
		active:         make(map[string]struct{}),
	}
}

// RegisterRoutes mounts the streaming endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events/{sessionID}", h.handleStream)
}

// Active reports whether a stream is currently open for the session in
// this process. The marker is local-only; it never drives cross-process
// decisions.
func (h *Handler) Active(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.active[sessionID]
	return ok
}

func (h *Handler) markActive(sessionID string) {
	h.mu.Lock()
	h.active[sessionID] = struct{}{}
	h.mu.Unlock()
}

func (h *Handler) clearActive(sessionID string) {
	h.mu.Lock()
	delete(h.active, sessionID)
	h.mu.Unlock()
}

// handleStream runs the poll loop for one browser session. Each tick
// destructively drains the session queue and writes every drained
// message as one SSE data frame. Messages are gone from the queue
// before the write happens, so a failed write loses that tick's batch;
// this is the accepted at-most-once window. Undelivered messages still
// queued when the client disconnects stay queued for a future stream.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}

	utils.SetupSSEHeaders(w)
	flusher.Flush()

	h.markActive(sessionID)
	defer h.clearActive(sessionID)

	ctx := r.Context()
	log.Printf("[events] stream opened for session=%s", sessionID)

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	idleTicks := 0
	for {
		drained, err := h.sessions.Drain(ctx, sessionID)
		if err != nil {
			// Failure is scoped to this tick; the loop keeps going.
			log.Printf("[events] drain failed for session=%s: %v", sessionID, err)
		}

		if len(drained) > 0 {
			idleTicks = 0
			for _, msg := range drained {
				if err := utils.SendSSEChunk(w, flusher, msg); err != nil {
					log.Printf("[events] write failed for session=%s, dropping batch: %v", sessionID, err)
					return
				}
			}
		} else {
			idleTicks++
			if idleTicks >= h.keepAliveTicks {
				idleTicks = 0
				if err := utils.SendSSEComment(w, flusher, "keep-alive"); err != nil {
					log.Printf("[events] keep-alive failed for session=%s: %v", sessionID, err)
					return
				}
			}
		}

		select {
		case <-ctx.Done():
			log.Printf("[events] stream closed for session=%s", sessionID)
			return
		case <-ticker.C:
		}
	}
}
