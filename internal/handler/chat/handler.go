// Package chat proxies browser chat requests to the assistant
// provider's REST API.
package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bifrotek/voicebridge/internal/service/assistant"
	"github.com/bifrotek/voicebridge/pkg/utils"
)

// Handler forwards chat payloads to the provider using the private
// key, which must never reach the browser.
type Handler struct {
	assistant *assistant.Service
}

// New creates the chat proxy handler.
func New(svc *assistant.Service) *Handler {
	return &Handler{assistant: svc}
}

// RegisterRoutes mounts the chat proxy endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.handleChat)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if !json.Valid(payload) {
		utils.RespondError(w, http.StatusBadRequest, "request body must be JSON")
		return
	}

	response, err := h.assistant.SendChat(r.Context(), payload)
	if err != nil {
		var upstream *assistant.UpstreamError
		switch {
		case errors.Is(err, assistant.ErrNotConfigured):
			utils.RespondError(w, http.StatusServiceUnavailable, "assistant chat not configured")
		case errors.As(err, &upstream):
			// Gateway-style: carry the upstream status and detail to
			// the original caller.
			utils.RespondJSON(w, http.StatusBadGateway, map[string]any{
				"error":          "assistant provider error",
				"upstreamStatus": upstream.Status,
				"upstreamDetail": upstream.Detail,
			})
		default:
			utils.RespondError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(response)
}
