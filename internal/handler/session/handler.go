// Package session exposes the browser-facing session registration
// endpoint.
package session

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	model "github.com/bifrotek/voicebridge/internal/model/session"
	sessionService "github.com/bifrotek/voicebridge/internal/service/session"
	"github.com/bifrotek/voicebridge/pkg/utils"
)

// Handler registers browser sessions with the session registry.
type Handler struct {
	sessions *sessionService.Service
}

// New creates the registration handler.
func New(sessions *sessionService.Service) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes mounts the registration endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/register-session", h.handleRegister)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID      string `json:"sessionId"`
		CustomerName   string `json:"customerName"`
		CustomerDomain string `json:"customerDomain"`
		CustomerEmail  string `json:"customerEmail"`
		CompanyName    string `json:"companyName"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	// Session ids are untrusted client-chosen strings. Registration
	// just enriches them with metadata; it grants nothing.
	sess := model.Session{
		ID:             payload.SessionID,
		CustomerName:   payload.CustomerName,
		CustomerDomain: payload.CustomerDomain,
		CustomerEmail:  payload.CustomerEmail,
		CompanyName:    payload.CompanyName,
	}
	if err := h.sessions.Register(r.Context(), sess); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to register session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
