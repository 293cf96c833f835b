// Package shorturl exposes URL shortening over the Shlink service.
package shorturl

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bifrotek/voicebridge/internal/service/shortener"
	"github.com/bifrotek/voicebridge/pkg/utils"
)

// Handler forwards shorten requests to the shortener service.
type Handler struct {
	shortener *shortener.Service
}

// New creates the short-url handler.
func New(svc *shortener.Service) *Handler {
	return &Handler{shortener: svc}
}

// RegisterRoutes mounts the shorten endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/shorten-url", h.handleShorten)
}

func (h *Handler) handleShorten(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.URL == "" {
		utils.RespondError(w, http.StatusBadRequest, "url is required")
		return
	}

	created, err := h.shortener.Create(r.Context(), shortener.CreateRequest{
		LongURL:      payload.URL,
		Title:        payload.Title,
		Crawlable:    true,
		ForwardQuery: true,
	})
	if errors.Is(err, shortener.ErrNotConfigured) {
		utils.RespondError(w, http.StatusServiceUnavailable, "url shortening not configured")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"shortUrl": created.ShortURL,
		"longUrl":  created.LongURL,
		"title":    created.Title,
	})
}
