// Package pages serves the server-rendered HTML pages and the health
// endpoint.
package pages

import (
	"embed"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bifrotek/voicebridge/internal/config"
	"github.com/bifrotek/voicebridge/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler renders the public web app and the admin config page.
type Handler struct {
	manager   *config.Manager
	templates *template.Template
}

// New parses the embedded templates and builds the page handler.
func New(manager *config.Manager) (*Handler, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handler{manager: manager, templates: templates}, nil
}

// RegisterRoutes mounts the page routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/config", h.handleConfigPage)
	r.Get("/health", h.handleHealth)
}

// pageData feeds both templates.
type pageData struct {
	AssistantID    string
	PublicKey      string
	ConfigComplete bool
	Company        config.CompanyProfile
	Colors         config.BrandColors
	Contact        config.ContactConfig
}

func (h *Handler) pageData() pageData {
	creds := h.manager.Credentials()
	return pageData{
		AssistantID:    creds.AssistantID,
		PublicKey:      creds.PublicKey,
		ConfigComplete: creds.Complete(),
		Company:        h.manager.Company(),
		Colors:         h.manager.Colors(),
		Contact:        h.manager.Contact(),
	}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, "webapp.html", h.pageData())
}

func (h *Handler) handleConfigPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "config.html", h.pageData())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("[pages] failed to render %s: %v", name, err)
	}
}
