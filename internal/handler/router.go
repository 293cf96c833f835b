package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bifrotek/voicebridge/internal/config"
	chatHandler "github.com/bifrotek/voicebridge/internal/handler/chat"
	configapiHandler "github.com/bifrotek/voicebridge/internal/handler/configapi"
	eventsHandler "github.com/bifrotek/voicebridge/internal/handler/events"
	pagesHandler "github.com/bifrotek/voicebridge/internal/handler/pages"
	sessionHandler "github.com/bifrotek/voicebridge/internal/handler/session"
	shorturlHandler "github.com/bifrotek/voicebridge/internal/handler/shorturl"
	webhookHandler "github.com/bifrotek/voicebridge/internal/handler/webhook"
	middlewarePkg "github.com/bifrotek/voicebridge/internal/middleware"
	"github.com/bifrotek/voicebridge/internal/service/assistant"
	"github.com/bifrotek/voicebridge/internal/service/brand"
	sessionService "github.com/bifrotek/voicebridge/internal/service/session"
	"github.com/bifrotek/voicebridge/internal/service/shortener"
)

// Deps carries the services the router wires into handlers.
type Deps struct {
	Sessions  *sessionService.Service
	Assistant *assistant.Service
	Shortener *shortener.Service
	Manager   *config.Manager
	Colors    *brand.Extractor
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	pages, err := pagesHandler.New(deps.Manager)
	if err != nil {
		return nil, err
	}
	pages.RegisterRoutes(r)

	// The assistant provider posts tool calls to the bare /webhook
	// path configured in its dashboard.
	webhookHandler.New(deps.Sessions).RegisterRoutes(r)

	chatHandler.New(deps.Assistant).RegisterRoutes(r)
	shorturlHandler.New(deps.Shortener).RegisterRoutes(r)
	configapiHandler.New(deps.Manager, deps.Colors).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		sessionHandler.New(deps.Sessions).RegisterRoutes(api)
		eventsHandler.New(deps.Sessions).RegisterRoutes(api)
	})

	return r, nil
}
