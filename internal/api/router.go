package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"voicenote-ai/internal/config"
	"voicenote-ai/internal/pipeline"
	"voicenote-ai/pkg/logger"
)

// Router assembles the HTTP routes and middleware
type Router struct {
	handler *Handler
	config  *config.Config
	logger  *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(p *pipeline.Pipeline, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler: NewHandler(p, cfg, log),
		config:  cfg,
		logger:  log.Named("api-router"),
	}
}

// Routes returns the assembled handler tree
func (r *Router) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(RequestLogger(r.logger))
	mux.Use(CORS(r.config.Server.CORSAllowedOrigins))

	// Unauthenticated endpoints
	mux.Get("/", r.handler.Root)
	mux.Get("/health", r.handler.Health)

	mux.Route("/api/v1", func(api chi.Router) {
		if r.config.Auth.Enabled {
			api.Use(APIKeyAuth(r.config.Auth.APIKey, r.logger))
		}
		api.Post("/voice-notes", r.handler.CreateVoiceNote)
		api.Post("/youtube-notes", r.handler.CreateYouTubeNote)
	})

	return mux
}
