package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docfill/internal/assistant"
	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docfill.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	stats        *assistant.LLMStats
	model        string
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil when
// replies come from templates only.
func NewServer(orch *pipeline.Orchestrator, stats *assistant.LLMStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		stats:        stats,
		model:        cfg.AnthropicModel,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.DocfillAPIKey != "" {
			r.Use(AuthMiddleware(s.cfg.DocfillAPIKey, s.log))
		}

		r.Post("/sessions", s.handleUpload)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/chat", s.handleChat)
			r.Post("/generate", s.handleGenerate)
			r.Post("/preview", s.handlePreview)
			r.Post("/preview_html", s.handlePreviewHTML)
		})
		r.Get("/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
