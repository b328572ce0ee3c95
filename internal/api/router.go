package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/meur/comparador/internal/auth"
	"github.com/meur/comparador/internal/service"
	"go.uber.org/zap"
)

// Options configures the HTTP layer
type Options struct {
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Server holds the HTTP server dependencies
type Server struct {
	svc      *service.Service
	sessions *auth.Sessions
	logger   *zap.Logger
	router   chi.Router
}

// New creates a new API server
func New(svc *service.Service, sessions *auth.Sessions, opts Options) *Server {
	s := &Server{
		svc:      svc,
		sessions: sessions,
		logger:   opts.Logger,
		router:   chi.NewRouter(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	s.setupMiddleware(opts.AllowedOrigins)
	s.setupRoutes()

	return s
}

// Router exposes the chi router so callers can mount extra handlers
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// Public dashboard
		r.Get("/categories", s.handleGetCategories)
		r.Get("/categories/{category}/items", s.handleGetItems)
		r.Get("/categories/{category}/items/{id}", s.handleGetItem)
		r.Get("/categories/{category}/charts", s.handleGetCharts)

		// Admin session
		r.Post("/session", s.handleLogin)
		r.Get("/session", s.handleGetSession)
		r.Delete("/session", s.handleLogout)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(s.sessions.RequireAdmin)

			r.Get("/stats", s.handleGetStats)
			r.Post("/items", s.handleCreateItem)
			r.Put("/categories/{category}/items/{id}", s.handleUpdateItem)
			r.Post("/seed", s.handleSeedAll)
			r.Post("/categories/{category}/seed", s.handleSeedCategory)
		})
	})

	// Health check
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// --- Response helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}
