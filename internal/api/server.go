// Package api provides the HTTP server and handlers for the story app.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ceritasekitarmu/cerita-server/internal/backup"
	"github.com/ceritasekitarmu/cerita-server/internal/push"
	"github.com/ceritasekitarmu/cerita-server/internal/service"
	"github.com/ceritasekitarmu/cerita-server/internal/store"
	"github.com/ceritasekitarmu/cerita-server/internal/sw"
	"github.com/ceritasekitarmu/cerita-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store        *store.Store
	storyService *service.StoryService
	syncService  *service.SyncService
	publisher    service.StoryPublisher
	pushManager  *push.Manager
	backups      *backup.Service
	gateway      *sw.Router
	validate     *validation.Validator
	router       *chi.Mux
	logger       *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// pushManager, backups and gateway may be nil when the feature is not
// configured; the matching endpoints then answer with an error.
func NewServer(st *store.Store, storyService *service.StoryService, syncService *service.SyncService, publisher service.StoryPublisher, pushManager *push.Manager, backups *backup.Service, gateway *sw.Router, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		store:        st,
		storyService: storyService,
		syncService:  syncService,
		publisher:    publisher,
		pushManager:  pushManager,
		backups:      backups,
		gateway:      gateway,
		validate:     validation.New(),
		router:       chi.NewRouter(),
		logger:       logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/stories", func(r chi.Router) {
			r.Get("/", s.handleListStories)
			r.Post("/", s.handleCreateStory)
			r.Post("/refresh", s.handleRefreshStories)
			r.Get("/{id}", s.handleGetStory)
			r.Patch("/{id}", s.handleUpdateStory)
			r.Delete("/{id}", s.handleDeleteStory)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", s.handleListFavorites)
			r.Put("/{storyID}", s.handleAddFavorite)
			r.Delete("/{storyID}", s.handleRemoveFavorite)
			r.Post("/{storyID}/toggle", s.handleToggleFavorite)
		})

		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", s.handleListDrafts)
			r.Delete("/{id}", s.handleDeleteDraft)
			r.Post("/sync", s.handleSyncDrafts)
		})

		r.Get("/stats", s.handleGetStats)

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/subscribe", s.handleSubscribePush)
			r.Delete("/subscribe", s.handleUnsubscribePush)
		})

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", s.handleListBackups)
			r.Post("/", s.handleCreateBackup)
		})
	})

	// Everything else is a shell fetch, routed through the offline gateway.
	s.router.NotFound(s.handleShellFetch)
}
