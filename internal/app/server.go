package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ragchat-backend/internal/api/handlers"
	appMiddleware "ragchat-backend/internal/api/middlewares"
	"ragchat-backend/internal/config"
	"ragchat-backend/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, docs *services.DocumentService, chat *services.ChatService) *Server {
	sessionHandler := handlers.NewSessionHandler(chat, cfg.JWTSecret)
	docHandler := handlers.NewDocumentHandler(docs)
	chatHandler := handlers.NewChatHandler(chat)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		api.Post("/sessions", sessionHandler.CreateSession)

		api.Get("/documents", docHandler.List)
		api.Post("/documents/upload", docHandler.Upload)
		api.Delete("/documents/{file_id}", docHandler.Delete)
		api.Get("/documents/{file_id}/content", docHandler.Content)
		api.Post("/documents/search", docHandler.Search)

		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.SessionMiddleware(cfg.JWTSecret))
			protected.Post("/chat/query", chatHandler.Query)
			protected.Get("/chat/history", chatHandler.History)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
