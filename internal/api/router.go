package api

import (
	"net/http"
	"route-optimization-service/internal/api/handlers"
	"route-optimization-service/internal/ports"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDeps are the collaborators the HTTP layer needs.
type RouterDeps struct {
	Repo     ports.StopRepository
	Sessions *handlers.SessionHandler
	// Browser origins allowed by CORS.
	CORSOrigins []string
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestContext)
	r.Use(loggingMiddleware)
	r.Use(chimiddleware.Recoverer)

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var sessionCount func() int
	if deps.Sessions != nil {
		sessionCount = deps.Sessions.Manager.Count
	}
	r.Get("/health", handlers.Health(sessionCount))

	if deps.Repo != nil {
		routeHandler := &handlers.RouteHandler{Repo: deps.Repo}
		r.Get("/routes/{routeID}/stops", routeHandler.ListStops)
	}

	if h := deps.Sessions; h != nil {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.Create)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Delete("/", h.Delete)
				r.Post("/reorder", h.Reorder)
				r.Post("/drag", h.Drag)
				r.Post("/optimize", h.Optimize)
				r.Post("/commit", h.Commit)
				r.Post("/stops", h.AddStop)
				r.Delete("/stops/{stopID}", h.RemoveStop)
				r.Get("/ws", h.Stream)
			})
		})
	}

	return r
}
