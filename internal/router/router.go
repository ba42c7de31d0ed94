// Package router sets up the HTTP routes and middleware chains of the
// catalog API. Reads are public; mutations require a bearer session.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"postcatalog/internal/handlers"
	"postcatalog/internal/middleware"
)

// Options carries what the router needs to wire its middleware.
type Options struct {
	Sessions     middleware.SessionGetter
	LoginLimiter *middleware.RateLimiter
	CORSOrigins  []string
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(h *handlers.Handler, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"Location"},
			MaxAge:         300,
		}).Handler)
	}
	r.Use(middleware.LoadSession(opts.Sessions))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		login := http.Handler(http.HandlerFunc(h.Login))
		if opts.LoginLimiter != nil {
			login = opts.LoginLimiter.Middleware(login)
		}
		r.Method(http.MethodPost, "/auth/login", login)

		// Public reads.
		r.Get("/posts", h.ListPublished)
		r.Get("/posts/{id}", h.GetPost)
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{id}", h.GetCategory)
		r.Get("/tags", h.ListTags)
		r.Get("/tags/{id}", h.GetTag)

		// Authenticated area.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.Me)

			r.Get("/posts/drafts", h.ListDrafts)
			r.Post("/posts", h.CreatePost)
			r.Put("/posts/{id}", h.UpdatePost)
			r.Delete("/posts/{id}", h.DeletePost)

			r.Post("/categories", h.CreateCategory)
			r.Delete("/categories/{id}", h.DeleteCategory)

			r.Post("/tags", h.CreateTags)
			r.Delete("/tags/{id}", h.DeleteTag)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"route not found"}`))
	})

	return r
}
