/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions. This
  is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique id per request; attached to every log line
  2. RealIP:     Client address behind proxies
  3. requestLogger: Structured request logging (apex/log)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the desktop frontend
  6. AuthMiddleware: Bearer token -> principal

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token parsing
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions carries the facade configuration from the environment.
type RouterOptions struct {
	JWTSecret      string
	SkipAuth       bool
	AllowedOrigins []string
}

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/reports", func(r chi.Router) {
			r.Use(AuthMiddleware(opts.JWTSecret, opts.SkipAuth))

			r.Get("/", h.ListReports)
			r.Post("/", h.CreateReport)
			r.Get("/meta/entities", h.ListEntities)
			r.Get("/{id}", h.GetReport)
			r.Put("/{id}", h.UpdateReport)
			r.Delete("/{id}", h.DeleteReport)
			r.Get("/{id}/run", h.RunReport)
		})
	})

	return r
}

// requestLogger attaches a structured logger carrying the request id to the
// context and logs request completion. The execution runner picks the same
// logger up, so failure correlation ids land next to the request line.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := log.WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		ctx := log.NewContext(r.Context(), entry)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		entry.WithFields(log.Fields{
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
