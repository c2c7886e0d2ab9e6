package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"miftah-backend/internal/handlers"
	"miftah-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	studySetHandler *handlers.StudySetHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Generation is the expensive path (one LLM call per request).
	generateLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/study-sets", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Group(func(r chi.Router) {
				r.Use(generateLimiter.Middleware)
				r.Post("/generate", studySetHandler.Generate)
			})

			r.Get("/", studySetHandler.List)
			r.Get("/{id}", studySetHandler.Get)
			r.Get("/{id}/summary", studySetHandler.Summary)
			r.Put("/{id}/share", studySetHandler.ToggleShare)
			r.Delete("/{id}", studySetHandler.Delete)
		})
	})

	return r
}
