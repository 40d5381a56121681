package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"taskflow-backend/internal/handlers"
	"taskflow-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	taskHandler *handlers.TaskHandler,
	aiHandler *handlers.AIHandler,
	teamHandler *handlers.TeamHandler,
	dashboardHandler *handlers.DashboardHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Task Routes ────
		r.Route("/tasks", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", taskHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireManager("Only managers can create tasks"))
				r.Use(middleware.RequireNotDemo("creating tasks"))
				r.Post("/", taskHandler.Create)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireNotDemo("editing tasks"))
				r.Patch("/{id}", taskHandler.Update)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireManager("Only managers can delete tasks"))
				r.Use(middleware.RequireNotDemo("deleting tasks"))
				r.Delete("/{id}", taskHandler.Delete)
			})
		})

		// ──── AI Summary Routes ────
		r.Route("/ai", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/summary", aiHandler.GetSummary)
			r.Get("/rate-limit", aiHandler.RateLimit)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireNotDemo("generating summaries"))
				r.Post("/summary", aiHandler.GenerateSummary)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireManager("Only managers can regenerate the summary"))
				r.Use(middleware.RequireNotDemo("regenerating summaries"))
				r.Post("/regenerate", aiHandler.RegenerateSummary)
			})
		})

		// ──── Team & User Routes (manager only) ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireManager("Only managers can view the team"))
			r.Get("/users", teamHandler.ListUsers)
			r.Get("/team", teamHandler.Overview)
			r.Get("/team/{id}", teamHandler.Member)
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/stats", dashboardHandler.Stats)
		})
	})

	return r
}
