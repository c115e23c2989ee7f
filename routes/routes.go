package routes

import (
	"net/http"
	"time"

	"github.com/docsmith/backend/app"
	"github.com/docsmith/backend/handlers"
	"github.com/docsmith/backend/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(propagateRequestID)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   deps.Config.CORS.AllowedMethods,
		AllowedHeaders:   deps.Config.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           deps.Config.CORS.MaxAge,
	}))

	// Authentication and the route policy table cover every route, health
	// checks included. The policy decides which routes are public.
	r.Use(deps.AuthMiddleware.Authenticate)
	r.Use(deps.AuthzMiddleware.Authorize)

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Logger)
	userHandler := handlers.NewUserHandler(deps.Identity, deps.Logger)
	pdfHandler := handlers.NewPDFHandler(deps.PDF, deps.Logger)

	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.HandleListUsers)
			r.Get("/me", userHandler.HandleCurrentUser)
		})

		r.Route("/pdf", func(r chi.Router) {
			r.Post("/generate", pdfHandler.HandleRenderHTML)
			r.Post("/generate-from-url", pdfHandler.HandleRenderURL)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}

// propagateRequestID copies chi's request ID into the application context key
// so handlers and middleware can log it.
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
			ctx = middleware.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
