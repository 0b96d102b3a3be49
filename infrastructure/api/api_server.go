package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	wardrobe "github.com/stylo/wardrobe"
	apimiddleware "github.com/stylo/wardrobe/infrastructure/api/middleware"
	v1 "github.com/stylo/wardrobe/infrastructure/api/v1"
)

// APIServer provides the HTTP API backed by a wardrobe Client.
type APIServer struct {
	client       *wardrobe.Client
	corsOrigins  []string
	server       *Server
	router       chi.Router
	routerCalled bool
	logger       *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given Client.
// corsOrigins configures the allowed CORS origins for browser clients
// (SPEC_FULL.md §6, §11); an empty slice disables CORS headers entirely.
func NewAPIServer(client *wardrobe.Client, corsOrigins []string) *APIServer {
	return &APIServer{
		client:      client,
		corsOrigins: corsOrigins,
		logger:      client.Logger(),
	}
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
// If not called, ListenAndServe creates a default router with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up the v2 API routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

// mountRoutes wires up the suggestions endpoint on the given router, behind
// bearer auth and per-IP rate limiting (SPEC_FULL.md §6).
func (a *APIServer) mountRoutes(router chi.Router) {
	suggestionsRouter := v1.NewSuggestionsRouter(a.client)
	authConfig := apimiddleware.NewAuthConfigWithKeys(a.client.APIKeys())

	if len(a.corsOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.corsOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			MaxAge:           300,
			AllowCredentials: false,
		}))
	}

	router.Route("/v2/suggestions", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))
		r.Use(apimiddleware.RateLimit(apimiddleware.RateLimitPerMinute))
		r.Use(apimiddleware.Authenticate(authConfig))
		r.Mount("/", suggestionsRouter.Routes())
	})
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.logger)
	a.server = &server

	if a.routerCalled && a.router != nil {
		server.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(server.Router())
	}

	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}
