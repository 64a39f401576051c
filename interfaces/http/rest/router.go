// Package rest wires the HTTP surface: the signed interactions webhook,
// the authorization callback, and health.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"muse-backend/application/dispatcher"
	"muse-backend/application/ports"
	"muse-backend/infrastructure/spotify"
	"muse-backend/interfaces/http/rest/handlers"
	"muse-backend/interfaces/http/rest/middleware"
	"muse-backend/pkg/auth"
	apperrors "muse-backend/pkg/errors"
)

// Router creates and configures the HTTP router
type Router struct {
	dispatcher    *dispatcher.Dispatcher
	signer        *auth.StateSigner
	authenticator *spotify.Authenticator
	store         ports.Store
	publicKey     string
	logger        *zap.Logger
	debug         bool
}

// NewRouter creates a new router instance
func NewRouter(
	d *dispatcher.Dispatcher,
	signer *auth.StateSigner,
	authenticator *spotify.Authenticator,
	store ports.Store,
	publicKey string,
	logger *zap.Logger,
	debug bool,
) *Router {
	return &Router{
		dispatcher:    d,
		signer:        signer,
		authenticator: authenticator,
		store:         store,
		publicKey:     publicKey,
		logger:        logger,
		debug:         debug,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Signature-Ed25519", "X-Signature-Timestamp"},
		MaxAge:         300,
	}))

	errorHandler := apperrors.NewErrorHandler(rt.logger, rt.debug)

	router.Get("/health", rt.healthCheck)

	interactionHandler := handlers.NewInteractionHandler(rt.dispatcher, errorHandler, rt.logger)
	router.Route("/interactions", func(r chi.Router) {
		r.Use(middleware.VerifySignature(rt.publicKey, errorHandler, rt.logger))
		r.Post("/", interactionHandler.Handle)
	})

	callbackHandler := handlers.NewCallbackHandler(rt.signer, rt.authenticator, rt.logger)
	router.Get("/callback", callbackHandler.Handle)

	return router
}

// healthCheck reports liveness plus a store round-trip
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := `{"status":"healthy"}`
	if _, _, err := rt.store.Get(ctx, "health:probe"); err != nil {
		rt.logger.Warn("health store probe failed", zap.Error(err))
		status = http.StatusServiceUnavailable
		body = `{"status":"degraded","store":"unreachable"}`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
