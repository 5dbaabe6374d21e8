package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/foodhub/internal/logging"
	"github.com/gorilla/mux"
)

// NewRouter wires the public, rate-limited and protected routes.
func NewRouter(h *Handlers, limiter *RateLimiter, logger logging.Logger) *mux.Router {
	r := mux.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(Logging(logger))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.Handle("/auth/register", limiter.Middleware(http.HandlerFunc(h.Register))).Methods(http.MethodPost)
	v1.Handle("/auth/login", limiter.Middleware(http.HandlerFunc(h.Login))).Methods(http.MethodPost)
	v1.Handle("/auth/guest", limiter.Middleware(http.HandlerFunc(h.Guest))).Methods(http.MethodPost)
	v1.HandleFunc("/auth/refresh", h.Refresh).Methods(http.MethodPost)
	v1.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)

	protected := v1.NewRoute().Subrouter()
	protected.Use(Authenticate(h.tokens, h.cookies, logger))
	protected.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	protected.Handle("/media/uploads", RequireRegistered(http.HandlerFunc(h.CreateUpload))).Methods(http.MethodPost)

	return r
}
