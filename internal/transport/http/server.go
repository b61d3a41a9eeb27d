package http

import (
	"net/http"
	"time"

	"github.com/UserDirectory/internal/app"
	"github.com/UserDirectory/pkg/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewConfiguredRateLimiter builds the per-client limiter for the session routes.
func NewConfiguredRateLimiter(cfg *config.Config) *RateLimiter {
	return NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

func NewHTTPServer(cfg *config.Config, registry *app.SessionRegistry, limiter *RateLimiter) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewRouter(registry, cfg.AvatarBaseURL, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the screen API. limiter may be nil.
func NewRouter(registry *app.SessionRegistry, avatarBaseURL string, limiter *RateLimiter) *mux.Router {
	h := &Handler{registry: registry, avatarBaseURL: avatarBaseURL}

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	s := r.PathPrefix("/sessions").Subrouter()
	if limiter != nil {
		s.Use(limiter.Middleware)
	}
	s.HandleFunc("", h.Mount).Methods(http.MethodPost)
	s.HandleFunc("/{id}", h.View).Methods(http.MethodGet)
	s.HandleFunc("/{id}", h.Unmount).Methods(http.MethodDelete)
	s.HandleFunc("/{id}/more", h.EndReached).Methods(http.MethodPost)
	s.HandleFunc("/{id}/refresh", h.Refresh).Methods(http.MethodPost)
	s.HandleFunc("/{id}/retry", h.Retry).Methods(http.MethodPost)
	s.HandleFunc("/{id}/search", h.Search).Methods(http.MethodPut)
	s.HandleFunc("/{id}/users/{userID:[0-9]+}", h.UserDetail).Methods(http.MethodGet)

	return r
}
