// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/adhikaar-ai/adhikaar/internal/api"
	"github.com/adhikaar-ai/adhikaar/internal/api/themes"
	"github.com/adhikaar-ai/adhikaar/internal/config"
	"github.com/adhikaar-ai/adhikaar/internal/ratelimit"
	"github.com/adhikaar-ai/adhikaar/internal/store"
	"github.com/adhikaar-ai/adhikaar/internal/themeio"
)

func newServer(cfg *config.Config, themeStore *store.Store, limiter *ratelimit.Limiter) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	middleware := []api.Middleware{}
	if limiter != nil {
		middleware = append(middleware, limiter.Middleware)
	}
	middleware = append(middleware,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)
	handler := api.ChainMiddleware(router, middleware...)

	themes.InitHandlers(themeStore, themeio.New(themeStore))

	// Register routes
	registerRoutes(router)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	themes.RegisterRoutes(mux)
}
