// The bom binary serves recipe scaling as a standalone service so the
// quoting API can treat bill-of-materials estimation as an external
// dependency.
package main

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/noah-isme/bakery-quote/internal/bom"
	"github.com/noah-isme/bakery-quote/internal/obs"
)

func main() {
	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "json"), envOrDefault("OBS_LOG_LEVEL", "info")).
		With().Str("service", "bakery-bom").Logger()

	handler := bom.Handler{}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)

	r.Get("/job-types", handler.JobTypes)
	r.Post("/estimate", handler.Estimate)
	r.Get("/healthz", handler.Healthz)

	addr := ":" + envOrDefault("BOM_PORT", "8000")
	srv := &http.Server{Addr: addr, Handler: r}

	logger.Info().Str("addr", addr).Msg("bom service starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("bom service exited unexpectedly")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
