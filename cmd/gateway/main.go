// The gateway binary fronts the BOM service and the quoting API on a
// single port, routing by path prefix the way the public deployment
// exposes them.
package main

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"

	"github.com/noah-isme/bakery-quote/internal/obs"
)

// hop-by-hop headers must not be forwarded between connections.
var hopByHop = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailers":            {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// bomPaths are served by the BOM service even without the /api prefix.
var bomPaths = map[string]struct{}{
	"/estimate":  {},
	"/job-types": {},
	"/healthz":   {},
}

func main() {
	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "json"), envOrDefault("OBS_LOG_LEVEL", "info")).
		With().Str("service", "bakery-gateway").Logger()

	bomURL, err := url.Parse(envOrDefault("BOM_UPSTREAM", "http://127.0.0.1:8000"))
	if err != nil {
		logger.Fatal().Err(err).Msg("parse BOM_UPSTREAM")
	}
	apiURL, err := url.Parse(envOrDefault("API_UPSTREAM", "http://127.0.0.1:8080"))
	if err != nil {
		logger.Fatal().Err(err).Msg("parse API_UPSTREAM")
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			path := pr.In.URL.Path
			if strings.HasPrefix(path, "/api/") {
				pr.SetURL(bomURL)
				trimmed := strings.TrimPrefix(path, "/api")
				if trimmed == "" {
					trimmed = "/"
				}
				pr.Out.URL.Path = trimmed
			} else if _, ok := bomPaths[path]; ok {
				pr.SetURL(bomURL)
			} else {
				pr.SetURL(apiURL)
			}
			stripHopByHop(pr.Out.Header)
			pr.SetXForwarded()
		},
		ModifyResponse: func(resp *http.Response) error {
			stripHopByHop(resp.Header)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error().Err(err).Str("path", r.URL.Path).Msg("upstream error")
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("Upstream error: " + err.Error()))
		},
	}

	addr := ":" + envOrDefault("GATEWAY_PORT", "10000")
	srv := &http.Server{Addr: addr, Handler: proxy}

	logger.Info().Str("addr", addr).Msg("gateway starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("gateway exited unexpectedly")
	}
}

func stripHopByHop(h http.Header) {
	for name := range hopByHop {
		h.Del(name)
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
