package http

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/cors"
)

// CORSOptions configures the cross-origin policy for the server's HTTP
// entry points (/process, /healthz, /readyz, /metrics).
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSOptions returns a permissive-by-default policy suitable for a
// locally developed server, overridden in any real deployment via
// FromEnvironment.
func DefaultCORSOptions() CORSOptions {
	return CORSOptions{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}
}

// FromEnvironment builds CORSOptions from CORS_ALLOWED_ORIGINS,
// CORS_ALLOWED_METHODS, CORS_ALLOWED_HEADERS, CORS_EXPOSED_HEADERS,
// CORS_ALLOW_CREDENTIALS, and CORS_MAX_AGE, falling back to
// DefaultCORSOptions for any unset variable.
func FromEnvironment() CORSOptions {
	opts := DefaultCORSOptions()

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		opts.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("CORS_ALLOWED_METHODS"); v != "" {
		opts.AllowedMethods = splitCSV(v)
	}
	if v := os.Getenv("CORS_ALLOWED_HEADERS"); v != "" {
		opts.AllowedHeaders = splitCSV(v)
	}
	if v := os.Getenv("CORS_EXPOSED_HEADERS"); v != "" {
		opts.ExposedHeaders = splitCSV(v)
	}
	if v := os.Getenv("CORS_ALLOW_CREDENTIALS"); v != "" {
		opts.AllowCredentials = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("CORS_MAX_AGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.MaxAge = n
		}
	}

	return opts
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Handler returns middleware enforcing opts via go-chi/cors.
func Handler(opts CORSOptions) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   opts.AllowedMethods,
		AllowedHeaders:   opts.AllowedHeaders,
		ExposedHeaders:   opts.ExposedHeaders,
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           opts.MaxAge,
	})
}
