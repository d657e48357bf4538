// Package cors provides the permissive CORS envelope every response from
// this service carries, and short-circuits preflight OPTIONS requests.
package cors

import "net/http"

// Config controls which origins are allowed.
type Config struct {
	// AllowedOrigins is sent verbatim as Access-Control-Allow-Origin.
	// Defaults to "*" if empty.
	AllowedOrigins string
}

// Middleware returns a chi-compatible middleware that sets the CORS
// envelope on every response and answers OPTIONS with 204.
func Middleware(cfg Config) func(next http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origins)
			h.Set("Access-Control-Allow-Methods", "GET, HEAD, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Range")
			h.Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")
			h.Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
