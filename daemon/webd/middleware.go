package webd

import (
	"log/slog"
	"net/http"
	"os"

	ghandlers "github.com/gorilla/handlers"
)

// tokenAuthenticationMiddleware checks for a valid token in the X-Fieldcat-Token header
// or the api_token query parameter, returning 403 Forbidden on a mismatch.
// If FIELDCAT_TOKEN is not set, it allows all requests.
func tokenAuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		validToken := os.Getenv("FIELDCAT_TOKEN")
		if validToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Fieldcat-Token")
		if token == "" {
			token = r.URL.Query().Get("api_token")
		}
		if token != validToken {
			slog.Warn("Invalid token", "method", r.Method, "url", r.URL.Path,
				"remote-addr", r.RemoteAddr, "user-agent", r.UserAgent())
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func permissiveCorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Add("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, X-Fieldcat-Token")
		w.Header().Add("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		next.ServeHTTP(w, r)
	})
}

func contentTypeMiddlewareFunc(contentType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware writes an Apache Combined Log Format line per request to stderr.
func loggingMiddleware(next http.Handler) http.Handler {
	return ghandlers.CombinedLoggingHandler(os.Stderr, next)
}
