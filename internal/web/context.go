package web

import (
	"log/slog"
	"net"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/logging"
)

// requestLogger returns a request-scoped logger carrying the client address
// and user agent next to args.
func requestLogger(r *http.Request, args ...any) *slog.Logger {
	fields := append([]any{"ip", clientIP(r), "user_agent", r.UserAgent()}, args...)
	return logging.WithFields(r.Context(), fields...)
}

// clientIP strips the port from RemoteAddr. TrustedRealIP has already
// replaced it with the forwarded address when the peer is a trusted proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// withOrigin records who sent the request so that stored imports can be
// traced back in the import history.
func withOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithOrigin(r.Context(), core.Origin{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
			RequestID: chimw.GetReqID(r.Context()),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
