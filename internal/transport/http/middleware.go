package http

import (
	"net/http"

	"github.com/shopcore/fulfillment/internal/audit"
)

// CallerInfo stashes the caller's address and user agent in the request
// context so audit events emitted downstream can carry them.
func CallerInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.ContextWithCaller(r.Context(), audit.CallerInfo{
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
