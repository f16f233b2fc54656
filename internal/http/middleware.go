package http

import (
	"context"
	"net/http"
)

type contextKey string

const (
	customerIDKey contextKey = "customer_id"
	sessionIDKey  contextKey = "session_id"
)

// IdentityMiddleware lifts the caller's identity from headers populated by
// the edge (token validation happens there, not here). A request may carry a
// customer id, a session id, or both during a merge.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if customerID := r.Header.Get("X-Customer-ID"); customerID != "" {
			ctx = context.WithValue(ctx, customerIDKey, customerID)
		}
		if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
			ctx = context.WithValue(ctx, sessionIDKey, sessionID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func customerIDFromContext(ctx context.Context) string {
	if customerID, ok := ctx.Value(customerIDKey).(string); ok {
		return customerID
	}
	return ""
}

func sessionIDFromContext(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}
