package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserIDCtxKey contextKey = "userID"

	UserIDHeader  = "X-User-ID"
	AnonymousUser = "anonymous"
)

// Identity records who is submitting. It identifies, it does not
// authenticate: a missing header is the anonymous user.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			userID = AnonymousUser
		}
		ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Helper to get user ID from context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}
