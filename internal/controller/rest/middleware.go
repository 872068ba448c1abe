package rest

import (
	"context"
	"net/http"
	"strings"
)

type userCtxKey string

const userIDKey userCtxKey = "userID"

// TokenParser resolves a bearer token to the user id it was issued for.
type TokenParser interface {
	ParseToken(token string) (int64, error)
}

// Authenticator rejects requests without a valid bearer token: 403 when none is
// presented, 401 when it does not verify.
func Authenticator(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				RespondError(w, http.StatusForbidden, "authorization token is required")
				return
			}

			userID, err := tokens.ParseToken(strings.TrimSpace(tokenString))
			if err != nil {
				RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}
