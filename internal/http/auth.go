package http

import (
	"context"
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type userKey struct{}

const maxUserIDLength = 128

// requireUser reads the caller identity set by the authenticating proxy.
// Requests without it are rejected with 401.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(s.userHeader))
		if user == "" || len(user) > maxUserIDLength {
			ErrorResponse(http.StatusUnauthorized, "missing or invalid "+s.userHeader+" header").Write(w)
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, core.UserID(user))
		ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldUserID, user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(ctx context.Context) core.UserID {
	user, _ := ctx.Value(userKey{}).(core.UserID)
	return user
}
