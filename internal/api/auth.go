package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/kalambet/larder/internal/tools"
)

// UserHeader names the request header carrying the acting user.
const UserHeader = "X-User-ID"

const maxUserIDLen = 128

type ctxKey int

const userKey ctxKey = iota

// UserScope attaches the acting user to the request context. The user
// comes from the X-User-ID header, or defaultUser when the header is
// absent. It scopes data only; it does not authenticate.
func UserScope(defaultUser string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(UserHeader))
			if id == "" {
				id = defaultUser
			}
			if id == "" {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "missing %s header", UserHeader)
				return
			}
			if len(id) > maxUserIDLen {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%s longer than %d bytes", UserHeader, maxUserIDLen)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, tools.UserContext{UserID: id})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFrom(ctx context.Context) tools.UserContext {
	uc, _ := ctx.Value(userKey).(tools.UserContext)
	return uc
}
