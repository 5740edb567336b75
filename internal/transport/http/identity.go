package http

import (
	"context"
	"net/http"
	"strings"
)

// callerHeader carries the opaque caller identity set by the upstream
// auth gateway. The reservation core never interprets it beyond
// equality.
const callerHeader = "X-Caller-Id"

type callerKey struct{}

// CallerIdentity extracts the caller id into the request context and
// rejects requests without one.
func CallerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := strings.TrimSpace(r.Header.Get(callerHeader))
		if caller == "" {
			writeError(w, http.StatusUnauthorized, codeCallerRequired, "caller identity required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func callerFromContext(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}
