// Package identity resolves the caller identity that scopes connection state.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
)

const (
	// CallerHeaderName carries the caller identity on each request. Callers
	// without one share the default identity.
	CallerHeaderName = "X-Caller-ID"
	DefaultCallerID  = "default"
)

type contextKey int

const callerIDKey contextKey = iota

var callerIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// CallerIDFromContext extracts the caller ID from the request context.
func CallerIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(callerIDKey).(string); ok {
		return v
	}
	return DefaultCallerID
}

func sanitizeCallerID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !callerIDPattern.MatchString(id) {
		return DefaultCallerID
	}
	return id
}

func callerIDFromRequest(r *http.Request) string {
	id := r.Header.Get(CallerHeaderName)
	if id == "" {
		id = r.URL.Query().Get("caller_id")
	}
	return sanitizeCallerID(id)
}

// Middleware injects the caller identity into the request context.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), callerIDKey, callerIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
