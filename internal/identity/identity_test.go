package identity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func callerSeenBy(t *testing.T, req *http.Request) string {
	t.Helper()
	var got string
	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CallerIDFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestCallerIDFromHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CallerHeaderName, "agent-42")

	if got := callerSeenBy(t, req); got != "agent-42" {
		t.Errorf("Expected agent-42, got %q", got)
	}
}

func TestCallerIDFromQueryFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?caller_id=agent-7", nil)

	if got := callerSeenBy(t, req); got != "agent-7" {
		t.Errorf("Expected agent-7, got %q", got)
	}
}

func TestMissingCallerIDDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if got := callerSeenBy(t, req); got != DefaultCallerID {
		t.Errorf("Expected default caller id, got %q", got)
	}
}

func TestMalformedCallerIDRejected(t *testing.T) {
	for _, bad := range []string{"has spaces", "semi;colon", strings.Repeat("x", 200)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CallerHeaderName, bad)

		if got := callerSeenBy(t, req); got != DefaultCallerID {
			t.Errorf("Caller id %q: expected default, got %q", bad, got)
		}
	}
}

func TestCallerIDFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := CallerIDFromContext(req.Context()); got != DefaultCallerID {
		t.Errorf("Expected default caller id, got %q", got)
	}
}
