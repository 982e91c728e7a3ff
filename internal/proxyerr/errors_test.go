//nolint:revive // "proxyerr" is an intentional package name for cross-cutting errors.
package proxyerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindSessionNotFound, "session sess_abc not found")
	if got := KindOf(err); got != KindSessionNotFound {
		t.Errorf("Expected session_not_found, got %s", got)
	}

	wrapped := fmt.Errorf("touch session: %w", err)
	if got := KindOf(wrapped); got != KindSessionNotFound {
		t.Errorf("Expected kind to survive wrapping, got %s", got)
	}

	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("Expected internal for plain errors, got %s", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUpstreamUnavailable, "search tools", cause)

	if !errors.Is(err, cause) {
		t.Error("Expected wrapped error to match cause via errors.Is")
	}
	if !Is(err, KindUpstreamUnavailable) {
		t.Error("Expected upstream_unavailable kind")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(KindTimeout) || !Retryable(KindUpstreamUnavailable) {
		t.Error("Expected timeout and upstream_unavailable to be retryable")
	}
	for _, k := range []Kind{KindInvalidRequest, KindSessionNotFound, KindCatalog, KindNotConnected, KindUnknownApplication, KindUpstreamRejected} {
		if Retryable(k) {
			t.Errorf("Expected %s to be non-retryable", k)
		}
	}
}
