package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/voxhub/toolproxy/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "toolproxy.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo
}

func TestInsertAndGetSession(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	sess := &domain.Session{ID: "sess_test", CreatedAt: now, LastTouchedAt: now}
	if err := repo.InsertSession(ctx, sess); err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "sess_test")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected session, got nil")
	}
	if got.ID != "sess_test" || !got.LastTouchedAt.Equal(now) {
		t.Errorf("Unexpected session: %+v", got)
	}
	if len(got.Discovered) != 0 {
		t.Errorf("Expected empty discovery log, got %v", got.Discovered)
	}
}

func TestGetSessionAbsent(t *testing.T) {
	repo := newTestStore(t)

	got, err := repo.GetSession(context.Background(), "sess_missing")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for absent session, got %+v", got)
	}
}

func TestTouchSession(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	created := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := repo.InsertSession(ctx, &domain.Session{ID: "sess_touch", CreatedAt: created, LastTouchedAt: created}); err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}

	touched := time.Now().Truncate(time.Second)
	if err := repo.TouchSession(ctx, "sess_touch", touched); err != nil {
		t.Fatalf("TouchSession failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "sess_touch")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !got.LastTouchedAt.Equal(touched) {
		t.Errorf("Expected last touched %v, got %v", touched, got.LastTouchedAt)
	}

	if err := repo.TouchSession(ctx, "sess_unknown", touched); err == nil {
		t.Error("Expected error touching unknown session")
	}
}

func TestAppendDiscovery(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	if err := repo.InsertSession(ctx, &domain.Session{ID: "sess_disc", CreatedAt: now, LastTouchedAt: now}); err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}

	if err := repo.AppendDiscovery(ctx, "sess_disc", []string{"GMAIL_SEND_EMAIL"}, now); err != nil {
		t.Fatalf("AppendDiscovery failed: %v", err)
	}
	if err := repo.AppendDiscovery(ctx, "sess_disc", []string{"GOOGLE_DOCS_CREATE", "SLACK_SEND_MESSAGE"}, now); err != nil {
		t.Fatalf("AppendDiscovery failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "sess_disc")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	want := []string{"GMAIL_SEND_EMAIL", "GOOGLE_DOCS_CREATE", "SLACK_SEND_MESSAGE"}
	if len(got.Discovered) != len(want) {
		t.Fatalf("Expected %d discovered slugs, got %v", len(want), got.Discovered)
	}
	for i, slug := range want {
		if got.Discovered[i] != slug {
			t.Errorf("Discovery log out of order at %d: got %q, want %q", i, got.Discovered[i], slug)
		}
	}

	if err := repo.AppendDiscovery(ctx, "sess_unknown", []string{"X_Y"}, now); err == nil {
		t.Error("Expected error appending to unknown session")
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-time.Hour)
	fresh := time.Now()
	if err := repo.InsertSession(ctx, &domain.Session{ID: "sess_old", CreatedAt: old, LastTouchedAt: old}); err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}
	if err := repo.InsertSession(ctx, &domain.Session{ID: "sess_fresh", CreatedAt: fresh, LastTouchedAt: fresh}); err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}

	deleted, err := repo.DeleteExpiredSessions(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted session, got %d", deleted)
	}

	if got, _ := repo.GetSession(ctx, "sess_old"); got != nil {
		t.Error("Expected expired session to be gone")
	}
	if got, _ := repo.GetSession(ctx, "sess_fresh"); got == nil {
		t.Error("Expected fresh session to survive")
	}
}
