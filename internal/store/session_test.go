package store

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestNewCreatesMissingDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "test.sqlite")
	s, err := New(path)
	if err != nil {
		t.Fatalf("new store under missing dir: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func TestSaveAndLoadSession(t *testing.T) {
	s := newTestStore(t)
	cookies := []*http.Cookie{{Name: "session", Value: "tok-1", Path: "/"}}

	if err := s.SaveSession(context.Background(), "sensors.example.org", "ada", cookies); err != nil {
		t.Fatalf("save session: %v", err)
	}

	session, err := s.LoadSession(context.Background(), "sensors.example.org")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if session.Username != "ada" {
		t.Fatalf("unexpected username: %s", session.Username)
	}
	if len(session.Cookies) != 1 || session.Cookies[0].Value != "tok-1" {
		t.Fatalf("unexpected cookies: %+v", session.Cookies)
	}
}

func TestSaveSessionUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveSession(ctx, "host", "ada", []*http.Cookie{{Name: "session", Value: "old"}}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := s.SaveSession(ctx, "host", "ada", []*http.Cookie{{Name: "session", Value: "new"}}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	session, err := s.LoadSession(ctx, "host")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if len(session.Cookies) != 1 || session.Cookies[0].Value != "new" {
		t.Fatalf("expected upserted cookie, got %+v", session.Cookies)
	}
}

func TestLoadMissingSession(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LoadSession(context.Background(), "nowhere"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestClearSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveSession(ctx, "host", "", []*http.Cookie{{Name: "session", Value: "tok"}}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := s.ClearSession(ctx, "host"); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	if _, err := s.LoadSession(ctx, "host"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected cleared session, got %v", err)
	}
	if err := s.ClearSession(ctx, "host"); err != nil {
		t.Fatalf("clearing an absent session must be a no-op, got %v", err)
	}
}

func TestSaveSessionRequiresHost(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveSession(context.Background(), "  ", "", nil); err == nil {
		t.Fatal("expected empty host to be rejected")
	}
}
