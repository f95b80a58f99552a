package authgate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/opensensing/pushdash/internal/apiclient"
)

type fakeLogin struct {
	err   error
	calls int
}

func (f *fakeLogin) Login(ctx context.Context, username, password string) (string, error) {
	f.calls++
	return "hash", f.err
}

func newTestGate(client LoginClient) *Gate {
	return New(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func unauthorizedErr() error {
	return &apiclient.Error{Status: http.StatusUnauthorized, Message: "session expired"}
}

func TestInitialStateIsUnknown(t *testing.T) {
	t.Parallel()

	if got := newTestGate(&fakeLogin{}).State(); got != StateUnknown {
		t.Fatalf("expected unknown initial state, got %s", got)
	}
}

func TestObserveUnauthorizedTransitions(t *testing.T) {
	t.Parallel()

	gate := newTestGate(&fakeLogin{})
	if !gate.Observe(unauthorizedErr()) {
		t.Fatal("expected unauthorized error to be consumed")
	}
	if gate.State() != StateUnauthorized {
		t.Fatalf("expected unauthorized state, got %s", gate.State())
	}
}

func TestObserveGenericErrorStaysOnErrorPath(t *testing.T) {
	t.Parallel()

	gate := newTestGate(&fakeLogin{})
	if gate.Observe(&apiclient.Error{Status: http.StatusInternalServerError}) {
		t.Fatal("500 must not be consumed by the gate")
	}
	if gate.Observe(errors.New("connection refused")) {
		t.Fatal("network error must not be consumed by the gate")
	}
	if gate.State() != StateUnknown {
		t.Fatalf("expected unknown state, got %s", gate.State())
	}
}

func TestObserveSuccessConfirmsSession(t *testing.T) {
	t.Parallel()

	gate := newTestGate(&fakeLogin{})
	gate.Observe(nil)
	if gate.State() != StateAuthorized {
		t.Fatalf("expected authorized state, got %s", gate.State())
	}
}

func TestUnauthorizedIsStickyUntilLogin(t *testing.T) {
	t.Parallel()

	gate := newTestGate(&fakeLogin{})
	gate.Observe(unauthorizedErr())
	gate.Observe(nil)
	if gate.State() != StateUnauthorized {
		t.Fatal("gate must not leave unauthorized without an explicit login")
	}
}

func TestLoginReplaysPendingActions(t *testing.T) {
	t.Parallel()

	client := &fakeLogin{}
	gate := newTestGate(client)
	gate.Observe(unauthorizedErr())

	var order []string
	gate.Defer(context.Background(), func(ctx context.Context) { order = append(order, "catalog") })
	gate.Defer(context.Background(), func(ctx context.Context) { order = append(order, "list") })

	if err := gate.Login(context.Background(), "ada", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if gate.State() != StateAuthorized {
		t.Fatalf("expected authorized state, got %s", gate.State())
	}
	if len(order) != 2 || order[0] != "catalog" || order[1] != "list" {
		t.Fatalf("pending actions replayed out of order: %v", order)
	}

	// A second login is rejected; the pending queue was drained.
	if err := gate.Login(context.Background(), "ada", "pw"); !errors.Is(err, ErrNotUnauthorized) {
		t.Fatalf("expected ErrNotUnauthorized, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected one credential exchange, got %d", client.calls)
	}
}

func TestFailedLoginStaysUnauthorized(t *testing.T) {
	t.Parallel()

	gate := newTestGate(&fakeLogin{err: unauthorizedErr()})
	gate.Observe(unauthorizedErr())

	ran := false
	gate.Defer(context.Background(), func(ctx context.Context) { ran = true })

	if err := gate.Login(context.Background(), "ada", "wrong"); err == nil {
		t.Fatal("expected login failure")
	}
	if gate.State() != StateUnauthorized {
		t.Fatalf("expected unauthorized state, got %s", gate.State())
	}
	if ran {
		t.Fatal("pending action must not run after a failed login")
	}
}

func TestDeferRunsImmediatelyWhenAuthorized(t *testing.T) {
	t.Parallel()

	gate := newTestGate(&fakeLogin{})
	gate.Observe(nil)

	ran := false
	gate.Defer(context.Background(), func(ctx context.Context) { ran = true })
	if !ran {
		t.Fatal("expected action to run immediately while authorized")
	}
}
