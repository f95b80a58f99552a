// Package authgate tracks the session's authorization state. A backend 401 is
// a state transition, not a generic error: the console swaps to a login
// prompt and resumes the interrupted actions once login succeeds.
package authgate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/opensensing/pushdash/internal/apiclient"
)

// State is the gate's view of the session.
type State int

const (
	StateUnknown State = iota
	StateAuthorized
	StateUnauthorized
)

func (s State) String() string {
	switch s {
	case StateAuthorized:
		return "authorized"
	case StateUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// ErrNotUnauthorized is returned by Login when no login is required.
var ErrNotUnauthorized = errors.New("session is not in the unauthorized state")

// LoginClient performs the credential exchange.
type LoginClient interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Action is a unit of work to replay after a successful login.
type Action func(ctx context.Context)

type Gate struct {
	client LoginClient
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	pending []Action
}

func New(client LoginClient, logger *slog.Logger) *Gate {
	return &Gate{client: client, logger: logger, state: StateUnknown}
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Observe classifies the outcome of a backend call. An unauthorized error
// moves the gate to Unauthorized and is reported as consumed so callers keep
// it off the generic error path. A nil error confirms the session on first
// contact. The gate never leaves Unauthorized here; only Login does that.
func (g *Gate) Observe(err error) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if apiclient.IsUnauthorized(err) {
		if g.state != StateUnauthorized {
			g.logger.Warn("session unauthorized, login required")
		}
		g.state = StateUnauthorized
		return true
	}
	if err == nil && g.state == StateUnknown {
		g.state = StateAuthorized
	}
	return false
}

// Defer records an action to re-run after the next successful login. Actions
// queue only while the gate is unauthorized; otherwise they run immediately.
func (g *Gate) Defer(ctx context.Context, action Action) {
	if action == nil {
		return
	}
	g.mu.Lock()
	if g.state == StateUnauthorized {
		g.pending = append(g.pending, action)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	action(ctx)
}

// Login performs the credential exchange. On success the gate becomes
// Authorized and every pending action is replayed once, in the order it was
// deferred. A failed login leaves the gate unauthorized; there is no
// automatic retry.
func (g *Gate) Login(ctx context.Context, username, password string) error {
	g.mu.Lock()
	if g.state != StateUnauthorized {
		g.mu.Unlock()
		return ErrNotUnauthorized
	}
	g.mu.Unlock()

	if _, err := g.client.Login(ctx, username, password); err != nil {
		g.logger.Warn("login failed", "error", err)
		return err
	}

	g.mu.Lock()
	g.state = StateAuthorized
	pending := g.pending
	g.pending = nil
	g.mu.Unlock()

	g.logger.Info("login succeeded", "resumed_actions", len(pending))
	for _, action := range pending {
		action(ctx)
	}
	return nil
}
