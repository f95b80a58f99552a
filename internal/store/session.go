package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the persisted cookie state for one backend host.
type Session struct {
	Host      string
	Username  string
	Cookies   []*http.Cookie
	UpdatedAt time.Time
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Domain  string    `json:"domain,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
	Secure  bool      `json:"secure,omitempty"`
}

// SaveSession upserts the session cookies for a backend host.
func (s *Store) SaveSession(ctx context.Context, host, username string, cookies []*http.Cookie) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return fmt.Errorf("session host is required")
	}

	stored := make([]storedCookie, 0, len(cookies))
	for _, cookie := range cookies {
		stored = append(stored, storedCookie{
			Name:    cookie.Name,
			Value:   cookie.Value,
			Path:    cookie.Path,
			Domain:  cookie.Domain,
			Expires: cookie.Expires,
			Secure:  cookie.Secure,
		})
	}
	encoded, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode session cookies: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (host, username, cookies, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(host) DO UPDATE SET
			username = excluded.username,
			cookies = excluded.cookies,
			updated_at = excluded.updated_at
	`, host, strings.TrimSpace(username), string(encoded))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the persisted session for a backend host.
func (s *Store) LoadSession(ctx context.Context, host string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT host, username, cookies, updated_at FROM sessions WHERE host = ?
	`, strings.TrimSpace(host))

	var session Session
	var encoded string
	var updatedAt string
	if err := row.Scan(&session.Host, &session.Username, &encoded, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(encoded), &stored); err != nil {
		return Session{}, fmt.Errorf("decode session cookies: %w", err)
	}
	for _, cookie := range stored {
		session.Cookies = append(session.Cookies, &http.Cookie{
			Name:    cookie.Name,
			Value:   cookie.Value,
			Path:    cookie.Path,
			Domain:  cookie.Domain,
			Expires: cookie.Expires,
			Secure:  cookie.Secure,
		})
	}
	if parsed, err := time.Parse("2006-01-02 15:04:05", updatedAt); err == nil {
		session.UpdatedAt = parsed
	}
	return session, nil
}

// ClearSession drops the persisted session for a backend host, if any.
func (s *Store) ClearSession(ctx context.Context, host string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE host = ?`, strings.TrimSpace(host)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
