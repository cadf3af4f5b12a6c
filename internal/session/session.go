// Package session keeps per-visitor key/value state between requests.
//
// Values are stored as JSON so both backends share one representation and
// callers read them back into typed destinations.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type Session struct {
	id       string
	values   map[string]json.RawMessage
	modified bool

	// retiredID is the server-side key dropped by Renew, deleted on the next save.
	retiredID string
}

func New() *Session {
	return &Session{values: make(map[string]json.RawMessage)}
}

// ID is the server-side key of the session. Cookie-backed sessions have none.
func (s *Session) ID() string {
	return s.id
}

// Get decodes the value stored under key into dst and reports whether the key was present.
func (s *Session) Get(key string, dst any) (bool, error) {
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("session: failed to decode %q: %w", key, err)
	}
	return true, nil
}

func (s *Session) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("session: failed to encode %q: %w", key, err)
	}
	s.values[key] = raw
	s.modified = true
	return nil
}

func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.modified = true
	}
}

// Renew keeps the values but makes the next save issue a new server-side key
// and delete the old one. Call it whenever the session's privileges change.
func (s *Session) Renew() {
	if s.id != "" {
		s.retiredID = s.id
	}
	s.id = ""
	s.modified = true
}

// Clear drops every value and renews the session.
func (s *Session) Clear() {
	s.values = make(map[string]json.RawMessage)
	s.Renew()
}

// Modified reports whether the session changed since it was loaded.
func (s *Session) Modified() bool {
	return s.modified
}

func (s *Session) Len() int {
	return len(s.values)
}

// Store loads and persists sessions for an HTTP exchange.
type Store interface {
	Load(r *http.Request) (*Session, error)
	Save(w http.ResponseWriter, r *http.Request, s *Session) error
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session loaded by Middleware, or an empty unsaved
// session when none is attached.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok {
		return s
	}
	return New()
}
