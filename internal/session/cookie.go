package session

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
)

// CookieStore keeps the whole session in a signed cookie.
type CookieStore struct {
	store *sessions.CookieStore
	name  string
}

func NewCookieStore(secret []byte, name string, maxAge int, secure bool) *CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	// Sets Options.MaxAge and the signature expiry together.
	store.MaxAge(maxAge)
	return &CookieStore{store: store, name: name}
}

func (c *CookieStore) Load(r *http.Request) (*Session, error) {
	gs, err := c.store.Get(r, c.name)
	if err != nil {
		// Tampered or stale cookie, start over.
		log.Debug().Err(err).Msg("Discarding undecodable session cookie")
		return New(), nil
	}

	s := New()
	for k, v := range gs.Values {
		key, ok := k.(string)
		if !ok {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			continue
		}
		s.values[key] = json.RawMessage(raw)
	}
	return s, nil
}

func (c *CookieStore) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	if !s.modified {
		return nil
	}

	gs := sessions.NewSession(c.store, c.name)
	opts := *c.store.Options
	gs.Options = &opts
	for k, v := range s.values {
		gs.Values[k] = string(v)
	}

	if err := c.store.Save(r, w, gs); err != nil {
		return fmt.Errorf("session: failed to write cookie: %w", err)
	}
	s.modified = false
	return nil
}
