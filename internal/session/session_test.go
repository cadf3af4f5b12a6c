package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

func TestSession_GetSetDelete(t *testing.T) {
	s := session.New()
	assert.False(t, s.Modified())

	var missing map[string]int
	found, err := s.Get("cart", &missing)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set("cart", map[string]int{"1": 2}))
	assert.True(t, s.Modified())

	var cart map[string]int
	found, err = s.Get("cart", &cart)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, map[string]int{"1": 2}, cart)

	var wrongType string
	_, err = s.Get("cart", &wrongType)
	assert.Error(t, err)

	s.Delete("cart")
	found, err = s.Get("cart", &cart)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, s.Len())
}

func TestSession_RenewAndClear(t *testing.T) {
	s := session.New()
	require.NoError(t, s.Set("cart", map[string]int{"1": 2}))
	require.NoError(t, s.Set("user_id", "u-1"))

	s.Renew()
	assert.True(t, s.Modified())
	assert.Empty(t, s.ID())
	assert.Equal(t, 2, s.Len())

	s.Clear()
	assert.True(t, s.Modified())
	assert.Equal(t, 0, s.Len())
}

func TestFromContext_WithoutSession(t *testing.T) {
	s := session.FromContext(context.Background())
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Len())
}

type failingStore struct{}

func (failingStore) Load(*http.Request) (*session.Session, error) {
	return nil, assert.AnError
}

func (failingStore) Save(http.ResponseWriter, *http.Request, *session.Session) error {
	return nil
}

func TestMiddleware(t *testing.T) {
	t.Run("attaches_session", func(t *testing.T) {
		store := session.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), "test-session", 3600, false)

		var seen *session.Session
		h := session.Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = session.FromContext(r.Context())
			require.NoError(t, seen.Set("last_category_id", 3))
			require.NoError(t, store.Save(w, r, seen))
		}))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotNil(t, seen)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Result().Cookies())
	})

	t.Run("load_failure", func(t *testing.T) {
		called := false
		h := session.Middleware(failingStore{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.False(t, called)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
	})
}
