package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

// memoryRedis is a map-backed RedisClient.
type memoryRedis struct {
	data map[string]string
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: make(map[string]string)}
}

func (m *memoryRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memoryRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memoryRedis) keys() []string {
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func saveAndCookie(t *testing.T, store session.Store, req *http.Request, sess *session.Session) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, store.Save(rr, req, sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func loadWith(t *testing.T, store session.Store, cookie *http.Cookie) *session.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, err := store.Load(req)
	require.NoError(t, err)
	return sess
}

func TestRedisStore_RenewIssuesNewID(t *testing.T) {
	rdb := newMemoryRedis()
	store := session.NewRedisStore(rdb, []byte(testSecret), "storefront-session", 600, false)

	// Anonymous visitor gets an id by filling a cart.
	req := httptest.NewRequest(http.MethodPost, "/cart/items/1", nil)
	anon, err := store.Load(req)
	require.NoError(t, err)
	require.NoError(t, anon.Set("cart", map[string]int{"1": 1}))
	planted := saveAndCookie(t, store, req, anon)
	anonID := anon.ID()
	require.NotEmpty(t, anonID)

	// Someone logs in while presenting that cookie.
	sess := loadWith(t, store, planted)
	require.Equal(t, anonID, sess.ID())
	sess.Renew()
	require.NoError(t, sess.Set("user_id", "u-1"))
	fresh := saveAndCookie(t, store, req, sess)

	assert.NotEqual(t, anonID, sess.ID())
	assert.Equal(t, []string{"storefront:session:" + sess.ID()}, rdb.keys())

	stale := loadWith(t, store, planted)
	assert.Equal(t, 0, stale.Len(), "the pre-login id must not resolve any more")

	current := loadWith(t, store, fresh)
	var cart map[string]int
	found, err := current.Get("cart", &cart)
	require.NoError(t, err)
	assert.True(t, found, "renewal keeps the values")
}

func TestRedisStore_ClearDropsEverything(t *testing.T) {
	rdb := newMemoryRedis()
	store := session.NewRedisStore(rdb, []byte(testSecret), "storefront-session", 600, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.Load(req)
	require.NoError(t, err)
	require.NoError(t, sess.Set("user_id", "u-1"))
	require.NoError(t, sess.Set("cart", map[string]int{"2": 3}))
	old := saveAndCookie(t, store, req, sess)
	oldID := sess.ID()

	loaded := loadWith(t, store, old)
	loaded.Clear()
	assert.Equal(t, 0, loaded.Len())
	saveAndCookie(t, store, req, loaded)

	assert.NotEqual(t, oldID, loaded.ID())
	assert.NotContains(t, rdb.keys(), "storefront:session:"+oldID)
	assert.Equal(t, 0, loadWith(t, store, old).Len())
}

func openRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("REDIS_ADDR_TEST not set, skipping Redis integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisStore_RoundTrip(t *testing.T) {
	rdb := openRedis(t)
	store := session.NewRedisStore(rdb, []byte(testSecret), "storefront-session", 600, false)
	require.NoError(t, store.Ping(context.Background()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.Load(req)
	require.NoError(t, err)
	assert.Empty(t, sess.ID())
	require.NoError(t, sess.Set("cart", map[string]int{"1": 4}))

	rr := httptest.NewRecorder()
	require.NoError(t, store.Save(rr, req, sess))
	require.NotEmpty(t, sess.ID())
	t.Cleanup(func() { rdb.Del(context.Background(), "storefront:session:"+sess.ID()) })

	ttl, err := rdb.TTL(context.Background(), "storefront:session:"+sess.ID()).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, sess.ID(), cookies[0].Value, "cookie must carry the signed id")

	next := httptest.NewRequest(http.MethodGet, "/cart", nil)
	next.AddCookie(cookies[0])
	loaded, err := store.Load(next)
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), loaded.ID())

	var cart map[string]int
	found, err := loaded.Get("cart", &cart)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]int{"1": 4}, cart)
}

func TestRedisStore_ExpiredSessionStartsEmpty(t *testing.T) {
	rdb := openRedis(t)
	store := session.NewRedisStore(rdb, []byte(testSecret), "storefront-session", 600, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.Load(req)
	require.NoError(t, err)
	require.NoError(t, sess.Set("user_id", "u-1"))
	rr := httptest.NewRecorder()
	require.NoError(t, store.Save(rr, req, sess))

	require.NoError(t, rdb.Del(context.Background(), "storefront:session:"+sess.ID()).Err())

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(rr.Result().Cookies()[0])
	loaded, err := store.Load(next)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}
