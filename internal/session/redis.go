package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "storefront:session:"

// RedisClient is the part of redis.Cmdable the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore keeps session values in Redis; the browser only holds a signed id.
type RedisStore struct {
	rdb    RedisClient
	codec  *securecookie.SecureCookie
	name   string
	maxAge int
	secure bool
}

func NewRedisStore(rdb RedisClient, secret []byte, name string, maxAge int, secure bool) *RedisStore {
	codec := securecookie.New(secret, nil)
	codec.MaxAge(maxAge)
	return &RedisStore{rdb: rdb, codec: codec, name: name, maxAge: maxAge, secure: secure}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (rs *RedisStore) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(rs.name)
	if err != nil {
		return New(), nil
	}

	var id string
	if err := rs.codec.Decode(rs.name, cookie.Value, &id); err != nil {
		log.Debug().Err(err).Msg("Discarding undecodable session id cookie")
		return New(), nil
	}

	data, err := rs.rdb.Get(r.Context(), redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return New(), nil
		}
		return nil, fmt.Errorf("session: failed to read session %s: %w", id, err)
	}

	s := New()
	if err := json.Unmarshal(data, &s.values); err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("Discarding corrupt session payload")
		return New(), nil
	}
	s.id = id
	return s, nil
}

func (rs *RedisStore) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	if !s.modified {
		return nil
	}

	if s.id == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("session: failed to generate session id: %w", err)
		}
		s.id = id.String()
	}

	data, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("session: failed to encode session %s: %w", s.id, err)
	}

	ttl := time.Duration(rs.maxAge) * time.Second
	if err := rs.rdb.Set(r.Context(), redisKey(s.id), data, ttl).Err(); err != nil {
		return fmt.Errorf("session: failed to store session %s: %w", s.id, err)
	}

	if s.retiredID != "" {
		if err := rs.rdb.Del(r.Context(), redisKey(s.retiredID)).Err(); err != nil {
			return fmt.Errorf("session: failed to drop renewed session %s: %w", s.retiredID, err)
		}
		s.retiredID = ""
	}

	encoded, err := rs.codec.Encode(rs.name, s.id)
	if err != nil {
		return fmt.Errorf("session: failed to sign session id: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     rs.name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   rs.maxAge,
		HttpOnly: true,
		Secure:   rs.secure,
		SameSite: http.SameSiteLaxMode,
	})

	s.modified = false
	return nil
}

// Ping checks the Redis connection.
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.rdb.Ping(ctx).Err()
}
