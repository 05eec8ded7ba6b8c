package guard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	GrantCookieName   = "devAccessGranted"
	GrantValue        = "true"
	GrantCookieTTL    = 30 * 24 * time.Hour
	SessionCookieName = "gx_sid"
)

// GrantStore persists the access gate's "granted" outcome for a client.
type GrantStore interface {
	HasGrant(r *http.Request) bool
	Grant(w http.ResponseWriter, r *http.Request) error
}

// CookieGrantStore keeps the grant in a 30-day cookie.
type CookieGrantStore struct {
	Codec  CookieCodec
	Secure bool
}

func (s CookieGrantStore) HasGrant(r *http.Request) bool {
	c, err := r.Cookie(GrantCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	v, ok := s.Codec.Decode(c.Value)
	return ok && v == GrantValue
}

func (s CookieGrantStore) Grant(w http.ResponseWriter, _ *http.Request) error {
	setCookie(w, GrantCookieName, s.Codec.Encode(GrantValue), GrantCookieTTL, s.Secure, true)
	return nil
}

// SessionBackend records which sessions hold a grant.
type SessionBackend interface {
	Has(ctx context.Context, sessionID string) (bool, error)
	Put(ctx context.Context, sessionID string, ttl time.Duration) error
}

// SessionGrantStore keeps the grant for the lifetime of a browser session:
// the session cookie carries no expiry and the backend entry expires after
// TTL as an upper bound.
type SessionGrantStore struct {
	Backend SessionBackend
	Codec   CookieCodec
	Secure  bool
	TTL     time.Duration
}

func (s SessionGrantStore) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return s.Codec.Decode(c.Value)
}

func (s SessionGrantStore) HasGrant(r *http.Request) bool {
	id, ok := s.sessionID(r)
	if !ok || s.Backend == nil {
		return false
	}
	has, err := s.Backend.Has(r.Context(), id)
	return err == nil && has
}

func (s SessionGrantStore) Grant(w http.ResponseWriter, r *http.Request) error {
	if s.Backend == nil {
		return errors.New("session grant store: no backend")
	}
	id, ok := s.sessionID(r)
	if !ok {
		id = uuid.NewString()
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := s.Backend.Put(r.Context(), id, ttl); err != nil {
		return fmt.Errorf("store session grant: %w", err)
	}
	setCookie(w, SessionCookieName, s.Codec.Encode(id), 0, s.Secure, true)
	return nil
}

type MemoryBackend struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{now: time.Now, entries: make(map[string]time.Time)}
}

func (m *MemoryBackend) Has(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[sessionID]
	if !ok {
		return false, nil
	}
	if !m.now().Before(exp) {
		delete(m.entries, sessionID)
		return false, nil
	}
	return true, nil
}

func (m *MemoryBackend) Put(_ context.Context, sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[sessionID] = m.now().Add(ttl)
	return nil
}

type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: "gx:grant:"}
}

// OpenRedis connects and pings with a short timeout.
func OpenRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (b *RedisBackend) Has(ctx context.Context, sessionID string) (bool, error) {
	v, err := b.client.Get(ctx, b.prefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == GrantValue, nil
}

func (b *RedisBackend) Put(ctx context.Context, sessionID string, ttl time.Duration) error {
	return b.client.Set(ctx, b.prefix+sessionID, GrantValue, ttl).Err()
}
