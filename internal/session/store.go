package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jask/agentdesk/internal/database"
	"github.com/jask/agentdesk/internal/database/repository"
	"github.com/jask/agentdesk/internal/secrets"
)

// Store is session-scoped storage for one value per session. Load returns ""
// with a nil error when nothing is cached or the session has ended.
type Store interface {
	Load(ctx context.Context, sessionID string) (string, error)
	Save(ctx context.Context, sessionID, value string) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore lives as long as the process.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[sessionID], nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[sessionID] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, sessionID)
	return nil
}

// SQLiteStore keeps values in sqlite; a row past its TTL counts as an ended
// session.
type SQLiteStore struct {
	repo *repository.CredentialRepo
	ttl  time.Duration
	now  func() time.Time
}

func NewSQLiteStore(repo *repository.CredentialRepo, ttl time.Duration) *SQLiteStore {
	return &SQLiteStore{repo: repo, ttl: ttl, now: database.Now}
}

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (string, error) {
	c, err := s.repo.Get(ctx, sessionID, s.now())
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	if c == nil {
		return "", nil
	}
	return c.Value, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sessionID, value string) error {
	now := s.now()
	err := s.repo.Upsert(ctx, repository.SessionCredential{
		SessionID: sessionID,
		Value:     value,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Prune drops rows of ended sessions.
func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	return s.repo.PruneExpired(ctx, s.now())
}

// RedisConfig describes the redis connection for RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore relies on key expiry to end sessions.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects and pings redis.
func NewRedisStore(ctx context.Context, cfg RedisConfig, ttl time.Duration) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis: address is required")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "agentdesk:session:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID + ":credential"
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (string, error) {
	v, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis: get credential: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID, value string) error {
	if err := s.client.Set(ctx, s.key(sessionID), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set credential: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis: delete credential: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Cache binds a Store to one session and seals values at rest.
type Cache struct {
	store     Store
	sealer    *secrets.Sealer
	sessionID string
}

// NewCache returns a Cache for sessionID. A nil sealer stores values as-is.
func NewCache(store Store, sealer *secrets.Sealer, sessionID string) *Cache {
	return &Cache{store: store, sealer: sealer, sessionID: sessionID}
}

func (c *Cache) SessionID() string { return c.sessionID }

// Get returns the cached credential or "".
func (c *Cache) Get(ctx context.Context) (string, error) {
	v, err := c.store.Load(ctx, c.sessionID)
	if err != nil || v == "" || c.sealer == nil {
		return v, err
	}
	return c.sealer.Open(v)
}

// Put caches credential for the rest of the session.
func (c *Cache) Put(ctx context.Context, credential string) error {
	v := credential
	if c.sealer != nil {
		sealed, err := c.sealer.Seal(credential)
		if err != nil {
			return err
		}
		v = sealed
	}
	return c.store.Save(ctx, c.sessionID, v)
}

// Clear forgets the cached credential.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Delete(ctx, c.sessionID)
}

// ResolveID returns configured when set. Otherwise it derives a stable ID from
// the host and the parent process, so every shell gets its own session the way
// every browser tab gets its own sessionStorage.
func ResolveID(configured string) string {
	if configured != "" {
		return configured
	}
	host, _ := os.Hostname()
	name := fmt.Sprintf("agentdesk:%s:%d", host, os.Getppid())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
