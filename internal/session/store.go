package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/securecookie"
	"github.com/natefinch/atomic"
)

// StorageKey names the single durable entry holding the serialized session.
const StorageKey = "currentUser"

// ErrCorrupt marks a stored entry that exists but cannot be decoded. Callers treat it as absent.
var ErrCorrupt = errors.New("session: stored entry is corrupt")

// Store persists the session across restarts.
type Store interface {
	Load(ctx context.Context) (Session, bool, error)
	Save(ctx context.Context, sess Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	current *Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (m *MemoryStore) Load(context.Context) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false, nil
	}
	return *m.current, true, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := sess
	m.current = &copied
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}

// FileStore writes the session to a single signed file. Writes are atomic so a crash never
// leaves a half-written entry behind.
type FileStore struct {
	path  string
	codec *securecookie.SecureCookie
}

// NewFileStore constructs a FileStore. hashKey is required; blockKey enables encryption.
// A zero maxAge keeps the entry valid until logout.
func NewFileStore(path string, hashKey, blockKey []byte, maxAge time.Duration) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: session file path is required", ErrInvalidConfig)
	}
	if len(hashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(maxAge / time.Second))
	return &FileStore{path: path, codec: codec}, nil
}

// Path returns the file location.
func (f *FileStore) Path() string { return f.path }

// Load implements Store.
func (f *FileStore) Load(context.Context) (Session, bool, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("session: read %s: %w", f.path, err)
	}
	var sess Session
	if err := f.codec.Decode(StorageKey, strings.TrimSpace(string(raw)), &sess); err != nil {
		return Session{}, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !sess.valid() {
		return Session{}, false, ErrCorrupt
	}
	return sess, true, nil
}

// Save implements Store.
func (f *FileStore) Save(_ context.Context, sess Session) error {
	encoded, err := f.codec.Encode(StorageKey, sess)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("session: create directory: %w", err)
	}
	if err := atomic.WriteFile(f.path, strings.NewReader(encoded)); err != nil {
		return fmt.Errorf("session: write %s: %w", f.path, err)
	}
	return nil
}

// Clear implements Store.
func (f *FileStore) Clear(context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", f.path, err)
	}
	return nil
}

// RedisStore keeps the session in Redis so several console processes can share one login.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. The entry is stored at prefix+StorageKey; a zero ttl
// keeps it until logout.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}
	return &RedisStore{client: client, key: prefix + StorageKey, ttl: ttl}, nil
}

// Key returns the Redis key holding the session.
func (r *RedisStore) Key() string { return r.key }

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context) (Session, bool, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("session: redis get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !sess.valid() {
		return Session{}, false, ErrCorrupt
	}
	return sess, true, nil
}

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := r.client.Set(ctx, r.key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

// Clear implements Store.
func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}
