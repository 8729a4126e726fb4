package embedding

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
)

//go:generate mockgen -source=cache.go -destination=cache_mock.go -package=embedding
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CachedEmbedder serves embeddings from a cache before asking next.
// Cache failures are logged and never fail the embedding.
type CachedEmbedder struct {
	next  Embedder
	cache Cache
	model string
}

func NewCachedEmbedder(next Embedder, cache Cache, model string) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, model: model}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.model, text)

	vec, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("embedding cache read failed", "error", err)
	} else if ok {
		return vec, nil
	}

	vec, err = c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, vec); err != nil {
		slog.Warn("embedding cache write failed", "error", err)
	}

	return vec, nil
}

func cacheKey(model, text string) string {
	h := sha1.Sum([]byte(text))
	return fmt.Sprintf("emb:%s:%s", model, hex.EncodeToString(h[:]))
}

// MemoryCache is an in-process cache, used when no Redis is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]float32
	limit   int
}

func NewMemoryCache(limit int) *MemoryCache {
	return &MemoryCache{entries: make(map[string][]float32), limit: limit}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[key]

	return v, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.limit > 0 && len(m.entries) >= m.limit {
		// Full: start over.
		m.entries = make(map[string][]float32)
	}

	m.entries[key] = vec

	return nil
}

// RedisCache stores embeddings as little-endian float32 blobs.
type RedisCache struct {
	pool *redis.Pool
	ttl  time.Duration
}

func NewPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", addr) },
	}
}

func NewRedisCache(pool *redis.Pool, ttl time.Duration) *RedisCache {
	return &RedisCache{pool: pool, ttl: ttl}
}

func (r *RedisCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	conn := r.pool.Get()
	defer conn.Close()

	b, err := redis.Bytes(conn.Do("GET", key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("reading embedding: %w", err)
	}

	vec, err := decodeVector(b)
	if err != nil {
		return nil, false, err
	}

	return vec, true, nil
}

func (r *RedisCache) Set(_ context.Context, key string, vec []float32) error {
	conn := r.pool.Get()
	defer conn.Close()

	args := []any{key, encodeVector(vec)}
	if r.ttl > 0 {
		args = append(args, "EX", int(r.ttl.Seconds()))
	}

	if _, err := conn.Do("SET", args...); err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}

	return nil
}

func encodeVector(vec []float32) []byte {
	b := make([]byte, 4*len(vec))
	for i, x := range vec {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(x))
	}

	return b
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding of %d bytes", len(b))
	}

	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}

	return vec, nil
}
