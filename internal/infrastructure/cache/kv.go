package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound key 不存在或已过期
var ErrNotFound = errors.New("缓存键不存在")

// KV 状态缓存 / 在线目录共用的键值接口
// 生产环境走 Redis，单测用内存实现
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	// Set ttl 为 0 表示不过期（连接目录这类随连接生命周期的键）
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// Scan 返回匹配 pattern 的全部 key
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// ============================================================
// Redis 实现
// ============================================================

type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisKV) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// ============================================================
// 内存实现（测试用）
// ============================================================

type memoryEntry struct {
	value    string
	expireAt time.Time // 零值表示不过期
}

type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]memoryEntry)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	if !entry.expireAt.IsZero() && time.Now().After(entry.expireAt) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expireAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.data[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Scan(ctx context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if matchPattern(pattern, k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// matchPattern 只支持单个 '*' 通配，覆盖本项目用到的 prefix:* 形式
func matchPattern(pattern, key string) bool {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' {
			prefix, suffix := pattern[:i], pattern[i+1:]
			return len(key) >= len(prefix)+len(suffix) &&
				key[:len(prefix)] == prefix &&
				key[len(key)-len(suffix):] == suffix
		}
	}
	return pattern == key
}
