package logic

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedis is an in-memory RedisClient covering hashes, SETNX and the
// lock release script.
type MockRedis struct {
	mu      sync.Mutex
	Hashes  map[string]map[string]string
	Strings map[string]string
	TTLs    map[string]time.Duration
	Err     error // returned by every command when set
	EvalErr error
}

func NewMockRedis() *MockRedis {
	return &MockRedis{
		Hashes:  map[string]map[string]string{},
		Strings: map[string]string{},
		TTLs:    map[string]time.Duration{},
	}
}

func (m *MockRedis) hash(key string) map[string]string {
	h, ok := m.Hashes[key]
	if !ok {
		h = map[string]string{}
		m.Hashes[key] = h
	}
	return h
}

func (m *MockRedis) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewMapStringStringResult(nil, m.Err)
	}
	out := map[string]string{}
	for k, v := range m.Hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (m *MockRedis) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewIntResult(0, m.Err)
	}
	h := m.hash(key)
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = values[i+1].(string)
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (m *MockRedis) HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewIntResult(0, m.Err)
	}
	h := m.hash(key)
	n, _ := strconv.ParseInt(h[field], 10, 64)
	n += incr
	h[field] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (m *MockRedis) HIncrByFloat(ctx context.Context, key, field string, incr float64) *redis.FloatCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewFloatResult(0, m.Err)
	}
	h := m.hash(key)
	f, _ := strconv.ParseFloat(h[field], 64)
	f += incr
	h[field] = strconv.FormatFloat(f, 'f', -1, 64)
	return redis.NewFloatResult(f, nil)
}

func (m *MockRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewBoolResult(false, m.Err)
	}
	m.TTLs[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *MockRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.Strings[k]; ok {
			n++
		}
		delete(m.Strings, k)
		delete(m.Hashes, k)
		delete(m.TTLs, k)
	}
	return redis.NewIntResult(n, nil)
}

func (m *MockRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewBoolResult(false, m.Err)
	}
	if _, held := m.Strings[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	m.Strings[key] = value.(string)
	m.TTLs[key] = expiration
	return redis.NewBoolResult(true, nil)
}

// Eval understands only releaseScript: compare-and-delete.
func (m *MockRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EvalErr != nil {
		return redis.NewCmdResult(nil, m.EvalErr)
	}
	if script != releaseScript || len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, redis.Nil)
	}
	if m.Strings[keys[0]] != args[0].(string) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(m.Strings, keys[0])
	delete(m.TTLs, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}
