package logic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunLock marks a match as having an analysis in flight.
type RunLock interface {
	// Acquire returns ok=false without blocking when the match is held.
	Acquire(ctx context.Context, matchID string) (release func(), ok bool, err error)
}

// MemoryRunLock is an in-process RunLock.
type MemoryRunLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryRunLock() *MemoryRunLock {
	return &MemoryRunLock{held: make(map[string]struct{})}
}

func (l *MemoryRunLock) Acquire(_ context.Context, matchID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[matchID]; busy {
		return nil, false, nil
	}
	l.held[matchID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, matchID)
			l.mu.Unlock()
		})
	}, true, nil
}

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// RedisRunLock shares the in-flight marker across instances. The TTL bounds
// how long a crashed holder can block a match.
type RedisRunLock struct {
	redis  RedisClient
	prefix string
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewRedisRunLock(redis RedisClient, ttl time.Duration, logger *zap.Logger) *RedisRunLock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRunLock{redis: redis, prefix: "courtvision:run:", ttl: ttl, logger: logger.Sugar()}
}

func (l *RedisRunLock) Acquire(ctx context.Context, matchID string) (func(), bool, error) {
	key := l.prefix + matchID
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// The run context may already be cancelled.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.redis.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
				l.logger.Warnw("Failed to release run lock", "match_id", matchID, "ttl", l.ttl, "error", err)
			}
		})
	}, true, nil
}
