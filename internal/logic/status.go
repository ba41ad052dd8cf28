package logic

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/courtvision/prediction-api/internal/models"
)

// StatusStore tracks the live status of every analysis task.
//
// Transitions: idle, active or error -> processing on Start; processing ->
// active on Succeed; processing -> error on Fail.
type StatusStore interface {
	// Init registers the tasks and resets them to idle. Counters are kept.
	Init(ctx context.Context, agents []AgentRef) error
	Start(ctx context.Context, name string) error
	Succeed(ctx context.Context, name string, confidence float64) error
	Fail(ctx context.Context, name string, cause error) error
	// List returns the statuses in registration order.
	List(ctx context.Context) ([]models.AgentStatus, error)
}

// AgentRef names a task and its category.
type AgentRef struct {
	Name     string
	Category string
}

// MemoryStatusStore is an in-process StatusStore.
type MemoryStatusStore struct {
	mu     sync.RWMutex
	order  []string
	status map[string]*memoryStatus
	now    func() time.Time
}

type memoryStatus struct {
	models.AgentStatus
	confidenceSum float64
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{status: make(map[string]*memoryStatus), now: time.Now}
}

func (s *MemoryStatusStore) Init(_ context.Context, agents []AgentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	for _, a := range agents {
		st, ok := s.status[a.Name]
		if !ok {
			st = &memoryStatus{}
			s.status[a.Name] = st
		}
		st.Name = a.Name
		st.Category = a.Category
		st.Status = models.AgentIdle
		st.LastActivity = s.now()
		s.order = append(s.order, a.Name)
	}
	return nil
}

func (s *MemoryStatusStore) get(name string) (*memoryStatus, error) {
	st, ok := s.status[name]
	if !ok {
		return nil, fmt.Errorf("agent %q: %w", name, ErrNotFound)
	}
	return st, nil
}

func (s *MemoryStatusStore) Start(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.get(name)
	if err != nil {
		return err
	}
	st.Status = models.AgentProcessing
	st.LastActivity = s.now()
	return nil
}

func (s *MemoryStatusStore) Succeed(_ context.Context, name string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.get(name)
	if err != nil {
		return err
	}
	st.Status = models.AgentActive
	st.LastActivity = s.now()
	st.AnalysesCount++
	st.confidenceSum += confidence
	st.Accuracy = st.confidenceSum / float64(st.AnalysesCount)
	st.LastError = ""
	return nil
}

func (s *MemoryStatusStore) Fail(_ context.Context, name string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.get(name)
	if err != nil {
		return err
	}
	st.Status = models.AgentError
	st.LastActivity = s.now()
	st.ErrorCount++
	if cause != nil {
		st.LastError = cause.Error()
	}
	return nil
}

func (s *MemoryStatusStore) List(_ context.Context) ([]models.AgentStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AgentStatus, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.status[name].AgentStatus)
	}
	return out, nil
}

// RedisStatusStore keeps one hash per task so every instance behind a load
// balancer reports the same statuses.
type RedisStatusStore struct {
	redis  RedisClient
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	order  []AgentRef
}

func NewRedisStatusStore(redis RedisClient, ttl time.Duration) *RedisStatusStore {
	return &RedisStatusStore{redis: redis, prefix: "courtvision:agent:", ttl: ttl}
}

func (s *RedisStatusStore) key(name string) string { return s.prefix + name }

func (s *RedisStatusStore) touch(ctx context.Context, name string, fields ...interface{}) error {
	key := s.key(name)
	fields = append(fields, "last_activity", time.Now().UTC().Format(time.RFC3339Nano))
	if err := s.redis.HSet(ctx, key, fields...).Err(); err != nil {
		return fmt.Errorf("failed to update agent status: %w", err)
	}
	if s.ttl > 0 {
		if err := s.redis.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("failed to refresh agent status ttl: %w", err)
		}
	}
	return nil
}

func (s *RedisStatusStore) Init(ctx context.Context, agents []AgentRef) error {
	s.mu.Lock()
	s.order = append([]AgentRef(nil), agents...)
	s.mu.Unlock()
	for _, a := range agents {
		if err := s.touch(ctx, a.Name, "category", a.Category, "status", string(models.AgentIdle)); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStatusStore) Start(ctx context.Context, name string) error {
	return s.touch(ctx, name, "status", string(models.AgentProcessing))
}

func (s *RedisStatusStore) Succeed(ctx context.Context, name string, confidence float64) error {
	key := s.key(name)
	if err := s.redis.HIncrBy(ctx, key, "analyses_count", 1).Err(); err != nil {
		return fmt.Errorf("failed to count analysis: %w", err)
	}
	if err := s.redis.HIncrByFloat(ctx, key, "confidence_sum", confidence).Err(); err != nil {
		return fmt.Errorf("failed to record confidence: %w", err)
	}
	return s.touch(ctx, name, "status", string(models.AgentActive), "last_error", "")
}

func (s *RedisStatusStore) Fail(ctx context.Context, name string, cause error) error {
	if err := s.redis.HIncrBy(ctx, s.key(name), "error_count", 1).Err(); err != nil {
		return fmt.Errorf("failed to count error: %w", err)
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.touch(ctx, name, "status", string(models.AgentError), "last_error", msg)
}

func (s *RedisStatusStore) List(ctx context.Context) ([]models.AgentStatus, error) {
	s.mu.RLock()
	order := s.order
	s.mu.RUnlock()

	out := make([]models.AgentStatus, 0, len(order))
	for _, a := range order {
		fields, err := s.redis.HGetAll(ctx, s.key(a.Name)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read agent status: %w", err)
		}
		out = append(out, parseAgentStatus(a, fields))
	}
	return out, nil
}

// parseAgentStatus decodes a status hash. A missing or expired hash reads as idle.
func parseAgentStatus(ref AgentRef, fields map[string]string) models.AgentStatus {
	st := models.AgentStatus{Name: ref.Name, Category: ref.Category, Status: models.AgentIdle}
	if v := fields["status"]; v != "" {
		st.Status = models.AgentState(v)
	}
	if v := fields["category"]; v != "" {
		st.Category = v
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["last_activity"]); err == nil {
		st.LastActivity = t
	}
	st.AnalysesCount, _ = strconv.ParseInt(fields["analyses_count"], 10, 64)
	st.ErrorCount, _ = strconv.ParseInt(fields["error_count"], 10, 64)
	if sum, err := strconv.ParseFloat(fields["confidence_sum"], 64); err == nil && st.AnalysesCount > 0 {
		st.Accuracy = sum / float64(st.AnalysesCount)
	}
	st.LastError = fields["last_error"]
	return st
}
