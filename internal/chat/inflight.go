package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// InFlight enforces at most one pending request per session.
type InFlight interface {
	// Begin moves the session to Pending and returns the lease End must
	// present, or ErrRequestInFlight.
	Begin(ctx context.Context, sessionID string) (string, error)
	// End records the outcome when lease still holds the session. A lease that
	// was forgotten or taken over is ignored.
	End(ctx context.Context, sessionID, lease string, outcome State) error
	State(ctx context.Context, sessionID string) (State, error)
	// Forget drops everything recorded for the session.
	Forget(ctx context.Context, sessionID string) error
}

type memoryLease struct {
	state State
	lease string
}

type MemoryInFlight struct {
	mu     sync.Mutex
	states map[string]memoryLease
}

func NewMemoryInFlight() *MemoryInFlight {
	return &MemoryInFlight{states: make(map[string]memoryLease)}
}

func (m *MemoryInFlight) Begin(_ context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.states[sessionID].state == StatePending {
		return "", ErrRequestInFlight
	}
	lease := uuid.NewString()
	m.states[sessionID] = memoryLease{state: StatePending, lease: lease}
	return lease, nil
}

func (m *MemoryInFlight) End(_ context.Context, sessionID, lease string, outcome State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.states[sessionID]
	if !ok || current.lease != lease {
		return nil
	}
	m.states[sessionID] = memoryLease{state: outcome}
	return nil
}

func (m *MemoryInFlight) State(_ context.Context, sessionID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.states[sessionID]; ok {
		return s.state, nil
	}
	return StateIdle, nil
}

func (m *MemoryInFlight) Forget(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sessionID)
	return nil
}

const (
	pendingKeyPrefix = "chat:pending:"
	outcomeKeyPrefix = "chat:outcome:"
	outcomeTTL       = 24 * time.Hour
)

// releaseScript drops the pending key and records the outcome only while the
// caller's lease still owns the lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("DEL", KEYS[1])
	redis.call("SET", KEYS[2], ARGV[2], "EX", ARGV[3])
	return 1
end
return 0
`)

// RedisInFlight shares the pending lock across gateway replicas. The lock
// expires after ttl so a crashed replica cannot block a session forever.
type RedisInFlight struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisInFlight(client *redis.Client, ttl time.Duration) *RedisInFlight {
	return &RedisInFlight{client: client, ttl: ttl}
}

func (r *RedisInFlight) Begin(ctx context.Context, sessionID string) (string, error) {
	lease := uuid.NewString()
	ok, err := r.client.SetNX(ctx, pendingKeyPrefix+sessionID, lease, r.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire chat lock: %w", err)
	}
	if !ok {
		return "", ErrRequestInFlight
	}
	return lease, nil
}

func (r *RedisInFlight) End(ctx context.Context, sessionID, lease string, outcome State) error {
	keys := []string{pendingKeyPrefix + sessionID, outcomeKeyPrefix + sessionID}
	ttl := strconv.Itoa(int(outcomeTTL / time.Second))
	if err := releaseScript.Run(ctx, r.client, keys, lease, string(outcome), ttl).Err(); err != nil {
		return fmt.Errorf("release chat lock: %w", err)
	}
	return nil
}

func (r *RedisInFlight) State(ctx context.Context, sessionID string) (State, error) {
	n, err := r.client.Exists(ctx, pendingKeyPrefix+sessionID).Result()
	if err != nil {
		return "", fmt.Errorf("read chat lock: %w", err)
	}
	if n > 0 {
		return StatePending, nil
	}

	outcome, err := r.client.Get(ctx, outcomeKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return StateIdle, nil
	}
	if err != nil {
		return "", fmt.Errorf("read chat outcome: %w", err)
	}
	return State(outcome), nil
}

func (r *RedisInFlight) Forget(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, pendingKeyPrefix+sessionID, outcomeKeyPrefix+sessionID).Err()
}
