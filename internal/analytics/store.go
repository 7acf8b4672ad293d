package analytics

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store is an append-only, capped log of serialized events.
type Store interface {
	Name() string
	Append(ctx context.Context, event []byte) (int64, error)
	// Recent returns up to n of the newest events, oldest first. n <= 0
	// returns everything retained.
	Recent(ctx context.Context, n int) ([][]byte, error)
}

type RedisStore struct {
	client redis.Cmdable
	key    string
	max    int64
}

func NewRedisStore(client redis.Cmdable, key string, maxEvents int) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &RedisStore{client: client, key: key, max: int64(maxEvents)}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Append(ctx context.Context, event []byte) (int64, error) {
	n, err := s.client.RPush(ctx, s.key, event).Result()
	if err != nil {
		return 0, err
	}
	if n > s.max {
		if err := s.client.LTrim(ctx, s.key, -s.max, -1).Err(); err != nil {
			return 0, err
		}
		n = s.max
	}
	return n, nil
}

func (s *RedisStore) Recent(ctx context.Context, n int) ([][]byte, error) {
	start := int64(0)
	if n > 0 {
		start = -int64(n)
	}
	vals, err := s.client.LRange(ctx, s.key, start, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// MemoryStore keeps events in process. It is used when Redis is not
// configured and loses everything on restart.
type MemoryStore struct {
	mu     sync.Mutex
	events [][]byte
	max    int
}

func NewMemoryStore(maxEvents int) *MemoryStore {
	return &MemoryStore{max: maxEvents}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Append(_ context.Context, event []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, append([]byte(nil), event...))
	if over := len(s.events) - s.max; over > 0 {
		s.events = append([][]byte(nil), s.events[over:]...)
	}
	return int64(len(s.events)), nil
}

func (s *MemoryStore) Recent(_ context.Context, n int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if n > 0 && n < len(s.events) {
		start = len(s.events) - n
	}
	out := make([][]byte, len(s.events)-start)
	copy(out, s.events[start:])
	return out, nil
}
