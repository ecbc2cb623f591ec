// Package events publishes submission activity to per-user channels.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types.
const (
	SubmissionCreated = "submission.created"
	SubmissionUpdated = "submission.updated"
	AssignmentChanged = "assignment.changed"
)

// Event is the payload written to a user channel.
type Event struct {
	Type         string    `json:"type"`
	SubmissionID string    `json:"submissionId,omitempty"`
	AssignmentID string    `json:"assignmentId,omitempty"`
	Status       string    `json:"status,omitempty"`
	From         string    `json:"from,omitempty"`
	At           time.Time `json:"at"`
}

// Channel returns the channel name carrying events for one user.
func Channel(userID string) string {
	return "events:user:" + userID
}

// Publisher fans an event out to the given users. Failures are logged, never returned.
type Publisher interface {
	Publish(ctx context.Context, e Event, userIDs ...string)
}

// Subscriber streams raw event payloads for one user until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan []byte, error)
}

// NewRedisClient creates and verifies a Redis client connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// RedisBus implements Publisher and Subscriber over Redis Pub/Sub.
type RedisBus struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisBus(rdb *redis.Client, log *slog.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, e Event, userIDs ...string) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		b.log.Warn("encode event failed", "type", e.Type, "error", err)
		return
	}
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if err := b.rdb.Publish(ctx, Channel(id), payload).Err(); err != nil {
			b.log.Warn("publish event failed", "type", e.Type, "user_id", id, "error", err)
		}
	}
}

func (b *RedisBus) Subscribe(ctx context.Context, userID string) (<-chan []byte, error) {
	sub := b.rdb.Subscribe(ctx, Channel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Channel(userID), err)
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(m.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Memory is an in-process bus for single-instance deployments without Redis.
// Slow subscribers drop events rather than block publishers.
type Memory struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
	log  *slog.Logger
}

func NewMemory(log *slog.Logger) *Memory {
	return &Memory{subs: make(map[string]map[chan []byte]struct{}), log: log}
}

func (m *Memory) Publish(_ context.Context, e Event, userIDs ...string) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		m.log.Warn("encode event failed", "type", e.Type, "error", err)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range userIDs {
		for ch := range m.subs[id] {
			select {
			case ch <- payload:
			default:
				m.log.Warn("subscriber lagging, event dropped", "type", e.Type, "user_id", id)
			}
		}
	}
}

func (m *Memory) Subscribe(ctx context.Context, userID string) (<-chan []byte, error) {
	ch := make(chan []byte, 16)
	m.mu.Lock()
	if m.subs[userID] == nil {
		m.subs[userID] = make(map[chan []byte]struct{})
	}
	m.subs[userID][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs[userID], ch)
		if len(m.subs[userID]) == 0 {
			delete(m.subs, userID)
		}
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
