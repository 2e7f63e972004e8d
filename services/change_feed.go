package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Change actions
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

const changeChannelPrefix = "changes:"

// ChangeEvent announces a row-level change on a table. ID is the changed
// row's id, or 0 when a set of rows was replaced. OrderID is the order the
// row belongs to, when there is one.
type ChangeEvent struct {
	Table   string    `json:"table"`
	Action  string    `json:"action"`
	ID      uint      `json:"id"`
	OrderID uint      `json:"order_id,omitempty"`
	At      time.Time `json:"at"`
}

// ChangeFeed is a best-effort publish/subscribe channel for row changes.
// Subscribers use events as refetch hints only.
type ChangeFeed interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	Subscribe(ctx context.Context, tables ...string) (<-chan ChangeEvent, error)
}

// RedisChangeFeed fans change events out over Redis pub/sub
type RedisChangeFeed struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisChangeFeed connects to redisURL and verifies the connection
func NewRedisChangeFeed(redisURL string, log *zap.Logger) (*RedisChangeFeed, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis change feed connected", zap.String("addr", opt.Addr))
	return &RedisChangeFeed{client: rdb, log: log}, nil
}

func (f *RedisChangeFeed) Publish(ctx context.Context, ev ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, changeChannelPrefix+ev.Table, payload).Err()
}

func (f *RedisChangeFeed) Subscribe(ctx context.Context, tables ...string) (<-chan ChangeEvent, error) {
	channels := make([]string, len(tables))
	for i, t := range tables {
		channels[i] = changeChannelPrefix + t
	}

	pubsub := f.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan ChangeEvent, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					f.log.Warn("bad change event", zap.String("payload", msg.Payload), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *RedisChangeFeed) Close() error {
	return f.client.Close()
}

// MemoryChangeFeed is an in-process feed, used when Redis is not configured
// and in tests. Slow subscribers miss events rather than block publishers.
type MemoryChangeFeed struct {
	mu   sync.Mutex
	subs map[chan ChangeEvent]map[string]bool
}

func NewMemoryChangeFeed() *MemoryChangeFeed {
	return &MemoryChangeFeed{subs: make(map[chan ChangeEvent]map[string]bool)}
}

func (f *MemoryChangeFeed) Publish(_ context.Context, ev ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch, tables := range f.subs {
		if !tables[ev.Table] {
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (f *MemoryChangeFeed) Subscribe(ctx context.Context, tables ...string) (<-chan ChangeEvent, error) {
	set := make(map[string]bool, len(tables))
	for _, t := range tables {
		set[t] = true
	}
	ch := make(chan ChangeEvent, 16)

	f.mu.Lock()
	f.subs[ch] = set
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}
