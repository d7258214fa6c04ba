package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gdg-paro/eventsync/model"
)

// ErrNotFound signals the cache holds no event list.
var ErrNotFound = errors.New("no results found")

// EventListStorage caches the full event list in front of the repository.
// The list is small (no pagination anywhere in the system) so it is stored
// as a single JSON value with a TTL, and dropped entirely on any write.
type EventListStorage struct {
	redisClient *redis.Client
	storageKey  string
	ttl         time.Duration
}

func NewEventListStorage(client *redis.Client) *EventListStorage {
	return &EventListStorage{
		redisClient: client,
		storageKey:  "events:all",
		ttl:         5 * time.Minute,
	}
}

func (s *EventListStorage) GetAll(ctx context.Context) ([]*model.Event, error) {
	val, err := s.redisClient.Get(ctx, s.storageKey).Result()

	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var events []*model.Event
	if err := json.Unmarshal([]byte(val), &events); err != nil {
		return nil, err
	}

	return events, nil
}

func (s *EventListStorage) SetAll(ctx context.Context, events []*model.Event) error {
	jsonVal, err := json.Marshal(events)
	if err != nil {
		return err
	}

	return s.redisClient.Set(ctx, s.storageKey, string(jsonVal), s.ttl).Err()
}

// Invalidate drops the cached list. Called after every event mutation.
func (s *EventListStorage) Invalidate(ctx context.Context) error {
	return s.redisClient.Del(ctx, s.storageKey).Err()
}
