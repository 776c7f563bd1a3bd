// Package cache puts a Redis read-through cache in front of a calendar
// provider.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"meeting-scheduler/internal/app"
	"meeting-scheduler/internal/logging"
)

// ErrMiss is returned by a Store when the key is absent.
var ErrMiss = errors.New("cache miss")

// Store is the key value backend of the cache.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore adapts a go-redis client to Store.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Provider serves cached events and fills the cache from the wrapped
// provider. Cache failures never fail a fetch.
type Provider struct {
	next  app.CalendarProvider
	store Store
	ttl   time.Duration
	log   *zap.Logger
}

func NewProvider(next app.CalendarProvider, store Store, ttl time.Duration, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Provider{next: next, store: store, ttl: ttl, log: log}
}

// Key is the cache key of one attendee's events in [start, end].
func Key(attendee string, start, end time.Time) string {
	return fmt.Sprintf("busy:%s:%s:%s", attendee, start.Format(time.RFC3339), end.Format(time.RFC3339))
}

func (p *Provider) BusyIntervals(ctx context.Context, attendee string, start, end time.Time) ([]app.CalendarEvent, error) {
	key := Key(attendee, start, end)

	data, err := p.store.Get(ctx, key)
	switch {
	case err == nil:
		var events []app.CalendarEvent
		uerr := json.Unmarshal([]byte(data), &events)
		if uerr == nil {
			return events, nil
		}
		p.log.Warn("discarding corrupt cache entry", logging.Email(attendee), zap.Error(uerr))
	case !errors.Is(err, ErrMiss):
		p.log.Warn("cache read failed", logging.Email(attendee), zap.Error(err))
	}

	events, err := p.next.BusyIntervals(ctx, attendee, start, end)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(events)
	if err != nil {
		p.log.Warn("cache encode failed", logging.Email(attendee), zap.Error(err))
		return events, nil
	}
	if err := p.store.Set(ctx, key, string(body), p.ttl); err != nil {
		p.log.Warn("cache write failed", logging.Email(attendee), zap.Error(err))
	}
	return events, nil
}
