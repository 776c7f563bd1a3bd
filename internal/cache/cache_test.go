package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-scheduler/internal/app"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	ttl  time.Duration
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttl = ttl
	return nil
}

type countingProvider struct {
	calls  int
	events []app.CalendarEvent
	err    error
}

func (c *countingProvider) BusyIntervals(context.Context, string, time.Time, time.Time) ([]app.CalendarEvent, error) {
	c.calls++
	return c.events, c.err
}

var (
	winStart = time.Date(2025, 1, 6, 0, 0, 0, 0, app.DefaultLocation)
	winEnd   = time.Date(2025, 1, 13, 23, 59, 59, 0, app.DefaultLocation)
	events   = []app.CalendarEvent{{
		StartTime:    "2025-01-07T10:00:00",
		EndTime:      "2025-01-07T11:00:00",
		NumAttendees: 1,
		Attendees:    []string{"SELF"},
		Summary:      "Standup",
	}}
)

func TestProviderReadThrough(t *testing.T) {
	next := &countingProvider{events: events}
	store := newMemStore()
	p := NewProvider(next, store, time.Minute, nil)

	got, err := p.BusyIntervals(context.Background(), "a@example.com", winStart, winEnd)
	require.NoError(t, err)
	assert.Equal(t, events, got)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, time.Minute, store.ttl)

	got, err = p.BusyIntervals(context.Background(), "a@example.com", winStart, winEnd)
	require.NoError(t, err)
	assert.Equal(t, events, got)
	assert.Equal(t, 1, next.calls, "second read should be served from cache")

	_, err = p.BusyIntervals(context.Background(), "b@example.com", winStart, winEnd)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestProviderCorruptEntry(t *testing.T) {
	next := &countingProvider{events: events}
	store := newMemStore()
	store.data[Key("a@example.com", winStart, winEnd)] = "{not json"
	p := NewProvider(next, store, 0, nil)

	got, err := p.BusyIntervals(context.Background(), "a@example.com", winStart, winEnd)
	require.NoError(t, err)
	assert.Equal(t, events, got)
	assert.Equal(t, 1, next.calls)
}

func TestProviderDoesNotCacheErrors(t *testing.T) {
	next := &countingProvider{err: errors.New("calendar down")}
	store := newMemStore()
	p := NewProvider(next, store, time.Minute, nil)

	_, err := p.BusyIntervals(context.Background(), "a@example.com", winStart, winEnd)
	require.Error(t, err)
	assert.Empty(t, store.data)
}

func TestProviderRedisUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	next := &countingProvider{events: events}
	p := NewProvider(next, NewRedisStore(client), time.Minute, nil)

	got, err := p.BusyIntervals(context.Background(), "a@example.com", winStart, winEnd)
	require.NoError(t, err)
	assert.Equal(t, events, got)
	assert.Equal(t, 1, next.calls)
}

func TestKey(t *testing.T) {
	assert.Equal(t,
		"busy:a@example.com:2025-01-06T00:00:00+05:30:2025-01-13T23:59:59+05:30",
		Key("a@example.com", winStart, winEnd))
}
