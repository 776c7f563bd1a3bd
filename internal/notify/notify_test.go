package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-scheduler/internal/app"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp091.Publishing
	err           error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestPublisherNotify(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "meetings", "")

	result := app.SchedulingResult{
		RequestID:  "req-1",
		From:       "a@example.com",
		EventStart: "2025-01-09T14:00:00",
		EventEnd:   "2025-01-09T15:00:00",
	}
	require.NoError(t, p.Notify(context.Background(), result))

	assert.Equal(t, "meetings", ch.exchange)
	assert.Equal(t, "meeting.scheduled", ch.key)
	assert.Equal(t, MIMEApplicationJSON, ch.msg.ContentType)
	assert.Equal(t, uint8(amqp091.Persistent), ch.msg.DeliveryMode)
	assert.Equal(t, "req-1", ch.msg.MessageId)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	assert.Equal(t, "2025-01-09T14:00:00", decoded["EventStart"])
}

func TestPublisherNotifyError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	err := NewPublisher(ch, "", "custom").Notify(context.Background(), app.SchedulingResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
	assert.Equal(t, "custom", ch.key)
}
