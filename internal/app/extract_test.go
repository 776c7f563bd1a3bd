package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAt(t *testing.T) {
	monday := day(2025, 1, 6, 9, 0)
	friday := day(2025, 1, 10, 9, 0)

	tests := []struct {
		name     string
		text     string
		ref      time.Time
		duration int
		day      *time.Time
		at       *TimeOfDay
		priority Priority
		keywords []string
	}{
		{
			name:     "weekday, time and duration",
			text:     "Let's meet Thursday at 2 PM for 1 hour",
			ref:      monday,
			duration: 60,
			day:      ptr(day(2025, 1, 9, 0, 0)),
			at:       &TimeOfDay{Hour: 14},
			priority: PriorityMedium,
			keywords: []string{"1 hour", "thursday", "2 pm"},
		},
		{
			name:     "tomorrow on a friday rolls to monday",
			text:     "quick sync tomorrow morning",
			ref:      friday,
			duration: 30,
			day:      ptr(day(2025, 1, 13, 0, 0)),
			at:       &TimeOfDay{Hour: 10},
			priority: PriorityMedium,
			keywords: []string{"tomorrow", "morning"},
		},
		{
			name:     "same weekday means next week",
			text:     "URGENT: Monday, 30 minutes",
			ref:      monday,
			duration: 30,
			day:      ptr(day(2025, 1, 13, 0, 0)),
			priority: PriorityHigh,
			keywords: []string{"30 min", "monday", "urgent"},
		},
		{
			name:     "nothing matched",
			text:     "can we catch up?",
			ref:      monday,
			duration: 30,
			priority: PriorityMedium,
			keywords: []string{},
		},
		{
			name:     "low priority and quarter hour",
			text:     "15 min chat, no rush",
			ref:      monday,
			duration: 15,
			priority: PriorityLow,
			keywords: []string{"15 min", "no rush"},
		},
		{
			name:     "half hour beats later duration markers",
			text:     "half hour or maybe 1 hour today",
			ref:      monday,
			duration: 30,
			day:      ptr(day(2025, 1, 6, 0, 0)),
			priority: PriorityMedium,
			keywords: []string{"half hour", "today"},
		},
	}

	e := NewExtractor(DefaultPolicy(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ExtractAt(tt.text, tt.ref)
			assert.Equal(t, tt.duration, got.DurationMinutes)
			assert.Equal(t, tt.priority, got.Priority)
			assert.Equal(t, tt.keywords, got.MatchedKeywords)
			if tt.day == nil {
				assert.Nil(t, got.PreferredDay)
			} else {
				require.NotNil(t, got.PreferredDay)
				assert.True(t, tt.day.Equal(*got.PreferredDay), "got %s", got.PreferredDay)
			}
			assert.Equal(t, tt.at, got.PreferredTime)
		})
	}
}

func TestExtractorReferenceFallsBackToNow(t *testing.T) {
	e := NewExtractor(DefaultPolicy(), nil)
	fixed := time.Date(2025, 3, 4, 5, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	ref := e.Reference("not a date")
	assert.Equal(t, day(2025, 3, 4, 10, 30), ref)

	ref = e.Reference("2025-01-06T09:00:00+05:30")
	assert.Equal(t, day(2025, 1, 6, 9, 0), ref)
}

func TestExtractParsesReference(t *testing.T) {
	e := NewExtractor(DefaultPolicy(), nil)
	got := e.Extract("see you friday", "06-01-2025T09:00:00")
	require.NotNil(t, got.PreferredDay)
	assert.True(t, day(2025, 1, 10, 0, 0).Equal(*got.PreferredDay))
}

func ptr[T any](v T) *T { return &v }
