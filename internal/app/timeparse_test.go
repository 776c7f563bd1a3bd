package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		in   string
		want string
	}{
		{"2025-01-06T09:00:00+05:30", "2025-01-06T09:00:00"},
		{"2025-01-06T09:00:00Z", "2025-01-06T09:00:00"},
		{"2025-01-06T09:00:00-08:00", "2025-01-06T09:00:00"},
		{"2025-01-06T09:00:00", "2025-01-06T09:00:00"},
		{"2025-01-06T09:00", "2025-01-06T09:00:00"},
		{"2025-01-06 09:00:00", "2025-01-06T09:00:00"},
		{"2025-01-06", "2025-01-06T00:00:00"},
		{"06-01-2025T09:00:00", "2025-01-06T09:00:00"},
		{"06-01-2025T09:00:00+05:30", "2025-01-06T09:00:00"},
		{"06-01-2025", "2025-01-06T00:00:00"},
		{"  2025-01-06T09:00:00  ", "2025-01-06T09:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := p.ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatTimestamp(got))
			assert.Equal(t, DefaultLocation, got.Location())
		})
	}
}

func TestParseTimestampRejects(t *testing.T) {
	p := DefaultPolicy()
	for _, in := range []string{"", "tomorrow", "2025/01/06", "32-01-2025", "2025-13-01T00:00:00"} {
		_, err := p.ParseTimestamp(in)
		assert.Error(t, err, in)
	}
}

func TestWithinBusinessHours(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.WithinBusinessHours(day(2025, 1, 9, 14, 0), day(2025, 1, 9, 15, 0)))
	assert.True(t, p.WithinBusinessHours(day(2025, 1, 9, 9, 0), day(2025, 1, 9, 18, 0)))
	assert.False(t, p.WithinBusinessHours(day(2025, 1, 9, 8, 45), day(2025, 1, 9, 9, 15)))
	assert.False(t, p.WithinBusinessHours(day(2025, 1, 9, 17, 45), day(2025, 1, 9, 18, 15)))
	assert.False(t, p.WithinBusinessHours(day(2025, 1, 11, 10, 0), day(2025, 1, 11, 11, 0)), "saturday")
	assert.False(t, p.WithinBusinessHours(day(2025, 1, 9, 11, 0), day(2025, 1, 9, 10, 0)), "end before start")
	assert.Equal(t, 540, p.BusinessDayMinutes())
}
