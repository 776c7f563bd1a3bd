package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"meeting-scheduler/internal/llm"
)

// fakeCalendar serves canned events per attendee. Attendees listed in errs
// fail with the given error.
type fakeCalendar struct {
	events map[string][]CalendarEvent
	errs   map[string]error
	delay  time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeCalendar) BusyIntervals(ctx context.Context, attendee string, _, _ time.Time) ([]CalendarEvent, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[attendee]; err != nil {
		return nil, err
	}
	return f.events[attendee], nil
}

type fakeService struct {
	mu         sync.Mutex
	dateRange  llm.DateRange
	rangeErr   error
	optimal    llm.OptimalTime
	optimalErr error

	rangeCalls   int
	optimalCalls int
	lastOptimal  llm.OptimalTimeRequest
}

func (f *fakeService) ExtractDateRange(context.Context, llm.DateRangeRequest) (llm.DateRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rangeCalls++
	return f.dateRange, f.rangeErr
}

func (f *fakeService) SelectOptimalTime(_ context.Context, req llm.OptimalTimeRequest) (llm.OptimalTime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.optimalCalls++
	f.lastOptimal = req
	return f.optimal, f.optimalErr
}

type recordingNotifier struct {
	mu      sync.Mutex
	results []SchedulingResult
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, res SchedulingResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, res)
	return n.err
}

func day(y int, m time.Month, d, hour, minute int) time.Time {
	return time.Date(y, m, d, hour, minute, 0, 0, DefaultLocation)
}

func event(start, end, summary string) CalendarEvent {
	return CalendarEvent{StartTime: start, EndTime: end, NumAttendees: 1, Attendees: []string{"SELF"}, Summary: summary}
}

func boolPtr(b bool) *bool { return &b }
