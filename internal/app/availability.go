package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"meeting-scheduler/internal/logging"
)

// CalendarProvider returns the events an attendee has between start and end.
type CalendarProvider interface {
	BusyIntervals(ctx context.Context, attendee string, start, end time.Time) ([]CalendarEvent, error)
}

const (
	StatusAvailable   = "available"
	StatusBusy        = "busy"
	StatusUnavailable = "unavailable"
)

// AttendeeStatus is one attendee's fetch outcome. Err is set when the
// provider failed for that attendee; Events and Intervals are then empty.
type AttendeeStatus struct {
	Events    []CalendarEvent
	Intervals []BusyInterval
	Status    string
	Err       error
}

// Availability maps attendee identity to fetch outcome for one request.
type Availability map[string]AttendeeStatus

// Attendees returns the attendee identities in sorted order.
func (a Availability) Attendees() []string {
	out := make([]string, 0, len(a))
	for k := range a {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AllFailed reports whether every fetch failed. An empty map is not all-failed.
func (a Availability) AllFailed() bool {
	if len(a) == 0 {
		return false
	}
	for _, st := range a {
		if st.Err == nil {
			return false
		}
	}
	return true
}

type BusySlot struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Summary string `json:"summary"`
}

type AttendeeSummary struct {
	TotalEvents int        `json:"total_events"`
	BusySlots   []BusySlot `json:"busy_slots"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
}

// Summary is the per-attendee diagnostic attached to scheduling errors.
func (a Availability) Summary() map[string]AttendeeSummary {
	out := make(map[string]AttendeeSummary, len(a))
	for email, st := range a {
		if st.Err != nil {
			out[email] = AttendeeSummary{Status: StatusUnavailable, Error: st.Err.Error(), BusySlots: []BusySlot{}}
			continue
		}
		slots := make([]BusySlot, 0, len(st.Events))
		for _, ev := range st.Events {
			slots = append(slots, BusySlot{Start: ev.StartTime, End: ev.EndTime, Summary: ev.Summary})
		}
		out[email] = AttendeeSummary{TotalEvents: len(st.Events), BusySlots: slots, Status: st.Status}
	}
	return out
}

// Aggregator fetches availability for every attendee concurrently.
type Aggregator struct {
	provider CalendarProvider
	policy   Policy
	limit    int
	log      *zap.Logger
	onFail   func(attendee string, err error)
}

type AggregatorOption func(*Aggregator)

// WithConcurrency caps the number of in-flight provider calls. n <= 0 means unlimited.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) { a.limit = n }
}

// WithFailureHook is called once per failed attendee fetch.
func WithFailureHook(fn func(attendee string, err error)) AggregatorOption {
	return func(a *Aggregator) { a.onFail = fn }
}

func NewAggregator(provider CalendarProvider, policy Policy, log *zap.Logger, opts ...AggregatorOption) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Aggregator{provider: provider, policy: policy, log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate fetches every attendee's events inside window. Provider failures
// are recorded per attendee. The only error returned is ctx's, in which case
// no availability is returned.
func (a *Aggregator) Aggregate(ctx context.Context, attendees []string, window TimeWindow) (Availability, error) {
	unique := dedupe(attendees)
	results := make([]AttendeeStatus, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	for i, email := range unique {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.fetch(gctx, email, window)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	av := make(Availability, len(unique))
	for i, email := range unique {
		av[email] = results[i]
	}
	return av, nil
}

func (a *Aggregator) fetch(ctx context.Context, email string, window TimeWindow) AttendeeStatus {
	events, err := a.provider.BusyIntervals(ctx, email, window.Start, window.End)
	if err != nil {
		a.log.Warn("calendar fetch failed", logging.Email(email), zap.Error(err))
		if a.onFail != nil {
			a.onFail(email, err)
		}
		return AttendeeStatus{Status: StatusUnavailable, Err: fmt.Errorf("fetch %s: %w", logging.AnonymizeEmail(email), err)}
	}

	intervals := make([]BusyInterval, 0, len(events))
	for _, ev := range events {
		start, err := a.policy.ParseTimestamp(ev.StartTime)
		if err != nil {
			a.log.Warn("skipping event with bad start", logging.Email(email), zap.String("start", ev.StartTime))
			continue
		}
		end, err := a.policy.ParseTimestamp(ev.EndTime)
		if err != nil {
			a.log.Warn("skipping event with bad end", logging.Email(email), zap.String("end", ev.EndTime))
			continue
		}
		intervals = append(intervals, BusyInterval{Start: start, End: end, Attendees: ev.Attendees, Label: ev.Summary})
	}

	status := StatusAvailable
	threshold := a.policy.BusyThreshold
	if threshold <= 0 {
		threshold = 5
	}
	if len(events) >= threshold {
		status = StatusBusy
	}
	if events == nil {
		events = []CalendarEvent{}
	}
	return AttendeeStatus{Events: events, Intervals: intervals, Status: status}
}

// dedupe keeps the first occurrence of each identity.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// EmptyCalendar reports every attendee as free.
type EmptyCalendar struct{}

func (EmptyCalendar) BusyIntervals(context.Context, string, time.Time, time.Time) ([]CalendarEvent, error) {
	return []CalendarEvent{}, nil
}
