package app

import (
	"time"
)

// DefaultOffset is the fixed business timezone offset (+05:30).
const DefaultOffset = 5*time.Hour + 30*time.Minute

// DefaultLocation is the fixed-offset zone every timestamp is normalized into.
var DefaultLocation = time.FixedZone("+05:30", int(DefaultOffset.Seconds()))

// HourBand awards Bonus to slots starting in hours From..To (inclusive).
type HourBand struct {
	From  int
	To    int
	Bonus float64
}

// ScoringPolicy holds the slot scoring weights. Bands are evaluated in
// order and the first match wins; the lunch penalty applies on top.
type ScoringPolicy struct {
	AvailableBonus  float64
	ConflictPenalty float64
	TimeBands       []HourBand
	OffBandPenalty  float64
	WeekdayBonus    map[time.Weekday]float64
	LunchFrom       int
	LunchTo         int
	LunchPenalty    float64
}

// DefaultScoring returns the stock weights.
func DefaultScoring() ScoringPolicy {
	return ScoringPolicy{
		AvailableBonus:  100,
		ConflictPenalty: 20,
		TimeBands: []HourBand{
			{From: 9, To: 11, Bonus: 20},
			{From: 14, To: 16, Bonus: 15},
			{From: 11, To: 12, Bonus: 10},
			{From: 16, To: 17, Bonus: 5},
		},
		OffBandPenalty: -10,
		WeekdayBonus: map[time.Weekday]float64{
			time.Monday:    5,
			time.Tuesday:   10,
			time.Wednesday: 10,
			time.Thursday:  10,
			time.Friday:    5,
		},
		LunchFrom:    12,
		LunchTo:      13,
		LunchPenalty: -15,
	}
}

// Policy is the business calendar shared by every component. It is built
// once at startup and only read afterwards.
type Policy struct {
	Location      *time.Location
	OpenHour      int
	CloseHour     int
	Granularity   time.Duration
	MaxResults    int
	BusyThreshold int
	Scoring       ScoringPolicy
}

// DefaultPolicy returns 09:00-18:00 Monday-Friday at +05:30 with 15 minute steps.
func DefaultPolicy() Policy {
	return Policy{
		Location:      DefaultLocation,
		OpenHour:      9,
		CloseHour:     18,
		Granularity:   15 * time.Minute,
		MaxResults:    5,
		BusyThreshold: 5,
		Scoring:       DefaultScoring(),
	}
}

func (p Policy) loc() *time.Location {
	if p.Location == nil {
		return DefaultLocation
	}
	return p.Location
}

// at returns the given wall clock time on t's calendar day.
func (p Policy) at(t time.Time, hour, minute int) time.Time {
	y, m, d := t.In(p.loc()).Date()
	return time.Date(y, m, d, hour, minute, 0, 0, p.loc())
}

func (p Policy) open(t time.Time) time.Time  { return p.at(t, p.OpenHour, 0) }
func (p Policy) close(t time.Time) time.Time { return p.at(t, p.CloseHour, 0) }

// nextOpen returns business open on the calendar day after t.
func (p Policy) nextOpen(t time.Time) time.Time {
	return p.open(t).AddDate(0, 0, 1)
}

// BusinessDayMinutes is the length of one business day.
func (p Policy) BusinessDayMinutes() int {
	return (p.CloseHour - p.OpenHour) * 60
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// rollToWeekday moves t forward one day at a time until it is not a weekend day.
func rollToWeekday(t time.Time) time.Time {
	for isWeekend(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// WithinBusinessHours reports whether [start, end) is on a weekday between
// open and close of start's day.
func (p Policy) WithinBusinessHours(start, end time.Time) bool {
	if isWeekend(start) || end.Before(start) {
		return false
	}
	return !start.Before(p.open(start)) && !end.After(p.close(start))
}

// Naive reinterprets t's wall clock in the business location, dropping its
// original offset.
func (p Policy) Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), p.loc())
}
