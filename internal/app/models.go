package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Minutes is a meeting length. It decodes from a JSON number or a numeric
// string and encodes as a string, matching the wire format of requests.
type Minutes int

func (m *Minutes) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*m = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid Duration_mins %s: %w", string(b), err)
	}
	*m = Minutes(v)
	return nil
}

func (m Minutes) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(m)))
}

type Attendee struct {
	Email string `json:"email" binding:"required,email"`
}

type MeetingRequest struct {
	RequestID    string     `json:"Request_id"`
	Datetime     string     `json:"Datetime"`
	Location     string     `json:"Location"`
	From         string     `json:"From" binding:"required,email"`
	Attendees    []Attendee `json:"Attendees" binding:"dive"`
	Subject      string     `json:"Subject,omitempty"`
	EmailContent string     `json:"EmailContent,omitempty"`
	DurationMins Minutes    `json:"Duration_mins,omitempty"`
	Start        string     `json:"Start,omitempty"`
	End          string     `json:"End,omitempty"`
}

// Participants returns From followed by every attendee, without duplicates.
func (r MeetingRequest) Participants() []string {
	seen := make(map[string]struct{}, len(r.Attendees)+1)
	out := make([]string, 0, len(r.Attendees)+1)
	add := func(email string) {
		email = strings.TrimSpace(email)
		if email == "" {
			return
		}
		key := strings.ToLower(email)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, email)
	}
	add(r.From)
	for _, a := range r.Attendees {
		add(a.Email)
	}
	return out
}

// CalendarEvent is the event record exchanged with calendar providers and
// echoed back in results.
type CalendarEvent struct {
	StartTime    string   `json:"StartTime"`
	EndTime      string   `json:"EndTime"`
	NumAttendees int      `json:"NumAttendees"`
	Attendees    []string `json:"Attendees"`
	Summary      string   `json:"Summary"`
}

type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w TimeWindow) Valid() bool { return !w.End.Before(w.Start) }

type BusyInterval struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Attendees []string  `json:"attendees"`
	Label     string    `json:"label"`
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// TimeOfDay is a wall clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

func (t TimeOfDay) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

type ExtractionResult struct {
	DurationMinutes int        `json:"duration_minutes"`
	PreferredDay    *time.Time `json:"preferred_day,omitempty"`
	PreferredTime   *TimeOfDay `json:"preferred_time,omitempty"`
	Priority        Priority   `json:"priority"`
	MatchedKeywords []string   `json:"matched_keywords"`
}

type Conflict struct {
	Attendee string     `json:"attendee"`
	Label    string     `json:"conflicting_event"`
	Interval TimeWindow `json:"event_time"`
}

type CandidateSlot struct {
	Start          time.Time  `json:"start_time"`
	End            time.Time  `json:"end_time"`
	AllAvailable   bool       `json:"all_available"`
	Conflicts      []Conflict `json:"conflicts"`
	Score          float64    `json:"score"`
	Weekday        string     `json:"day_of_week"`
	TimePreference string     `json:"time_preference"`
}

type AttendeeEvents struct {
	Email  string          `json:"email"`
	Events []CalendarEvent `json:"events"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MetaData carries scheduling diagnostics. Assemble leaves it empty; the
// orchestrator fills it in.
type MetaData struct {
	SlotScore             *float64   `json:"slot_score,omitempty"`
	ConflictsResolved     *bool      `json:"conflicts_resolved,omitempty"`
	AlternativeSlotsCount *int       `json:"alternative_slots_count,omitempty"`
	ProcessingTimestamp   string     `json:"processing_timestamp,omitempty"`
	Method                string     `json:"method,omitempty"`
	Priority              Priority   `json:"priority,omitempty"`
	MatchedKeywords       []string   `json:"matched_keywords,omitempty"`
	OptimalTime           string     `json:"optimal_time,omitempty"`
	BusinessHoursValid    *bool      `json:"business_hours_valid,omitempty"`
	Reasoning             string     `json:"reasoning,omitempty"`
	DateRange             *DateRange `json:"date_range,omitempty"`
	Pipeline              []Stage    `json:"pipeline,omitempty"`
}

type SchedulingResult struct {
	RequestID    string           `json:"Request_id"`
	Datetime     string           `json:"Datetime"`
	Location     string           `json:"Location"`
	From         string           `json:"From"`
	Subject      string           `json:"Subject"`
	EmailContent string           `json:"EmailContent"`
	EventStart   string           `json:"EventStart"`
	EventEnd     string           `json:"EventEnd"`
	DurationMins Minutes          `json:"Duration_mins"`
	Attendees    []AttendeeEvents `json:"Attendees"`
	MetaData     MetaData         `json:"MetaData"`
}
