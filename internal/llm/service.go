// Package llm talks to the text understanding service that proposes a date
// range and a meeting time for free-form scheduling requests.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Completer sends one system and user prompt pair to a model and returns the
// raw text of its reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ErrInvalidResponse marks a reply that is not JSON or does not match the
// operation's schema.
var ErrInvalidResponse = errors.New("invalid service response")

// ValidationError wraps a schema failure of a single operation.
type ValidationError struct {
	Op  string
	Raw string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrInvalidResponse, e.Err)
}

func (e *ValidationError) Unwrap() []error { return []error{ErrInvalidResponse, e.Err} }

// DateRangeRequest is the input of the date range operation.
type DateRangeRequest struct {
	Datetime     string `json:"Datetime"`
	EmailContent string `json:"EmailContent"`
}

// DateRange is the reply of the date range operation.
type DateRange struct {
	Start        string      `json:"Start" validate:"required,timestamp"`
	End          string      `json:"End" validate:"required,timestamp"`
	DurationMins json.Number `json:"Duration_mins" validate:"omitempty,numeric"`
}

// Minutes returns the proposed duration, zero when absent.
func (d DateRange) Minutes() int {
	n, err := d.DurationMins.Int64()
	if err != nil {
		return 0
	}
	return int(n)
}

// OptimalTimeRequest is the input of the optimal time operation.
type OptimalTimeRequest struct {
	EmailContent string    `json:"EmailContent"`
	DateRange    DateRange `json:"DateRange"`
	DurationMins int       `json:"Duration_mins"`
	Attendees    []string  `json:"Attendees"`
}

// OptimalTime is the reply of the optimal time operation.
type OptimalTime struct {
	EventStart         string `json:"EventStart" validate:"required,timestamp"`
	EventEnd           string `json:"EventEnd" validate:"required,timestamp"`
	OptimalTime        string `json:"OptimalTime"`
	BusinessHoursValid *bool  `json:"BusinessHoursValid" validate:"required"`
	Reasoning          string `json:"Reasoning"`
}

const (
	OpDateRange   = "date_range_extraction"
	OpOptimalTime = "optimal_time_selection"
)

// Service runs the two operations against a Completer, bounding every call
// by a timeout and validating every reply.
type Service struct {
	completer Completer
	timeout   time.Duration
	validate  *validator.Validate
	log       *zap.Logger
}

func NewService(completer Completer, timeout time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		completer: completer,
		timeout:   timeout,
		validate:  newValidator(),
		log:       log,
	}
}

// ExtractDateRange asks for the window the meeting should fall in.
func (s *Service) ExtractDateRange(ctx context.Context, req DateRangeRequest) (DateRange, error) {
	var out DateRange
	if err := s.call(ctx, OpDateRange, dateRangePrompt, req, &out); err != nil {
		return DateRange{}, err
	}
	if !endNotBeforeStart(out.Start, out.End) {
		return DateRange{}, &ValidationError{Op: OpDateRange, Err: fmt.Errorf("End %s before Start %s", out.End, out.Start)}
	}
	return out, nil
}

// SelectOptimalTime asks for a concrete meeting time inside req.DateRange.
func (s *Service) SelectOptimalTime(ctx context.Context, req OptimalTimeRequest) (OptimalTime, error) {
	var out OptimalTime
	if err := s.call(ctx, OpOptimalTime, optimalTimePrompt, req, &out); err != nil {
		return OptimalTime{}, err
	}
	if !endNotBeforeStart(out.EventStart, out.EventEnd) {
		return OptimalTime{}, &ValidationError{Op: OpOptimalTime, Err: fmt.Errorf("EventEnd %s before EventStart %s", out.EventEnd, out.EventStart)}
	}
	return out, nil
}

func (s *Service) call(ctx context.Context, op, system string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.completer.Complete(ctx, system, string(payload))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("service reply", zap.String("op", op), zap.Duration("elapsed", time.Since(start)), zap.Int("len", len(raw)))

	body := stripFences(raw)
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(out); err != nil {
		return &ValidationError{Op: op, Raw: raw, Err: err}
	}
	if err := s.validate.Struct(out); err != nil {
		return &ValidationError{Op: op, Raw: raw, Err: err}
	}
	return nil
}

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// endNotBeforeStart compares wall clocks, ignoring offsets.
func endNotBeforeStart(start, end string) bool {
	s, ok1 := parseTimestamp(start)
	e, ok2 := parseTimestamp(end)
	if !ok1 || !ok2 {
		return false
	}
	sw := time.Date(s.Year(), s.Month(), s.Day(), s.Hour(), s.Minute(), s.Second(), 0, time.UTC)
	ew := time.Date(e.Year(), e.Month(), e.Day(), e.Hour(), e.Minute(), e.Second(), 0, time.UTC)
	return !ew.Before(sw)
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		_, ok := parseTimestamp(fl.Field().String())
		return ok
	})
	return v
}
