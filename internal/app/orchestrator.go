package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meeting-scheduler/internal/llm"
	"meeting-scheduler/internal/logging"
	"meeting-scheduler/internal/metrics"
)

// Stage is a step of the scheduling pipeline.
type Stage string

const (
	StageInit               Stage = "init"
	StageExtractingRange    Stage = "extracting_range"
	StageRangeExtracted     Stage = "range_extracted"
	StageRangeFallback      Stage = "range_fallback"
	StageFindingOptimalTime Stage = "finding_optimal_time"
	StageOptimalFound       Stage = "optimal_found"
	StageOptimalFallback    Stage = "optimal_fallback"
	StageAssembling         Stage = "assembling"
	StageDone               Stage = "done"
)

const (
	MethodTextService = "text_service"
	MethodRuleBased   = "rule_based"
)

// TextService is the text understanding collaborator.
type TextService interface {
	ExtractDateRange(ctx context.Context, req llm.DateRangeRequest) (llm.DateRange, error)
	SelectOptimalTime(ctx context.Context, req llm.OptimalTimeRequest) (llm.OptimalTime, error)
}

// ServiceMode is either Unavailable or Ready with a service. It is decided
// once at startup.
type ServiceMode struct {
	svc TextService
}

func Unavailable() ServiceMode { return ServiceMode{} }

// Ready wraps svc; a nil svc is Unavailable.
func Ready(svc TextService) ServiceMode { return ServiceMode{svc: svc} }

func (m ServiceMode) Available() bool { return m.svc != nil }

// Notifier is told about every successfully scheduled meeting.
type Notifier interface {
	Notify(ctx context.Context, result SchedulingResult) error
}

type OrchestratorConfig struct {
	Policy      Policy
	Provider    CalendarProvider
	Service     ServiceMode
	Strict      bool
	Concurrency int
	Notifier    Notifier
	Metrics     *metrics.Recorder
	Logger      *zap.Logger
}

// Orchestrator runs a meeting request through extraction, availability,
// search and assembly.
type Orchestrator struct {
	policy     Policy
	extractor  *Extractor
	aggregator *Aggregator
	service    ServiceMode
	strict     bool
	notifier   Notifier
	metrics    *metrics.Recorder
	log        *zap.Logger
	now        func() time.Time
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rec := cfg.Metrics
	return &Orchestrator{
		policy:    cfg.Policy,
		extractor: NewExtractor(cfg.Policy, log),
		aggregator: NewAggregator(cfg.Provider, cfg.Policy, log,
			WithConcurrency(cfg.Concurrency),
			WithFailureHook(func(string, error) { rec.AttendeeFetchFailed() }),
		),
		service:  cfg.Service,
		strict:   cfg.Strict,
		notifier: cfg.Notifier,
		metrics:  rec,
		log:      log,
		now:      time.Now,
	}
}

func (o *Orchestrator) Policy() Policy           { return o.policy }
func (o *Orchestrator) Extractor() *Extractor    { return o.extractor }
func (o *Orchestrator) Aggregator() *Aggregator  { return o.aggregator }
func (o *Orchestrator) ServiceMode() ServiceMode { return o.service }

// proposal is the optimal time before it is checked against availability.
type proposal struct {
	start, end  time.Time
	reasoning   string
	fromService bool
}

// run carries the per-request pipeline state.
type run struct {
	req      MeetingRequest
	ref      time.Time
	ext      ExtractionResult
	pipeline []Stage
}

func (r *run) enter(s Stage) { r.pipeline = append(r.pipeline, s) }

// Schedule resolves req into a scheduled meeting. Every failure is a
// *SchedulingError.
func (o *Orchestrator) Schedule(ctx context.Context, req MeetingRequest) (res SchedulingResult, err error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	log := o.log.With(logging.RequestID(req.RequestID))
	defer func() {
		if err != nil {
			o.metrics.Request(string(CodeOf(err)))
			log.Info("scheduling failed", zap.Error(err))
			return
		}
		o.metrics.Request("ok")
		log.Info("meeting scheduled", zap.String("start", res.EventStart), zap.String("end", res.EventEnd))
	}()

	if err := o.validate(req); err != nil {
		return SchedulingResult{}, err
	}
	if o.strict && !o.service.Available() {
		return SchedulingResult{}, newError(CodeServiceUnavailable, req.RequestID, "text understanding service is not available", nil)
	}
	if err := ctx.Err(); err != nil {
		return SchedulingResult{}, o.cancelled(req, err)
	}

	r := &run{req: req, pipeline: []Stage{StageInit}}
	r.ref = o.extractor.Reference(req.Datetime)
	r.ext = o.extractor.ExtractAt(req.EmailContent, r.ref)

	r.enter(StageExtractingRange)
	window, rangeFromService, svcMinutes, err := o.dateRange(ctx, log, r)
	if err != nil {
		return SchedulingResult{}, err
	}

	duration, err := o.duration(req, svcMinutes, r.ext)
	if err != nil {
		return SchedulingResult{}, err
	}

	r.enter(StageFindingOptimalTime)
	prop, err := o.optimalTime(ctx, log, r, window, rangeFromService, duration)
	if err != nil {
		return SchedulingResult{}, err
	}

	av, err := o.aggregator.Aggregate(ctx, req.Participants(), window)
	if err != nil {
		return SchedulingResult{}, o.cancelled(req, err)
	}
	if av.AllFailed() {
		e := newError(CodeAllAttendeesFailed, req.RequestID, "no available time slots: calendar fetch failed for every attendee", nil)
		e.AvailabilitySummary = av.Summary()
		return SchedulingResult{}, e
	}

	candidates := o.policy.Search(av, window, duration, r.ext.PreferredDay)
	if !anyAvailable(candidates) && r.ext.PreferredDay != nil {
		candidates = o.policy.Search(av, window, duration, nil)
	}

	chosen, resolved, ok := o.choose(av, window, prop, candidates)
	if !ok {
		e := newError(CodeNoSlotFound, req.RequestID, "no available time slots found for all attendees", nil)
		e.AvailabilitySummary = av.Summary()
		return SchedulingResult{}, e
	}

	r.enter(StageAssembling)
	res = Assemble(req, chosen, av)
	if err := ctx.Err(); err != nil {
		return SchedulingResult{}, o.cancelled(req, err)
	}
	r.enter(StageDone)

	alternatives := 0
	for _, c := range candidates {
		if c.AllAvailable && !c.Start.Equal(chosen.Start) {
			alternatives++
		}
	}
	score := chosen.Score
	valid := o.policy.WithinBusinessHours(prop.start, prop.end)
	method := MethodRuleBased
	if prop.fromService {
		method = MethodTextService
	}
	res.MetaData = MetaData{
		SlotScore:             &score,
		ConflictsResolved:     &resolved,
		AlternativeSlotsCount: &alternatives,
		ProcessingTimestamp:   o.now().In(o.policy.loc()).Format(time.RFC3339),
		Method:                method,
		Priority:              r.ext.Priority,
		MatchedKeywords:       r.ext.MatchedKeywords,
		OptimalTime:           fmt.Sprintf("%s on %s", prop.start.Format("15:04"), prop.start.Weekday()),
		BusinessHoursValid:    &valid,
		Reasoning:             prop.reasoning,
		DateRange:             &DateRange{Start: FormatTimestamp(window.Start), End: FormatTimestamp(window.End)},
		Pipeline:              r.pipeline,
	}

	if o.notifier != nil {
		if nerr := o.notifier.Notify(ctx, res); nerr != nil {
			o.metrics.NotifyFailed()
			log.Warn("meeting notification failed", zap.Error(nerr))
		}
	}
	return res, nil
}

func (o *Orchestrator) validate(req MeetingRequest) error {
	if req.From == "" {
		return newError(CodeInvalidRequest, req.RequestID, "From is required", nil)
	}
	if len(req.Attendees) == 0 {
		return newError(CodeInvalidRequest, req.RequestID, "at least one attendee is required", nil)
	}
	for i, a := range req.Attendees {
		if a.Email == "" {
			return newError(CodeInvalidRequest, req.RequestID, fmt.Sprintf("attendee %d has no email", i), nil)
		}
	}
	return nil
}

func (o *Orchestrator) cancelled(req MeetingRequest, err error) *SchedulingError {
	return newError(CodeCancelled, req.RequestID, "request cancelled", err)
}

// duration applies request, then service, then extractor precedence.
func (o *Orchestrator) duration(req MeetingRequest, svcMinutes int, ext ExtractionResult) (int, error) {
	d := ext.DurationMinutes
	switch {
	case req.DurationMins != 0:
		d = int(req.DurationMins)
	case svcMinutes > 0:
		d = svcMinutes
	}
	if d < 1 || d > o.policy.BusinessDayMinutes() {
		return 0, newError(CodeInvalidRequest, req.RequestID,
			fmt.Sprintf("duration %d minutes must be between 1 and %d", d, o.policy.BusinessDayMinutes()), nil)
	}
	return d, nil
}

// dateRange runs the first service operation, falling back to the request
// range or the default window.
func (o *Orchestrator) dateRange(ctx context.Context, log *zap.Logger, r *run) (TimeWindow, bool, int, error) {
	if o.service.Available() {
		start := time.Now()
		dr, err := o.service.svc.ExtractDateRange(ctx, llm.DateRangeRequest{
			Datetime:     r.req.Datetime,
			EmailContent: r.req.EmailContent,
		})
		o.metrics.ServiceCall(llm.OpDateRange, time.Since(start), err)
		if err == nil {
			w, perr := o.parseWindow(dr.Start, dr.End)
			if perr == nil {
				r.enter(StageRangeExtracted)
				return w, true, dr.Minutes(), nil
			}
			err = perr
		}
		if cerr := ctx.Err(); cerr != nil {
			return TimeWindow{}, false, 0, o.cancelled(r.req, cerr)
		}
		log.Warn("date range extraction failed, using rules", zap.Error(err))
	}

	r.enter(StageRangeFallback)
	o.metrics.Fallback(string(StageRangeFallback))
	return o.fallbackWindow(log, r), false, 0, nil
}

func (o *Orchestrator) parseWindow(start, end string) (TimeWindow, error) {
	s, err := o.policy.ParseTimestamp(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := o.policy.ParseTimestamp(end)
	if err != nil {
		return TimeWindow{}, err
	}
	w := TimeWindow{Start: s, End: e}
	if !w.Valid() {
		return TimeWindow{}, errors.New("range end before start")
	}
	return w, nil
}

// fallbackWindow is the request's Start/End when both parse, otherwise the
// reference day through seven days later, widened to cover the preferred day.
func (o *Orchestrator) fallbackWindow(log *zap.Logger, r *run) TimeWindow {
	if r.req.Start != "" || r.req.End != "" {
		w, err := o.parseWindow(r.req.Start, r.req.End)
		if err == nil {
			return w
		}
		log.Warn("unparsable request range, using default window", zap.Error(err))
	}

	w := TimeWindow{
		Start: o.policy.at(r.ref, 0, 0),
		End:   o.policy.at(r.ref.AddDate(0, 0, 7), 23, 59).Add(59 * time.Second),
	}
	if pd := r.ext.PreferredDay; pd != nil {
		if open := o.policy.open(*pd); open.Before(w.Start) {
			w.Start = open
		}
		if closing := o.policy.close(*pd); closing.After(w.End) {
			w.End = closing
		}
	}
	return w
}

// optimalTime runs the second service operation only after the first
// succeeded.
func (o *Orchestrator) optimalTime(ctx context.Context, log *zap.Logger, r *run, window TimeWindow, rangeFromService bool, duration int) (proposal, error) {
	if rangeFromService {
		start := time.Now()
		ot, err := o.service.svc.SelectOptimalTime(ctx, llm.OptimalTimeRequest{
			EmailContent: r.req.EmailContent,
			DateRange: llm.DateRange{
				Start: FormatTimestamp(window.Start),
				End:   FormatTimestamp(window.End),
			},
			DurationMins: duration,
			Attendees:    r.req.Participants(),
		})
		o.metrics.ServiceCall(llm.OpOptimalTime, time.Since(start), err)
		if err == nil {
			var s time.Time
			s, err = o.policy.ParseTimestamp(ot.EventStart)
			if err == nil {
				r.enter(StageOptimalFound)
				return proposal{
					start:       s,
					end:         s.Add(time.Duration(duration) * time.Minute),
					reasoning:   ot.Reasoning,
					fromService: true,
				}, nil
			}
		}
		if cerr := ctx.Err(); cerr != nil {
			return proposal{}, o.cancelled(r.req, cerr)
		}
		log.Warn("optimal time selection failed, using rules", zap.Error(err))
	}

	r.enter(StageOptimalFallback)
	o.metrics.Fallback(string(StageOptimalFallback))
	return o.fallbackProposal(r.ref, r.ext, duration), nil
}

// fallbackProposal places the meeting on the preferred day, or the next
// business day, at the preferred time of day or 10:00, then clamps it into
// business hours.
func (o *Orchestrator) fallbackProposal(ref time.Time, ext ExtractionResult, duration int) proposal {
	p := o.policy
	dur := time.Duration(duration) * time.Minute
	at := TimeOfDay{Hour: 10}
	if ext.PreferredTime != nil {
		at = *ext.PreferredTime
	}

	var day time.Time
	var reason string
	if ext.PreferredDay != nil {
		day = rollToWeekday(p.at(*ext.PreferredDay, 0, 0))
		reason = fmt.Sprintf("preferred day %s", day.Weekday())
	} else {
		day = rollToWeekday(p.at(ref, 0, 0).AddDate(0, 0, 1))
		reason = fmt.Sprintf("next business day %s", day.Weekday())
	}

	start := p.at(day, at.Hour, at.Minute)
	nextDay := func(t time.Time) time.Time {
		return p.at(rollToWeekday(p.at(t, 0, 0).AddDate(0, 0, 1)), 10, 0)
	}
	switch {
	case start.Before(p.open(start)):
		start = p.open(start)
		reason += ", moved to business open"
	case !start.Before(p.close(start)):
		start = nextDay(start)
		reason += ", moved past business close to next business day"
	}
	if start.Add(dur).After(p.close(start)) {
		if open := p.open(start); !open.Add(dur).After(p.close(start)) {
			start = open
			reason += ", moved to business open to finish before close"
		} else {
			start = nextDay(start)
			reason += ", moved to next business day"
		}
	}
	return proposal{
		start:     start,
		end:       start.Add(dur),
		reasoning: fmt.Sprintf("rule based: %s at %s", reason, start.Format("15:04")),
	}
}

// choose keeps the proposal when it is conflict free inside business hours
// and the fetched window, otherwise takes the best fully available candidate.
func (o *Orchestrator) choose(av Availability, window TimeWindow, prop proposal, candidates []CandidateSlot) (CandidateSlot, bool, bool) {
	inWindow := !prop.start.Before(window.Start) && !prop.end.After(window.End)
	if inWindow && o.policy.WithinBusinessHours(prop.start, prop.end) {
		slot := o.policy.evaluate(av, av.Attendees(), prop.start, prop.end)
		if slot.AllAvailable {
			return slot, false, true
		}
	}
	for _, c := range candidates {
		if c.AllAvailable {
			return c, true, true
		}
	}
	return CandidateSlot{}, false, false
}

func anyAvailable(slots []CandidateSlot) bool {
	for _, s := range slots {
		if s.AllAvailable {
			return true
		}
	}
	return false
}
