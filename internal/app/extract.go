package app

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

type durationRule struct {
	markers []string
	minutes int
}

// Evaluated in order; the first rule with a matching marker wins.
var durationRules = []durationRule{
	{markers: []string{"30 min", "half hour"}, minutes: 30},
	{markers: []string{"1 hour", "60 min"}, minutes: 60},
	{markers: []string{"15 min"}, minutes: 15},
	{markers: []string{"45 min"}, minutes: 45},
}

const defaultDurationMinutes = 30

type dayRule struct {
	markers []string
	resolve func(ref time.Time) time.Time
}

func nextWeekday(wd time.Weekday) func(time.Time) time.Time {
	return func(ref time.Time) time.Time {
		ahead := int(wd) - int(ref.Weekday())
		if ahead <= 0 {
			ahead += 7
		}
		return ref.AddDate(0, 0, ahead)
	}
}

var dayRules = []dayRule{
	{markers: []string{"monday"}, resolve: nextWeekday(time.Monday)},
	{markers: []string{"tuesday"}, resolve: nextWeekday(time.Tuesday)},
	{markers: []string{"wednesday"}, resolve: nextWeekday(time.Wednesday)},
	{markers: []string{"thursday"}, resolve: nextWeekday(time.Thursday)},
	{markers: []string{"friday"}, resolve: nextWeekday(time.Friday)},
	{markers: []string{"tomorrow"}, resolve: func(ref time.Time) time.Time { return ref.AddDate(0, 0, 1) }},
	{markers: []string{"today"}, resolve: func(ref time.Time) time.Time { return ref }},
}

type timeRule struct {
	markers []string
	at      TimeOfDay
}

var timeRules = []timeRule{
	{markers: []string{"9 am", "9:00 am"}, at: TimeOfDay{Hour: 9}},
	{markers: []string{"10 am", "10:00 am"}, at: TimeOfDay{Hour: 10}},
	{markers: []string{"11 am", "11:00 am"}, at: TimeOfDay{Hour: 11}},
	{markers: []string{"2 pm", "2:00 pm", "14:00"}, at: TimeOfDay{Hour: 14}},
	{markers: []string{"3 pm", "3:00 pm", "15:00"}, at: TimeOfDay{Hour: 15}},
	{markers: []string{"4 pm", "4:00 pm", "16:00"}, at: TimeOfDay{Hour: 16}},
	{markers: []string{"morning"}, at: TimeOfDay{Hour: 10}},
	{markers: []string{"afternoon"}, at: TimeOfDay{Hour: 14}},
}

type priorityRule struct {
	markers  []string
	priority Priority
}

var priorityRules = []priorityRule{
	{markers: []string{"urgent", "asap", "immediately", "critical"}, priority: PriorityHigh},
	{markers: []string{"when convenient", "flexible", "no rush"}, priority: PriorityLow},
}

// firstMarker returns the first marker contained in text.
func firstMarker(text string, markers []string) (string, bool) {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return m, true
		}
	}
	return "", false
}

// Extractor turns free-form meeting text into scheduling constraints. It is
// safe for concurrent use.
type Extractor struct {
	policy Policy
	now    func() time.Time
	log    *zap.Logger
}

func NewExtractor(policy Policy, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{policy: policy, now: time.Now, log: log}
}

// Reference parses a reference timestamp, substituting the current time when
// it cannot be parsed.
func (e *Extractor) Reference(reference string) time.Time {
	ref, err := e.policy.ParseTimestamp(reference)
	if err != nil {
		e.log.Warn("unparsable reference timestamp, using current time",
			zap.String("reference", reference), zap.Error(err))
		return e.policy.Naive(e.now().In(e.policy.loc()))
	}
	return ref
}

// Extract never fails.
func (e *Extractor) Extract(text, reference string) ExtractionResult {
	return e.ExtractAt(text, e.Reference(reference))
}

// ExtractAt applies the rule tables to text relative to ref.
func (e *Extractor) ExtractAt(text string, ref time.Time) ExtractionResult {
	lower := strings.ToLower(text)
	res := ExtractionResult{
		DurationMinutes: defaultDurationMinutes,
		Priority:        PriorityMedium,
		MatchedKeywords: []string{},
	}

	for _, r := range durationRules {
		if m, ok := firstMarker(lower, r.markers); ok {
			res.DurationMinutes = r.minutes
			res.MatchedKeywords = append(res.MatchedKeywords, m)
			break
		}
	}

	for _, r := range dayRules {
		if m, ok := firstMarker(lower, r.markers); ok {
			day := rollToWeekday(e.policy.at(r.resolve(ref), 0, 0))
			res.PreferredDay = &day
			res.MatchedKeywords = append(res.MatchedKeywords, m)
			break
		}
	}

	for _, r := range timeRules {
		if m, ok := firstMarker(lower, r.markers); ok {
			at := r.at
			res.PreferredTime = &at
			res.MatchedKeywords = append(res.MatchedKeywords, m)
			break
		}
	}

	for _, r := range priorityRules {
		if m, ok := firstMarker(lower, r.markers); ok {
			res.Priority = r.priority
			res.MatchedKeywords = append(res.MatchedKeywords, m)
			break
		}
	}

	return res
}
