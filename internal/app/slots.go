package app

import (
	"sort"
	"time"
)

// Search enumerates fixed-duration slots on the business calendar inside
// window, marks conflicts against every attendee with a valid availability
// list, and returns the best MaxResults slots. When preferredDay is set the
// window is narrowed to that day's business hours, a weekend day rolling to
// the following Monday.
//
// Search does no I/O and holds no state; the same inputs always produce the
// same ordered result.
func (p Policy) Search(av Availability, window TimeWindow, durationMinutes int, preferredDay *time.Time) []CandidateSlot {
	if durationMinutes <= 0 || !window.Valid() {
		return nil
	}
	window = TimeWindow{Start: p.Naive(window.Start.In(p.loc())), End: p.Naive(window.End.In(p.loc()))}
	if preferredDay != nil {
		day := rollToWeekday(p.at(*preferredDay, 0, 0))
		window = clampWindow(window, TimeWindow{Start: p.open(day), End: p.close(day)})
		if !window.End.After(window.Start) {
			return nil
		}
	}

	step := p.Granularity
	if step <= 0 {
		step = 15 * time.Minute
	}
	dur := time.Duration(durationMinutes) * time.Minute
	attendees := av.Attendees()

	var slots []CandidateSlot
	cur := p.firstStart(window.Start, step)
	for cur.Before(window.End) {
		switch {
		case isWeekend(cur):
			cur = p.nextOpen(cur)
			continue
		case cur.Before(p.open(cur)):
			cur = p.open(cur)
			continue
		case !cur.Before(p.close(cur)):
			cur = p.nextOpen(cur)
			continue
		}
		end := cur.Add(dur)
		if end.After(p.close(cur)) {
			cur = p.nextOpen(cur)
			continue
		}
		if end.After(window.End) {
			break
		}
		slots = append(slots, p.evaluate(av, attendees, cur, end))
		cur = cur.Add(step)
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].AllAvailable != slots[j].AllAvailable {
			return slots[i].AllAvailable
		}
		return slots[i].Score > slots[j].Score
	})

	limit := p.MaxResults
	if limit <= 0 {
		limit = 5
	}
	if len(slots) > limit {
		slots = slots[:limit]
	}
	return slots
}

// firstStart is business open on start's day, or start rounded up to the
// step grid when that is later.
func (p Policy) firstStart(start time.Time, step time.Duration) time.Time {
	open := p.open(start)
	if !start.After(open) {
		return open
	}
	offset := start.Sub(open)
	steps := offset / step
	if offset%step != 0 {
		steps++
	}
	return open.Add(steps * step)
}

func clampWindow(w, bounds TimeWindow) TimeWindow {
	if bounds.Start.After(w.Start) {
		w.Start = bounds.Start
	}
	if bounds.End.Before(w.End) {
		w.End = bounds.End
	}
	return w
}

func (p Policy) evaluate(av Availability, attendees []string, start, end time.Time) CandidateSlot {
	slot := CandidateSlot{
		Start:          start,
		End:            end,
		Conflicts:      []Conflict{},
		Weekday:        start.Weekday().String(),
		TimePreference: TimePreference(start.Hour()),
	}
	for _, email := range attendees {
		st := av[email]
		if st.Err != nil {
			continue
		}
		for _, iv := range st.Intervals {
			if Overlaps(start, end, iv.Start, iv.End) {
				slot.Conflicts = append(slot.Conflicts, Conflict{
					Attendee: email,
					Label:    iv.Label,
					Interval: TimeWindow{Start: iv.Start, End: iv.End},
				})
				break
			}
		}
	}
	slot.AllAvailable = len(slot.Conflicts) == 0
	slot.Score = p.Scoring.Score(start, len(slot.Conflicts))
	return slot
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Score rates a slot starting at start with the given number of conflicting
// attendees.
func (s ScoringPolicy) Score(start time.Time, conflicts int) float64 {
	var score float64
	if conflicts == 0 {
		score += s.AvailableBonus
	} else {
		score -= float64(conflicts) * s.ConflictPenalty
	}

	hour := start.Hour()
	banded := false
	for _, b := range s.TimeBands {
		if hour >= b.From && hour <= b.To {
			score += b.Bonus
			banded = true
			break
		}
	}
	if !banded {
		score += s.OffBandPenalty
	}

	score += s.WeekdayBonus[start.Weekday()]

	if hour >= s.LunchFrom && hour <= s.LunchTo {
		score += s.LunchPenalty
	}
	return score
}

// TimePreference labels the hour a slot starts in.
func TimePreference(hour int) string {
	switch {
	case hour >= 9 && hour <= 11:
		return "morning_preferred"
	case hour >= 11 && hour <= 13:
		return "late_morning"
	case hour >= 13 && hour <= 15:
		return "early_afternoon"
	case hour >= 15 && hour <= 17:
		return "late_afternoon"
	default:
		return "non_business_hours"
	}
}
