package app

import "strings"

const (
	goalsSubject   = "Goals Discussion Meeting"
	defaultSubject = "Team Meeting"
)

// ResolveSubject returns the request subject, or a title derived from the
// email content when it is empty.
func ResolveSubject(req MeetingRequest) string {
	if s := strings.TrimSpace(req.Subject); s != "" {
		return s
	}
	if strings.Contains(strings.ToLower(req.EmailContent), "goals") {
		return goalsSubject
	}
	return defaultSubject
}

// Assemble merges the chosen slot into every participant's existing events.
// It does not write to any calendar.
func Assemble(req MeetingRequest, slot CandidateSlot, av Availability) SchedulingResult {
	participants := req.Participants()
	subject := ResolveSubject(req)
	durationMins := int(slot.End.Sub(slot.Start).Minutes())

	meeting := CalendarEvent{
		StartTime:    FormatTimestamp(slot.Start),
		EndTime:      FormatTimestamp(slot.End),
		NumAttendees: len(participants),
		Attendees:    participants,
		Summary:      subject,
	}

	attendees := make([]AttendeeEvents, 0, len(participants))
	for _, email := range participants {
		var events []CalendarEvent
		if st, ok := av[email]; ok && st.Err == nil {
			events = make([]CalendarEvent, 0, len(st.Events)+1)
			events = append(events, st.Events...)
		}
		events = append(events, meeting)
		attendees = append(attendees, AttendeeEvents{Email: email, Events: events})
	}

	return SchedulingResult{
		RequestID:    req.RequestID,
		Datetime:     req.Datetime,
		Location:     req.Location,
		From:         req.From,
		Subject:      subject,
		EmailContent: req.EmailContent,
		EventStart:   meeting.StartTime,
		EventEnd:     meeting.EndTime,
		DurationMins: Minutes(durationMins),
		Attendees:    attendees,
	}
}
