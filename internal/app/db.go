package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const calendarEventsSchema = `
CREATE TABLE IF NOT EXISTS calendar_events (
    id         BIGSERIAL PRIMARY KEY,
    attendee   TEXT        NOT NULL,
    start_at   TIMESTAMPTZ NOT NULL,
    end_at     TIMESTAMPTZ NOT NULL,
    summary    TEXT        NOT NULL DEFAULT '',
    attendees  TEXT[]      NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CHECK (end_at >= start_at)
);
CREATE INDEX IF NOT EXISTS calendar_events_attendee_start_idx
    ON calendar_events (attendee, start_at);`

// PostgresCalendar serves attendee events from the calendar_events table.
type PostgresCalendar struct {
	db     Querier
	policy Policy
}

func NewPostgresCalendar(db Querier, policy Policy) *PostgresCalendar {
	return &PostgresCalendar{db: db, policy: policy}
}

func (p *PostgresCalendar) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, calendarEventsSchema); err != nil {
		return fmt.Errorf("create calendar_events: %w", err)
	}
	return nil
}

// BusyIntervals returns the attendee's events overlapping [start, end).
func (p *PostgresCalendar) BusyIntervals(ctx context.Context, attendee string, start, end time.Time) ([]CalendarEvent, error) {
	q := `SELECT start_at, end_at, summary, attendees
	      FROM calendar_events
	      WHERE attendee=$1 AND start_at < $3 AND end_at > $2
	      ORDER BY start_at`
	rows, err := p.db.Query(ctx, q, attendee, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CalendarEvent{}
	for rows.Next() {
		var (
			s, e      time.Time
			summary   string
			attendees []string
		)
		if err := rows.Scan(&s, &e, &summary, &attendees); err != nil {
			return nil, err
		}
		if len(attendees) == 0 {
			attendees = []string{"SELF"}
		}
		out = append(out, CalendarEvent{
			StartTime:    FormatTimestamp(s.In(p.policy.loc())),
			EndTime:      FormatTimestamp(e.In(p.policy.loc())),
			NumAttendees: len(attendees),
			Attendees:    attendees,
			Summary:      summary,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
