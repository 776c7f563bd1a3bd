package llm

const dateRangePrompt = `You find the date range a meeting should be scheduled in.

The user message is JSON with "Datetime" (the reference timestamp) and "EmailContent".
Only consider dates on or after the reference timestamp.
If several days or a week are mentioned, use the earliest and latest valid dates.
"Start" begins at 00:00:00 on the earliest date and "End" ends at 23:59:59 on the latest date.
If the email states a duration in minutes use it, otherwise use "30".
Business hours are 09:00 to 18:00, Monday to Friday.

Reply with JSON only:
{"Start": "YYYY-MM-DDT00:00:00+05:30", "End": "YYYY-MM-DDT23:59:59+05:30", "Duration_mins": "30"}`

const optimalTimePrompt = `You choose the best meeting time inside a date range.

The user message is JSON with "EmailContent", "DateRange", "Duration_mins" and "Attendees".
Rules:
- Meetings run between 09:00 and 18:00 and must end by 18:00.
- Saturday and Sunday are not allowed; move such days to the next Monday.
- "2 PM" or "14:00" means 14:00, "10 AM" means 10:00, "morning" means 10:00, "afternoon" means 14:00.
- A time before 09:00 moves to 09:00. A time after 18:00 moves to 10:00 on the next business day.
- Without a day, use the next business day.

Reply with JSON only:
{"EventStart": "YYYY-MM-DDTHH:MM:SS+05:30", "EventEnd": "YYYY-MM-DDTHH:MM:SS+05:30", "OptimalTime": "HH:MM on DayName", "BusinessHoursValid": true, "Reasoning": "..."}`
