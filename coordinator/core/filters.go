package core

import (
	"strings"
	"time"
)

type ListTasksFilter struct {
	Date   string      `json:"date"`
	Status *TaskStatus `json:"status"`
	// UserID, when set, makes the listing annotate each task with the
	// caller's personal sub-status flags.
	UserID *int64 `json:"user_id"`
}

const dateLayout = "2006-01-02"

// Period is a resolved reporting window. From and To are inclusive
// calendar dates.
type Period struct {
	From      string
	To        string
	SingleDay bool
}

// ParsePeriod accepts "today", "week", "YYYY-MM" and "YYYY-MM-DD".
func ParsePeriod(raw string, now time.Time) (Period, error) {
	raw = strings.TrimSpace(raw)
	today := now.Format(dateLayout)

	switch {
	case raw == "" || raw == "today":
		return Period{From: today, To: today, SingleDay: true}, nil
	case raw == "week":
		from := now.AddDate(0, 0, -7).Format(dateLayout)
		return Period{From: from, To: today}, nil
	case len(raw) == 7:
		month, err := time.Parse("2006-01", raw)
		if err != nil {
			return Period{}, ErrInvalidArgs
		}
		last := month.AddDate(0, 1, -1)
		return Period{From: month.Format(dateLayout), To: last.Format(dateLayout)}, nil
	case len(raw) == 10:
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			return Period{}, ErrInvalidArgs
		}
		d := day.Format(dateLayout)
		return Period{From: d, To: d, SingleDay: true}, nil
	}
	return Period{}, ErrInvalidArgs
}

// Contains reports whether the date (YYYY-MM-DD) falls inside the period.
// Lexicographic comparison is enough for ISO dates.
func (p Period) Contains(date string) bool {
	return date >= p.From && date <= p.To
}
