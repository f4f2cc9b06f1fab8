package store

import "time"

const dayLayout = "2006-01-02"

// Calendar derives local calendar days. Archive dates, the numbering day and
// the statistics default date all come from the same Calendar.
type Calendar struct {
	loc *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{loc: loc}
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Day formats t as YYYY-MM-DD in the calendar's zone.
func (c Calendar) Day(t time.Time) string {
	return t.In(c.Location()).Format(dayLayout)
}

func (c Calendar) Today(now time.Time) string {
	return c.Day(now)
}

// WeekStart returns the Sunday on or before day.
func (c Calendar) WeekStart(day string) (string, error) {
	parsed, err := c.ParseDay(day)
	if err != nil {
		return "", err
	}
	return parsed.AddDate(0, 0, -int(parsed.Weekday())).Format(dayLayout), nil
}

// ParseDay parses a YYYY-MM-DD date at local midnight.
func (c Calendar) ParseDay(day string) (time.Time, error) {
	parsed, err := time.ParseInLocation(dayLayout, day, c.Location())
	if err != nil {
		return time.Time{}, ValidationError("date must be YYYY-MM-DD, got %q", day)
	}
	return parsed, nil
}

func (c Calendar) ValidDay(day string) bool {
	_, err := c.ParseDay(day)
	return err == nil
}
