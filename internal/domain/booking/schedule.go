package booking

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type ScheduleKind int

const (
	ScheduleUnset ScheduleKind = iota
	ScheduleExactDate
	ScheduleFreeText
)

func (k ScheduleKind) String() string {
	switch k {
	case ScheduleExactDate:
		return "exact_date"
	case ScheduleFreeText:
		return "free_text"
	default:
		return "unset"
	}
}

// Schedule is either an exact tour date or a free-text availability note.
// The zero value is unset.
type Schedule struct {
	kind ScheduleKind
	date time.Time
	text string
}

// ExactDate truncates t to its UTC calendar day.
func ExactDate(t time.Time) Schedule {
	return Schedule{kind: ScheduleExactDate, date: today(t)}
}

func FreeText(text string) Schedule {
	text = strings.TrimSpace(text)
	if text == "" {
		return Schedule{}
	}
	return Schedule{kind: ScheduleFreeText, text: text}
}

func (s Schedule) Kind() ScheduleKind { return s.kind }

func (s Schedule) Date() (time.Time, bool) {
	return s.date, s.kind == ScheduleExactDate
}

func (s Schedule) Description() (string, bool) {
	return s.text, s.kind == ScheduleFreeText
}

// String renders the schedule for emails and logs.
func (s Schedule) String() string {
	switch s.kind {
	case ScheduleExactDate:
		return s.date.Format(dateLayout)
	case ScheduleFreeText:
		return s.text
	default:
		return ""
	}
}

func (s Schedule) MarshalJSON() ([]byte, error) {
	out := map[string]string{"kind": s.kind.String()}
	switch s.kind {
	case ScheduleExactDate:
		out["date"] = s.date.Format(dateLayout)
	case ScheduleFreeText:
		out["description"] = s.text
	}
	return json.Marshal(out)
}

// ParseSchedule builds a schedule from the request fields. A date takes
// precedence over a description.
func ParseSchedule(date, description string) (Schedule, error) {
	date = strings.TrimSpace(date)
	if date != "" {
		t, err := time.Parse(dateLayout, date)
		if err != nil {
			return Schedule{}, fmt.Errorf("%w: preferred_date must be YYYY-MM-DD", ErrValidation)
		}
		return ExactDate(t), nil
	}
	return FreeText(description), nil
}

func scheduleFromColumns(date *time.Time, description string) Schedule {
	if date != nil {
		return ExactDate(*date)
	}
	return FreeText(description)
}

func today(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
