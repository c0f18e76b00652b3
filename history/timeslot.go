package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
)

// Sentinel extremes of an open interval.
var (
	BeginOfTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	EndOfTime   = time.Date(9999, time.December, 31, 23, 59, 59, 999999000, time.UTC)
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02T15:04:05.000000"
)

var inputLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
}

// Moment is one interval boundary: a date, a datetime or a sentinel.
type Moment struct {
	Time time.Time
	// Date marks a value given without a time of day.
	Date bool
}

// IsSentinel reports whether m is BeginOfTime or EndOfTime.
func (m Moment) IsSentinel() bool {
	return m.Time.Equal(BeginOfTime) || m.Time.Equal(EndOfTime)
}

// String renders m in canonical form. Sentinels render as "".
func (m Moment) String() string {
	switch {
	case m.IsSentinel():
		return ""
	case m.Date:
		return m.Time.Format(dateLayout)
	default:
		return m.Time.Format(datetimeLayout)
	}
}

// TimeSlot is the half-open interval [Start, End).
type TimeSlot struct {
	Start Moment
	End   Moment
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("[%s, %s)", s.Start, s.End)
}

// within reports whether s lies inside the interval [start, end].
func (s TimeSlot) within(start, end Moment) bool {
	return !s.Start.Time.Before(start.Time) && !s.End.Time.After(end.Time)
}

// ParseMoment parses a validity value. Missing values yield ok=false.
func ParseMoment(field string, v any) (m Moment, ok bool, err error) {
	var s string
	switch t := v.(type) {
	case nil:
		return Moment{}, false, nil
	case string:
		s = t
	case json.Number:
		return Moment{}, false, errors.ConversionError(field, v, fmt.Errorf("not a date or datetime"))
	default:
		return Moment{}, false, errors.ConversionError(field, entity.Text(v), fmt.Errorf("not a date or datetime"))
	}
	if s == "" {
		return Moment{}, false, nil
	}
	if len(s) == len(dateLayout) {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return Moment{}, false, errors.ConversionError(field, s, err)
		}
		return Moment{Time: t, Date: true}, true, nil
	}
	var lastErr error
	for _, layout := range inputLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Moment{Time: t.UTC()}, true, nil
		}
		lastErr = err
	}
	return Moment{}, false, errors.ConversionError(field, s, lastErr)
}
