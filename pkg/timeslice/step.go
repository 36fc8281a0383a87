// Package timeslice partitions a date range into calendar-aligned buckets
// shared by every entity.
package timeslice

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/typedna/pkg/faults"
)

// ErrInvalidStep is returned for an unknown step size.
var ErrInvalidStep = fmt.Errorf("%w: invalid step size", faults.ErrMalformedInput)

// Step is the width of one time slice.
type Step string

// Supported steps.
const (
	Hour  Step = "hour"
	Day   Step = "day"
	Week  Step = "week"
	Month Step = "month"
)

// DefaultStep is used when no step is requested.
const DefaultStep = Month

// Steps lists every supported step, narrowest first.
func Steps() []Step {
	return []Step{Hour, Day, Week, Month}
}

// ParseStep validates text. An empty string yields DefaultStep.
func ParseStep(text string) (Step, error) {
	if text == "" {
		return DefaultStep, nil
	}

	step := Step(strings.ToLower(strings.TrimSpace(text)))

	switch step {
	case Hour, Day, Week, Month:
		return step, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStep, text)
	}
}

// Back returns t moved one step into the past. Week and month are calendar
// units, so a month before March 15 is February 15. A day that does not exist
// in the prior month is clamped to its last day: March 31 goes to February 29
// in a leap year.
func (s Step) Back(t time.Time) (time.Time, error) {
	switch s {
	case Hour:
		return t.Add(-time.Hour), nil
	case Day:
		return t.AddDate(0, 0, -1), nil
	case Week:
		return t.AddDate(0, 0, -7), nil
	case Month:
		return previousMonth(t), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidStep, string(s))
	}
}

func previousMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	// Day 0 of a month is the last day of the month before it.
	lastDay := time.Date(year, month, 0, 0, 0, 0, 0, t.Location()).Day()

	return time.Date(year, month-1, min(day, lastDay), hour, minute, sec, t.Nanosecond(), t.Location())
}
