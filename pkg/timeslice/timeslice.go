package timeslice

import (
	"fmt"
	"slices"
	"time"

	"github.com/Sumatoshi-tech/typedna/pkg/edit"
	"github.com/Sumatoshi-tech/typedna/pkg/faults"
)

// Slice errors.
var (
	ErrEmptyRange      = fmt.Errorf("%w: range start must precede its end", faults.ErrInvariant)
	ErrCountAlreadySet = fmt.Errorf("%w: cumulative type count can only be set once", faults.ErrInvariant)
	ErrCountNotSet     = fmt.Errorf("%w: cumulative type count read before it was set", faults.ErrInvariant)
)

// TimeSlice is the half-open interval [Start, End) across all entities.
type TimeSlice struct {
	Start   time.Time
	End     time.Time
	records []*edit.Record

	typeCount    int
	typeCountSet bool
}

// New creates an empty slice.
func New(start, end time.Time) *TimeSlice {
	return &TimeSlice{Start: start, End: end}
}

// Add registers a record that falls within the slice.
func (ts *TimeSlice) Add(r *edit.Record) {
	ts.records = append(ts.records, r)
}

// Records returns the registered records.
func (ts *TimeSlice) Records() []*edit.Record {
	return ts.records
}

// Contains reports whether t lies in [Start, End).
func (ts *TimeSlice) Contains(t time.Time) bool {
	return !t.Before(ts.Start) && t.Before(ts.End)
}

// SetCumulativeTypeCount records the number of distinct entities observed
// from the start of the data through this slice. It may be called once.
func (ts *TimeSlice) SetCumulativeTypeCount(n int) error {
	if ts.typeCountSet {
		return fmt.Errorf("%w: slice %s", ErrCountAlreadySet, ts.Start.Format(time.RFC3339))
	}

	ts.typeCount = n
	ts.typeCountSet = true

	return nil
}

// CumulativeTypeCount returns the value stored by SetCumulativeTypeCount.
func (ts *TimeSlice) CumulativeTypeCount() (int, error) {
	if !ts.typeCountSet {
		return 0, fmt.Errorf("%w: slice %s", ErrCountNotSet, ts.Start.Format(time.RFC3339))
	}

	return ts.typeCount, nil
}

// CreateRange covers [start, end] with consecutive slices one step wide,
// in ascending order. Boundaries are counted back from end, so the first
// slice may begin before start.
func CreateRange(start, end time.Time, step Step) ([]*TimeSlice, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: %s >= %s", ErrEmptyRange,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	var out []*TimeSlice

	currentEnd := end

	for start.Before(currentEnd) {
		lower, err := step.Back(currentEnd)
		if err != nil {
			return nil, err
		}

		out = append(out, New(lower, currentEnd))
		currentEnd = lower
	}

	slices.Reverse(out)

	return out, nil
}
