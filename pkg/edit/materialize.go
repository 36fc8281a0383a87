package edit

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/Sumatoshi-tech/typedna/pkg/commit"
	"github.com/Sumatoshi-tech/typedna/pkg/faults"
)

// ErrUnknownCommit is returned when an edit names a commit that is not indexed.
var ErrUnknownCommit = fmt.Errorf("%w: edit references unknown commit", faults.ErrReferentialIntegrity)

// Materialize resolves every raw edit against commits and returns the records
// in ascending date order. Records sharing a timestamp keep input order.
func Materialize(raws []Raw, commits commit.Map) ([]*Record, error) {
	records := make([]*Record, 0, len(raws))

	for i, raw := range raws {
		c, ok := commits[raw.CommitID]
		if !ok {
			return nil, fmt.Errorf("edit %d: %w: %s", i, ErrUnknownCommit, raw.CommitID)
		}

		rec, err := NewRecord(raw, c)
		if err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}

		records = append(records, rec)
	}

	slices.SortStableFunc(records, func(a, b *Record) int {
		return cmp.Compare(a.Millis(), b.Millis())
	})

	return records, nil
}

// LowerBound returns the index of the first record dated at or after t.
func LowerBound(records []*Record, t time.Time) int {
	ms := t.UnixMilli()

	idx, _ := slices.BinarySearchFunc(records, ms, func(r *Record, target int64) int {
		return cmp.Compare(r.Millis(), target)
	})

	return idx
}

// UpperBound returns the index of the first record dated strictly after t.
func UpperBound(records []*Record, t time.Time) int {
	ms := t.UnixMilli()

	idx, _ := slices.BinarySearchFunc(records, ms+1, func(r *Record, target int64) int {
		return cmp.Compare(r.Millis(), target)
	})

	return idx
}
