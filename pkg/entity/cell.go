package entity

import (
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/typedna/pkg/edit"
	"github.com/Sumatoshi-tech/typedna/pkg/faults"
)

// Cell errors.
var (
	ErrWrongEntity  = fmt.Errorf("%w: record belongs to another entity", faults.ErrInvariant)
	ErrOutsideRange = fmt.Errorf("%w: record date outside cell interval", faults.ErrInvariant)
)

// Cell holds the records of one entity within the closed interval [Start, End].
type Cell struct {
	Start   time.Time
	End     time.Time
	Type    string
	records []*edit.Record
}

// NewCell creates an empty cell for the named entity.
func NewCell(start, end time.Time, typeName string) *Cell {
	return &Cell{Start: start, End: end, Type: typeName}
}

// Accepts reports whether r's date lies within the cell interval.
// Comparison is on Unix milliseconds, the same key the records are sorted by.
func (c *Cell) Accepts(r *edit.Record) bool {
	ms := r.Millis()

	return c.Start.UnixMilli() <= ms && ms <= c.End.UnixMilli()
}

// Add appends r.
func (c *Cell) Add(r *edit.Record) error {
	if r.Type != c.Type {
		return fmt.Errorf("%w: %q in cell for %q", ErrWrongEntity, r.Type, c.Type)
	}

	if !c.Accepts(r) {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrOutsideRange,
			r.Date().Format(time.RFC3339), c.Start.Format(time.RFC3339), c.End.Format(time.RFC3339))
	}

	c.records = append(c.records, r)

	return nil
}

// Records returns the records in insertion order.
func (c *Cell) Records() []*edit.Record { return c.records }

// HasData reports whether the cell holds at least one record.
func (c *Cell) HasData() bool { return len(c.records) > 0 }

// Observations returns the number of records.
func (c *Cell) Observations() int { return len(c.records) }

// Adds returns the number of additions.
func (c *Cell) Adds() int {
	n := 0

	for _, r := range c.records {
		if r.IsAdd() {
			n++
		}
	}

	return n
}

// Deletions returns the number of deletions.
func (c *Cell) Deletions() int {
	n := 0

	for _, r := range c.records {
		if r.IsRemove() {
			n++
		}
	}

	return n
}

// Authors returns the distinct author shorthands in first-seen order.
func (c *Cell) Authors() []string {
	return distinct(c.records, func(r *edit.Record) string { return r.Author().Shorthand() })
}

// Commits returns the distinct commit IDs in first-seen order.
func (c *Cell) Commits() []string {
	return distinct(c.records, (*edit.Record).SHA)
}

func distinct(records []*edit.Record, key func(*edit.Record) string) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))

	for _, r := range records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}
		out = append(out, k)
	}

	return out
}
