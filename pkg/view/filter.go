package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/typedna/pkg/faults"
	"github.com/Sumatoshi-tech/typedna/pkg/identity"
	"github.com/Sumatoshi-tech/typedna/pkg/timeslice"
)

// Filter errors.
var (
	ErrInvalidRange = fmt.Errorf("%w: filter start must precede filter end", faults.ErrInvariant)
	ErrInvalidLimit = fmt.Errorf("%w: limit must not be negative", faults.ErrMalformedInput)
)

// Filter constrains a View. The zero value, like a nil *Filter, selects
// everything: the full date range, monthly slices, no limit, every author
// and every entity.
type Filter struct {
	// Start defaults to the date of the first record.
	Start *time.Time
	// End defaults to the date of the last record.
	End *time.Time
	// Step defaults to timeslice.Month.
	Step timeslice.Step
	// Limit caps the number of entities; zero means unbounded.
	Limit int
	// Authors restricts cells to these authors. Entries match an identity
	// shorthand, an email (case-insensitively) or a resolved author ID.
	Authors []string
	// TypeFilter keeps entities whose name contains it, ignoring case.
	TypeFilter string
}

// AuthorResolver maps an identity to the ID of the author it belongs to.
// *identity.Configuration implements it.
type AuthorResolver interface {
	AuthorID(id *identity.AuthorIdentity) string
}

type shorthandResolver struct{}

func (shorthandResolver) AuthorID(id *identity.AuthorIdentity) string { return id.Shorthand() }

// resolved is a Filter with defaults applied.
type resolved struct {
	start, end time.Time
	step       timeslice.Step
	limit      int
	typeFilter string
	authors    authorSet
}

func (f *Filter) resolve(first, last time.Time) (resolved, error) {
	if f == nil {
		f = &Filter{}
	}

	r := resolved{start: first, end: last, typeFilter: strings.ToLower(f.TypeFilter)}

	if f.Start != nil {
		r.start = *f.Start
	}

	if f.End != nil {
		r.end = *f.End
	}

	if !r.start.Before(r.end) {
		return resolved{}, fmt.Errorf("%w: %s >= %s", ErrInvalidRange,
			r.start.Format(time.RFC3339), r.end.Format(time.RFC3339))
	}

	step, err := timeslice.ParseStep(string(f.Step))
	if err != nil {
		return resolved{}, err
	}

	r.step = step

	if f.Limit < 0 {
		return resolved{}, fmt.Errorf("%w: %d", ErrInvalidLimit, f.Limit)
	}

	r.limit = f.Limit
	r.authors = newAuthorSet(f.Authors)

	return r, nil
}

type authorSet struct {
	exact  map[string]struct{}
	folded map[string]struct{}
}

func newAuthorSet(entries []string) authorSet {
	if len(entries) == 0 {
		return authorSet{}
	}

	set := authorSet{
		exact:  make(map[string]struct{}, len(entries)),
		folded: make(map[string]struct{}, len(entries)),
	}

	for _, e := range entries {
		set.exact[e] = struct{}{}
		set.folded[strings.ToLower(e)] = struct{}{}
	}

	return set
}

func (s authorSet) empty() bool { return len(s.exact) == 0 }

func (s authorSet) allows(id *identity.AuthorIdentity, authorID string) bool {
	if s.empty() {
		return true
	}

	if _, ok := s.exact[id.Shorthand()]; ok {
		return true
	}

	if _, ok := s.exact[authorID]; ok {
		return true
	}

	_, ok := s.folded[strings.ToLower(id.Email)]

	return ok
}
