package view

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/typedna/pkg/edit"
	"github.com/Sumatoshi-tech/typedna/pkg/entity"
	"github.com/Sumatoshi-tech/typedna/pkg/faults"
	"github.com/Sumatoshi-tech/typedna/pkg/timeslice"
)

// Builder errors.
var (
	ErrNoRecords      = fmt.Errorf("%w: dataset has no edit records", faults.ErrInvariant)
	ErrEmptySelection = fmt.Errorf("%w: no entity matches the filter", faults.ErrInvariant)
	ErrBadView        = fmt.Errorf("%w: view min date after max date", faults.ErrInvariant)
)

// Option configures a Builder.
type Option func(*Builder)

// WithAuthorResolver groups identities into authors for the allow-list and
// the per-author statistics.
func WithAuthorResolver(r AuthorResolver) Option {
	return func(b *Builder) {
		if r != nil {
			b.resolver = r
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Builder applies filters to a Source. A Builder holds no per-call state and
// may be shared between goroutines as long as its resolver may.
type Builder struct {
	resolver AuthorResolver
	logger   *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{resolver: shorthandResolver{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build is NewBuilder().Build(src, f).
func Build(src Source, f *Filter) (*View, error) {
	return NewBuilder().Build(src, f)
}

// Build applies f to src and returns a fresh View. src is only read.
func (b *Builder) Build(src Source, f *Filter) (*View, error) {
	records := src.Records()
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	first, last := records[0].Date(), records[len(records)-1].Date()

	opts, err := f.resolve(first, last)
	if err != nil {
		return nil, err
	}

	applicable := records[edit.LowerBound(records, opts.start):edit.UpperBound(records, opts.end)]

	present := countTypes(applicable)

	names := selectTypes(applicable, present, opts.typeFilter, opts.limit)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: type filter %q", ErrEmptySelection, opts.typeFilter)
	}

	agg := entity.NewAggregator(names)

	slicesOut, err := timeslice.CreateRange(opts.start, opts.end, opts.step)
	if err != nil {
		return nil, err
	}

	err = b.fillSlices(applicable, slicesOut, agg, opts.authors)
	if err != nil {
		return nil, err
	}

	stats, typesOverall, filesOverall := b.authorStatistics(applicable)

	v := &View{
		Types:        withCells(agg.Entities()),
		TimeSlices:   slicesOut,
		TypesPresent: present,
		AuthorStats:  stats,
		TypesOverall: typesOverall,
		FilesOverall: filesOverall,
		Commits:      src.Commits(),
		Start:        opts.start,
		End:          opts.end,
		Step:         opts.step,
		absoluteMin:  first,
		absoluteMax:  last,
	}

	if v.MinDate().After(v.MaxDate()) {
		return nil, fmt.Errorf("%w: %s > %s", ErrBadView, v.MinDate(), v.MaxDate())
	}

	b.logger.Debug("view assembled",
		"records", len(applicable),
		"entities", len(v.Types),
		"slices", len(v.TimeSlices),
		"authors", len(v.AuthorStats),
		"step", string(opts.step))

	return v, nil
}

// fillSlices routes each applicable record to its slice and, when its entity
// is selected and its author allowed, to the entity's cells. Slices are
// half-open except the last, which also takes records dated exactly at End.
func (b *Builder) fillSlices(
	applicable []*edit.Record,
	slicesOut []*timeslice.TimeSlice,
	agg *entity.Aggregator,
	authors authorSet,
) error {
	seen := make(map[string]struct{})

	for i, ts := range slicesOut {
		final := i == len(slicesOut)-1

		lo := edit.LowerBound(applicable, ts.Start)
		hi := edit.LowerBound(applicable, ts.End)
		cellEnd := ts.End.Add(-time.Millisecond)

		if final {
			hi = edit.UpperBound(applicable, ts.End)
			cellEnd = ts.End
		}

		for _, r := range applicable[lo:hi] {
			seen[r.Type] = struct{}{}

			if _, ok := agg.Lookup(r.Type); !ok {
				continue
			}

			if !authors.allows(r.Author(), b.resolver.AuthorID(r.Author())) {
				continue
			}

			_, err := agg.AddEntry(r, ts.Start, cellEnd)
			if err != nil {
				return err
			}

			ts.Add(r)
		}

		err := ts.SetCumulativeTypeCount(len(seen))
		if err != nil {
			return err
		}
	}

	return nil
}

// authorStatistics walks applicable records as contiguous per-commit runs
// and emits one snapshot per commit for the commit's author.
func (b *Builder) authorStatistics(applicable []*edit.Record) (
	AuthorStatistics, map[string]struct{}, map[string]struct{},
) {
	type authorSets struct {
		files map[string]struct{}
		types map[string]struct{}
	}

	stats := make(AuthorStatistics)
	perAuthor := make(map[string]*authorSets)
	typesOverall := make(map[string]struct{})
	filesOverall := make(map[string]struct{})

	forEachCommit(applicable, func(run []*edit.Record) {
		c := run[0].Commit
		author := b.resolver.AuthorID(c.Author)

		sets, ok := perAuthor[author]
		if !ok {
			sets = &authorSets{files: make(map[string]struct{}), types: make(map[string]struct{})}
			perAuthor[author] = sets
		}

		files := make(map[string]struct{})
		types := make(map[string]struct{})

		for _, r := range run {
			types[r.Type] = struct{}{}

			for _, f := range r.FilesModified() {
				files[f] = struct{}{}
			}
		}

		addAll(filesOverall, files)
		addAll(sets.files, files)
		addAll(typesOverall, types)
		addAll(sets.types, types)

		stats[author] = append(stats[author], CommitStatistics{
			Type: EntitySummary{Observed: len(types), Cumulative: len(sets.types), Total: len(typesOverall)},
			File: EntitySummary{Observed: len(files), Cumulative: len(sets.files), Total: len(filesOverall)},
			Date: c.Date,
		})
	})

	return stats, typesOverall, filesOverall
}

// forEachCommit calls fn with every maximal run of records sharing a commit,
// including the last one.
func forEachCommit(records []*edit.Record, fn func(run []*edit.Record)) {
	start := 0

	for i := 1; i <= len(records); i++ {
		if i == len(records) || records[i].SHA() != records[start].SHA() {
			fn(records[start:i])
			start = i
		}
	}
}

func countTypes(records []*edit.Record) map[string]int {
	freq := make(map[string]int)
	for _, r := range records {
		freq[r.Type]++
	}

	return freq
}

// selectTypes orders names by descending frequency; ties keep first-seen order.
func selectTypes(records []*edit.Record, freq map[string]int, typeFilter string, limit int) []string {
	names := make([]string, 0, len(freq))
	seen := make(map[string]struct{}, len(freq))

	for _, r := range records {
		if _, ok := seen[r.Type]; ok {
			continue
		}

		seen[r.Type] = struct{}{}

		if typeFilter != "" && !strings.Contains(strings.ToLower(r.Type), typeFilter) {
			continue
		}

		names = append(names, r.Type)
	}

	slices.SortStableFunc(names, func(a, b string) int {
		return cmp.Compare(freq[b], freq[a])
	})

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	return names
}

// withCells drops entities whose every record was excluded by the author filter.
func withCells(entities []*entity.Entity) []*entity.Entity {
	out := make([]*entity.Entity, 0, len(entities))

	for _, e := range entities {
		if len(e.Cells()) > 0 {
			out = append(out, e)
		}
	}

	return out
}

func addAll(dst, src map[string]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}
