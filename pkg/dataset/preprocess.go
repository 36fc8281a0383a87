package dataset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Sumatoshi-tech/typedna/pkg/commit"
	"github.com/Sumatoshi-tech/typedna/pkg/edit"
	"github.com/Sumatoshi-tech/typedna/pkg/faults"
	"github.com/Sumatoshi-tech/typedna/pkg/identity"
)

// Preprocessing defaults.
const (
	// DefaultIgnoreType is the implicit constructor call recorded for every
	// class; it carries no signal.
	DefaultIgnoreType = "java.lang.Object#Object()"
	// DefaultMaxCommitFiles drops bulk commits such as reformatting sweeps.
	DefaultMaxCommitFiles = 50
)

// Preprocessing errors.
var (
	ErrIgnorePattern  = fmt.Errorf("%w: invalid ignore pattern", faults.ErrMalformedInput)
	ErrMaxCommitFiles = fmt.Errorf("%w: max commit files must not be negative", faults.ErrMalformedInput)
)

// Options tune Preprocess.
type Options struct {
	// IgnoreTypes are glob patterns; matching edits are dropped.
	IgnoreTypes []string
	// MaxCommitFiles drops commits touching more files, with their edits.
	// Zero keeps every commit.
	MaxCommitFiles int
	// CollapseMethods reduces "pkg.Class#method()" edits to "pkg.Class".
	CollapseMethods bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		IgnoreTypes:    []string{DefaultIgnoreType},
		MaxCommitFiles: DefaultMaxCommitFiles,
	}
}

// Dataset is a preprocessed Project. Records are sorted ascending by date.
// A Dataset is read-only and may be shared between concurrent view builds.
type Dataset struct {
	Name      string
	TypeNames []string
	Authors   []*identity.AuthorIdentity
	Registry  *identity.Registry

	// DroppedCommits and DroppedEdits count what the options filtered out.
	DroppedCommits int
	DroppedEdits   int

	commits commit.Map
	records []*edit.Record
}

// Records returns the materialized edit records.
func (d *Dataset) Records() []*edit.Record { return d.records }

// Commits returns the commit index.
func (d *Dataset) Commits() commit.Map { return d.commits }

// Preprocess builds the commit index and the sorted records of project.
func Preprocess(project *Project, opts Options) (*Dataset, error) {
	if opts.MaxCommitFiles < 0 {
		return nil, fmt.Errorf("%w: %d", ErrMaxCommitFiles, opts.MaxCommitFiles)
	}

	ignore, err := compilePatterns(opts.IgnoreTypes)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Name: project.Name, Registry: identity.NewRegistry()}

	raws := make([]commit.Raw, 0, len(project.Commits))
	dropped := make(map[string]struct{})

	for _, raw := range project.Commits {
		if opts.MaxCommitFiles > 0 && len(raw.Files) > opts.MaxCommitFiles {
			dropped[raw.CommitID] = struct{}{}
			ds.DroppedCommits++

			continue
		}

		raws = append(raws, raw)
	}

	ds.commits, err = commit.Build(ds.Registry, raws)
	if err != nil {
		return nil, err
	}

	edits := make([]edit.Raw, 0, len(project.Dates))

	for _, raw := range project.Dates {
		if _, ok := dropped[raw.CommitID]; ok {
			ds.DroppedEdits++

			continue
		}

		typeName, keep := rewriteType(raw.Type, ignore, opts.CollapseMethods)
		if !keep {
			ds.DroppedEdits++

			continue
		}

		raw.Type = typeName
		edits = append(edits, raw)
	}

	ds.records, err = edit.Materialize(edits, ds.commits)
	if err != nil {
		return nil, err
	}

	ds.Authors, err = collectAuthors(ds.Registry, project.Authors, ds.commits)
	if err != nil {
		return nil, err
	}

	ds.TypeNames = typeNames(ds.records)

	return ds, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))

	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrIgnorePattern, p, err)
		}

		out = append(out, g)
	}

	return out, nil
}

func rewriteType(typeName string, ignore []glob.Glob, collapse bool) (string, bool) {
	if matchesAny(ignore, typeName) {
		return "", false
	}

	if !collapse {
		return typeName, true
	}

	base, _, _ := strings.Cut(typeName, "#")
	if base == "" || matchesAny(ignore, base) {
		return "", false
	}

	return base, true
}

func matchesAny(patterns []glob.Glob, s string) bool {
	for _, g := range patterns {
		if g.Match(s) {
			return true
		}
	}

	return false
}

// collectAuthors interns the declared authors and every commit author and
// returns them ordered by shorthand.
func collectAuthors(reg *identity.Registry, declared []string, commits commit.Map) ([]*identity.AuthorIdentity, error) {
	seen := make(map[*identity.AuthorIdentity]struct{})

	for _, text := range declared {
		id, err := reg.Get(text)
		if err != nil {
			return nil, err
		}

		seen[id] = struct{}{}
	}

	for _, c := range commits {
		seen[c.Author] = struct{}{}
	}

	out := make([]*identity.AuthorIdentity, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}

	slices.SortFunc(out, func(a, b *identity.AuthorIdentity) int {
		return strings.Compare(a.Shorthand(), b.Shorthand())
	})

	return out, nil
}

func typeNames(records []*edit.Record) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)

	for _, r := range records {
		if _, ok := seen[r.Type]; ok {
			continue
		}

		seen[r.Type] = struct{}{}
		out = append(out, r.Type)
	}

	slices.Sort(out)

	return out
}
