// Package commit indexes raw commit metadata by commit ID.
package commit

import (
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/Sumatoshi-tech/typedna/pkg/faults"
	"github.com/Sumatoshi-tech/typedna/pkg/identity"
)

// Index errors.
var (
	ErrInvalidSHA      = fmt.Errorf("%w: commit ID does not look like a git SHA", faults.ErrMalformedInput)
	ErrInvalidDate     = fmt.Errorf("%w: unparseable commit date", faults.ErrMalformedInput)
	ErrDuplicateCommit = fmt.Errorf("%w: commit ID listed twice with differing content", faults.ErrMalformedInput)
)

var shaPattern = regexp.MustCompile(`(?i)^[0-9a-f]{5,}$`)

// dateLayouts are tried in order. The second one is what `git log` with %ci
// produces once the space before the offset is removed.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// Raw is a commit as it appears in the dataset document.
type Raw struct {
	Author   string   `json:"author"    yaml:"author"`
	CommitID string   `json:"commitID"  yaml:"commitID"`
	Date     string   `json:"date"      yaml:"date"`
	Message  string   `json:"message"   yaml:"message"`
	Files    []string `json:"files"     yaml:"files"`
	AllFiles []string `json:"all_files" yaml:"all_files"`
}

// Commit is one repository commit. It is never mutated after Build.
type Commit struct {
	ID       string
	Author   *identity.AuthorIdentity
	Date     time.Time
	Message  string
	Files    []string
	AllFiles []string
}

// Map maps a commit ID to its commit.
type Map map[string]*Commit

// Build validates and indexes raw commits. Identities are interned through
// reg. A commit listed twice with identical content is accepted once.
func Build(reg *identity.Registry, raws []Raw) (Map, error) {
	commits := make(Map, len(raws))

	for i := range raws {
		c, err := newCommit(reg, &raws[i])
		if err != nil {
			return nil, fmt.Errorf("commit %d: %w", i, err)
		}

		if prev, ok := commits[c.ID]; ok {
			if !prev.equal(c) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateCommit, c.ID)
			}

			continue
		}

		commits[c.ID] = c
	}

	return commits, nil
}

// LooksLikeSHA reports whether id is at least five hex digits.
func LooksLikeSHA(id string) bool {
	return shaPattern.MatchString(id)
}

// ParseDate parses an ISO 8601 commit date.
func ParseDate(text string) (time.Time, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, text)
}

func newCommit(reg *identity.Registry, raw *Raw) (*Commit, error) {
	if !LooksLikeSHA(raw.CommitID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSHA, raw.CommitID)
	}

	date, err := ParseDate(raw.Date)
	if err != nil {
		return nil, err
	}

	author, err := reg.Get(raw.Author)
	if err != nil {
		return nil, err
	}

	return &Commit{
		ID:       raw.CommitID,
		Author:   author,
		Date:     date,
		Message:  raw.Message,
		Files:    slices.Clone(raw.Files),
		AllFiles: slices.Clone(raw.AllFiles),
	}, nil
}

func (c *Commit) equal(other *Commit) bool {
	return c.ID == other.ID &&
		c.Author.Equal(*other.Author) &&
		c.Date.Equal(other.Date) &&
		c.Message == other.Message &&
		slices.Equal(c.Files, other.Files) &&
		slices.Equal(c.AllFiles, other.AllFiles)
}
