package edit

import (
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/typedna/pkg/commit"
	"github.com/Sumatoshi-tech/typedna/pkg/faults"
	"github.com/Sumatoshi-tech/typedna/pkg/identity"
)

// Record errors.
var (
	ErrEmptyType      = fmt.Errorf("%w: edit has no entity name", faults.ErrMalformedInput)
	ErrCommitMismatch = fmt.Errorf("%w: edit and commit IDs differ", faults.ErrInvariant)
)

// Raw is an edit as it appears in the dataset document.
type Raw struct {
	CommitID string `json:"commitID" yaml:"commitID"`
	Edit     string `json:"edit"     yaml:"edit"`
	Type     string `json:"type"     yaml:"type"`
}

// Record is one addition or deletion of an entity, attributed to a commit.
// Records are immutable.
type Record struct {
	Type   string
	Kind   Kind
	Commit *commit.Commit
}

// NewRecord validates raw against c and builds a Record.
func NewRecord(raw Raw, c *commit.Commit) (*Record, error) {
	if c == nil || c.ID != raw.CommitID {
		return nil, fmt.Errorf("%w: %q", ErrCommitMismatch, raw.CommitID)
	}

	if raw.Type == "" {
		return nil, fmt.Errorf("%w: commit %s", ErrEmptyType, raw.CommitID)
	}

	kind, err := ParseKind(raw.Edit)
	if err != nil {
		return nil, err
	}

	return &Record{Type: raw.Type, Kind: kind, Commit: c}, nil
}

// Date returns the commit date.
func (r *Record) Date() time.Time { return r.Commit.Date }

// Millis returns the commit date in Unix milliseconds, the sort key.
func (r *Record) Millis() int64 { return r.Commit.Date.UnixMilli() }

// Author returns the commit author.
func (r *Record) Author() *identity.AuthorIdentity { return r.Commit.Author }

// SHA returns the commit ID.
func (r *Record) SHA() string { return r.Commit.ID }

// FilesModified returns the files touched by the commit.
func (r *Record) FilesModified() []string { return r.Commit.Files }

// AllFiles returns every file present at the commit.
func (r *Record) AllFiles() []string { return r.Commit.AllFiles }

// CommitMessage returns the commit log message.
func (r *Record) CommitMessage() string { return r.Commit.Message }

// IsAdd reports whether the record is an addition.
func (r *Record) IsAdd() bool { return r.Kind == Addition }

// IsRemove reports whether the record is a deletion.
func (r *Record) IsRemove() bool { return r.Kind == Deletion }
