// Package view turns the sorted edit records of a dataset into a filtered,
// time-sliced, author-attributed View.
package view

import (
	"slices"
	"time"

	"github.com/Sumatoshi-tech/typedna/pkg/commit"
	"github.com/Sumatoshi-tech/typedna/pkg/edit"
	"github.com/Sumatoshi-tech/typedna/pkg/entity"
	"github.com/Sumatoshi-tech/typedna/pkg/timeslice"
)

// Source is a preprocessed dataset: records sorted ascending by date and the
// commits they refer to.
type Source interface {
	Records() []*edit.Record
	Commits() commit.Map
}

// EntitySummary counts distinct entities or files at one commit.
type EntitySummary struct {
	// Observed is the number touched by the commit.
	Observed int `json:"observed" yaml:"observed"`
	// Cumulative is the running number touched by the commit's author.
	Cumulative int `json:"cumulative" yaml:"cumulative"`
	// Total is the running number touched by anyone.
	Total int `json:"total" yaml:"total"`
}

// Coverage returns Cumulative / Total, or zero when nothing was touched yet.
func (s EntitySummary) Coverage() float64 {
	if s.Total == 0 {
		return 0
	}

	return float64(s.Cumulative) / float64(s.Total)
}

// CommitStatistics is one author's snapshot after one commit.
type CommitStatistics struct {
	Type EntitySummary `json:"type" yaml:"type"`
	File EntitySummary `json:"file" yaml:"file"`
	Date time.Time     `json:"date" yaml:"date"`
}

// AuthorStatistics maps an author ID to its snapshots in date order.
type AuthorStatistics map[string][]CommitStatistics

// View is the result of applying a Filter. It is not modified after Build.
type View struct {
	// Types are the selected entities, most frequent first.
	Types []*entity.Entity
	// TimeSlices cover the requested range in ascending order.
	TimeSlices []*timeslice.TimeSlice
	// TypesPresent is the absolute frequency of every entity in range.
	TypesPresent map[string]int
	// AuthorStats holds per-author coverage snapshots.
	AuthorStats AuthorStatistics
	// TypesOverall and FilesOverall are the distinct entities and files
	// touched in range.
	TypesOverall map[string]struct{}
	FilesOverall map[string]struct{}
	// Commits is the dataset's full commit index.
	Commits commit.Map
	// Start and End are the effective filter bounds.
	Start time.Time
	End   time.Time
	Step  timeslice.Step

	absoluteMin time.Time
	absoluteMax time.Time
}

// MinDate is the start of the first slice. It can precede Start because
// slices are whole calendar steps counted back from End.
func (v *View) MinDate() time.Time { return v.TimeSlices[0].Start }

// MaxDate is the end of the last slice.
func (v *View) MaxDate() time.Time { return v.TimeSlices[len(v.TimeSlices)-1].End }

// AbsoluteMinDate is the date of the first record in the dataset.
func (v *View) AbsoluteMinDate() time.Time { return v.absoluteMin }

// AbsoluteMaxDate is the date of the last record in the dataset.
func (v *View) AbsoluteMaxDate() time.Time { return v.absoluteMax }

// NumberOfTypes returns the number of distinct entities touched in range.
func (v *View) NumberOfTypes() int { return len(v.TypesOverall) }

// NumberOfFiles returns the number of distinct files touched in range.
func (v *View) NumberOfFiles() int { return len(v.FilesOverall) }

// NumberOfColumns returns the number of slices.
func (v *View) NumberOfColumns() int { return len(v.TimeSlices) }

// NumberOfCommits returns the size of the commit index.
func (v *View) NumberOfCommits() int { return len(v.Commits) }

// AllTypeNames returns every entity name in range, sorted.
func (v *View) AllTypeNames() []string {
	names := make([]string, 0, len(v.TypesPresent))
	for name := range v.TypesPresent {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// PrimaryAuthorAliases returns the author IDs with statistics, sorted.
func (v *View) PrimaryAuthorAliases() []string {
	ids := make([]string, 0, len(v.AuthorStats))
	for id := range v.AuthorStats {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}
