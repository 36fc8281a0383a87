package report

import (
	"time"

	"github.com/Sumatoshi-tech/typedna/pkg/entity"
	"github.com/Sumatoshi-tech/typedna/pkg/view"
)

// Document is the serialized form of a View.
type Document struct {
	Name     string           `json:"name,omitempty" yaml:"name,omitempty"`
	Step     string           `json:"step"           yaml:"step"`
	Start    time.Time        `json:"start"          yaml:"start"`
	End      time.Time        `json:"end"            yaml:"end"`
	MinDate  time.Time        `json:"min_date"       yaml:"min_date"`
	MaxDate  time.Time        `json:"max_date"       yaml:"max_date"`
	Totals   Totals           `json:"totals"         yaml:"totals"`
	Slices   []SliceEntry     `json:"slices"         yaml:"slices"`
	Entities []EntityEntry    `json:"entities"       yaml:"entities"`
	Authors  []AuthorCoverage `json:"authors"        yaml:"authors"`
}

// Totals are project-wide counts over the filtered date range.
type Totals struct {
	Types   int `json:"types"   yaml:"types"`
	Files   int `json:"files"   yaml:"files"`
	Commits int `json:"commits" yaml:"commits"`
	Columns int `json:"columns" yaml:"columns"`
}

// SliceEntry is one column of the timeline.
type SliceEntry struct {
	Start           time.Time `json:"start"            yaml:"start"`
	End             time.Time `json:"end"              yaml:"end"`
	Records         int       `json:"records"          yaml:"records"`
	CumulativeTypes int       `json:"cumulative_types" yaml:"cumulative_types"`
}

// EntityEntry is one selected entity with its cells.
type EntityEntry struct {
	Name         string      `json:"name"              yaml:"name"`
	Package      string      `json:"package,omitempty" yaml:"package,omitempty"`
	Class        string      `json:"class"             yaml:"class"`
	Method       string      `json:"method,omitempty"  yaml:"method,omitempty"`
	Observations int         `json:"observations"      yaml:"observations"`
	Present      int         `json:"present"           yaml:"present"`
	LargestCell  int         `json:"largest_cell"      yaml:"largest_cell"`
	Cells        []CellEntry `json:"cells"             yaml:"cells"`
}

// CellEntry is the activity of one entity in one slice.
type CellEntry struct {
	Start     time.Time `json:"start"     yaml:"start"`
	End       time.Time `json:"end"       yaml:"end"`
	Adds      int       `json:"adds"      yaml:"adds"`
	Deletions int       `json:"deletions" yaml:"deletions"`
	Authors   []string  `json:"authors"   yaml:"authors"`
	Commits   []string  `json:"commits"   yaml:"commits"`
}

// AuthorCoverage summarizes an author's statistics after their last commit.
type AuthorCoverage struct {
	ID           string                  `json:"id"            yaml:"id"`
	Commits      int                     `json:"commits"       yaml:"commits"`
	Types        view.EntitySummary      `json:"types"         yaml:"types"`
	Files        view.EntitySummary      `json:"files"         yaml:"files"`
	TypeCoverage float64                 `json:"type_coverage" yaml:"type_coverage"`
	FileCoverage float64                 `json:"file_coverage" yaml:"file_coverage"`
	History      []view.CommitStatistics `json:"history"       yaml:"history"`
}

// NewDocument converts v. Authors are ordered by ID.
func NewDocument(name string, v *view.View) Document {
	doc := Document{
		Name:    name,
		Step:    string(v.Step),
		Start:   v.Start,
		End:     v.End,
		MinDate: v.MinDate(),
		MaxDate: v.MaxDate(),
		Totals: Totals{
			Types:   v.NumberOfTypes(),
			Files:   v.NumberOfFiles(),
			Commits: v.NumberOfCommits(),
			Columns: v.NumberOfColumns(),
		},
		Slices:   make([]SliceEntry, 0, len(v.TimeSlices)),
		Entities: make([]EntityEntry, 0, len(v.Types)),
		Authors:  make([]AuthorCoverage, 0, len(v.AuthorStats)),
	}

	for _, ts := range v.TimeSlices {
		// Every slice of a built view has its count set.
		count, _ := ts.CumulativeTypeCount()

		doc.Slices = append(doc.Slices, SliceEntry{
			Start:           ts.Start,
			End:             ts.End,
			Records:         len(ts.Records()),
			CumulativeTypes: count,
		})
	}

	for _, e := range v.Types {
		doc.Entities = append(doc.Entities, newEntityEntry(e, v.TypesPresent[e.Name()]))
	}

	for _, id := range v.PrimaryAuthorAliases() {
		history := v.AuthorStats[id]
		last := history[len(history)-1]

		doc.Authors = append(doc.Authors, AuthorCoverage{
			ID:           id,
			Commits:      len(history),
			Types:        last.Type,
			Files:        last.File,
			TypeCoverage: last.Type.Coverage(),
			FileCoverage: last.File.Coverage(),
			History:      history,
		})
	}

	return doc
}

func newEntityEntry(e *entity.Entity, present int) EntityEntry {
	entry := EntityEntry{
		Name:         e.Name(),
		Package:      e.Package,
		Class:        e.ClassName,
		Method:       e.MethodName,
		Observations: e.Observations(),
		Present:      present,
		LargestCell:  e.LargestCell(),
		Cells:        make([]CellEntry, 0, len(e.Cells())),
	}

	for _, c := range e.Cells() {
		entry.Cells = append(entry.Cells, CellEntry{
			Start:     c.Start,
			End:       c.End,
			Adds:      c.Adds(),
			Deletions: c.Deletions(),
			Authors:   c.Authors(),
			Commits:   c.Commits(),
		})
	}

	return entry
}
