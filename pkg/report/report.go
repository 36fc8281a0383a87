// Package report renders a View as a terminal summary, JSON or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/typedna/pkg/view"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Colour modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
	percentage     = 100
	yamlIndent     = 2
)

// ErrUnsupportedFormat is returned for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Options control Write.
type Options struct {
	// Format is text, json or yaml. Empty means text.
	Format string
	// Title names the dataset in the output.
	Title string
	// Color enables ANSI colours in text output.
	Color bool
	// MaxEntities caps the entity table of text output. Zero shows all.
	MaxEntities int
}

// Write renders v to w.
func Write(w io.Writer, v *view.View, opts Options) error {
	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		return writeText(w, v, opts)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(NewDocument(opts.Title, v))
		if err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(yamlIndent)

		err := enc.Encode(NewDocument(opts.Title, v))
		if err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}

		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
}

// ColorEnabled resolves a colour mode for w. In auto mode colours are used
// only when w is a terminal and NO_COLOR is unset.
func ColorEnabled(w io.Writer, mode string) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}

	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

func writeText(w io.Writer, v *view.View, opts Options) error {
	heading := color.New(color.FgCyan, color.Bold)
	muted := color.New(color.Faint)

	if opts.Color {
		heading.EnableColor()
		muted.EnableColor()
	} else {
		heading.DisableColor()
		muted.DisableColor()
	}

	doc := NewDocument(opts.Title, v)

	title := "Type evolution"
	if doc.Name != "" {
		title += ": " + doc.Name
	}

	var sb strings.Builder

	heading.Fprintln(&sb, title)
	fmt.Fprintf(&sb, "%s to %s in %s %s steps\n",
		doc.MinDate.Format(dateTimeLayout), doc.MaxDate.Format(dateTimeLayout),
		humanize.Comma(int64(doc.Totals.Columns)), doc.Step)
	fmt.Fprintf(&sb, "%s types, %s files, %s commits\n",
		humanize.Comma(int64(doc.Totals.Types)), humanize.Comma(int64(doc.Totals.Files)),
		humanize.Comma(int64(doc.Totals.Commits)))
	muted.Fprintf(&sb, "data from %s to %s\n",
		v.AbsoluteMinDate().Format(dateLayout), v.AbsoluteMaxDate().Format(dateLayout))

	sb.WriteString("\n")
	heading.Fprintln(&sb, "Entities")
	sb.WriteString(entityTable(doc.Entities, opts.MaxEntities))
	sb.WriteString("\n\n")
	heading.Fprintln(&sb, "Timeline")
	sb.WriteString(timelineTable(doc.Slices))
	sb.WriteString("\n\n")
	heading.Fprintln(&sb, "Authors")
	sb.WriteString(authorTable(doc.Authors))
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return nil
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

func entityTable(entities []EntityEntry, limit int) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Entity", "Package", "Present", "Adds", "Deletions", "Cells", "Largest"})

	shown := entities
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	for _, e := range shown {
		adds, deletions := 0, 0
		for _, c := range e.Cells {
			adds += c.Adds
			deletions += c.Deletions
		}

		name := e.Class
		if e.Method != "" {
			name += "#" + e.Method
		}

		tbl.AppendRow(table.Row{
			name, e.Package, humanize.Comma(int64(e.Present)),
			humanize.Comma(int64(adds)), humanize.Comma(int64(deletions)),
			len(e.Cells), e.LargestCell,
		})
	}

	footer := fmt.Sprintf("Total: %d entities", len(entities))
	if len(shown) < len(entities) {
		footer = fmt.Sprintf("Showing %d of %d entities", len(shown), len(entities))
	}

	tbl.AppendFooter(table.Row{footer})

	return tbl.Render()
}

func timelineTable(slices []SliceEntry) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"From", "To", "Records", "Types so far"})

	for _, s := range slices {
		tbl.AppendRow(table.Row{
			s.Start.Format(dateLayout), s.End.Format(dateLayout),
			humanize.Comma(int64(s.Records)), humanize.Comma(int64(s.CumulativeTypes)),
		})
	}

	return tbl.Render()
}

func authorTable(authors []AuthorCoverage) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Author", "Commits", "Types", "Type coverage", "Files", "File coverage"})

	for _, a := range authors {
		tbl.AppendRow(table.Row{
			a.ID, humanize.Comma(int64(a.Commits)),
			humanize.Comma(int64(a.Types.Cumulative)), formatRatio(a.TypeCoverage),
			humanize.Comma(int64(a.Files.Cumulative)), formatRatio(a.FileCoverage),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d authors", len(authors))})

	return tbl.Render()
}

func formatRatio(ratio float64) string {
	return humanize.FtoaWithDigits(ratio*percentage, 1) + "%"
}
