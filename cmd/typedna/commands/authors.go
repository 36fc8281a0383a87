package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/typedna/pkg/commit"
	"github.com/Sumatoshi-tech/typedna/pkg/identity"
	"github.com/Sumatoshi-tech/typedna/pkg/report"
)

// authorRow is one author as printed by the authors command.
type authorRow struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Aliases []string `json:"aliases"`
	Commits int      `json:"commits"`
	Enabled bool     `json:"enabled"`
}

// NewAuthorsCommand creates the authors subcommand.
func NewAuthorsCommand(global *GlobalOptions) *cobra.Command {
	var (
		aliases string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "authors <dataset>",
		Short: "List the authors of a dataset and their aliases",
		Long: `List every author of a dataset after applying the alias file.

Examples:
  typedna authors history.json
  typedna authors history.json --aliases authors.toml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthors(cmd, global, args[0], aliases, format)
		},
	}

	cmd.Flags().StringVar(&aliases, "aliases", "", "author alias file (yaml, toml or json)")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatText, "output format: text or json")

	return cmd
}

func runAuthors(cmd *cobra.Command, global *GlobalOptions, path, aliases, format string) error {
	sess, err := openSession(global, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runErr := listAuthors(ctx, cmd.OutOrStdout(), sess, path, aliases, format)

	return errors.Join(runErr, sess.close(context.WithoutCancel(ctx), sess.cfg.Observability.MetricsFile))
}

func listAuthors(ctx context.Context, out io.Writer, sess *session, path, aliases, format string) error {
	datasets, err := sess.service.LoadDatasets(ctx, []string{path})
	if err != nil {
		return err
	}

	authors, err := sess.service.Authors(datasets[0], aliases)
	if err != nil {
		return err
	}

	rows := authorRows(authors, datasets[0].Commits())

	switch strings.ToLower(format) {
	case report.FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(rows)
	case report.FormatText:
		_, err = fmt.Fprintln(out, authorsTable(rows))

		return err
	default:
		return fmt.Errorf("%w: %s", report.ErrUnsupportedFormat, format)
	}
}

func authorRows(cfg *identity.Configuration, commits commit.Map) []authorRow {
	counts := make(map[string]int)
	for _, c := range commits {
		counts[cfg.AuthorID(c.Author)]++
	}

	authors := cfg.Authors()
	rows := make([]authorRow, 0, len(authors))

	for _, a := range authors {
		aliases := make([]string, 0, len(a.Aliases()))
		for _, id := range a.Aliases() {
			aliases = append(aliases, id.Shorthand())
		}

		rows = append(rows, authorRow{
			ID:      a.ID(),
			Name:    a.Name(),
			Email:   a.Email(),
			Aliases: aliases,
			Commits: counts[a.ID()],
			Enabled: cfg.IsEnabled(a),
		})
	}

	return rows
}

func authorsTable(rows []authorRow) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Author", "Email", "Aliases", "Commits", "Enabled"})

	for _, r := range rows {
		enabled := ""
		if r.Enabled {
			enabled = "yes"
		}

		tw.AppendRow(table.Row{r.Name, r.Email, strings.Join(r.Aliases, ", "), humanize.Comma(int64(r.Commits)), enabled})
	}

	return tw.Render()
}
