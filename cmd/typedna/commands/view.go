package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/typedna/pkg/commit"
	"github.com/Sumatoshi-tech/typedna/pkg/report"
	"github.com/Sumatoshi-tech/typedna/pkg/timeslice"
	"github.com/Sumatoshi-tech/typedna/pkg/view"
)

const (
	viewCmdUse   = "view <dataset>..."
	viewCmdShort = "Build a filtered, time-sliced view of one or more datasets"
)

// ViewCommand holds the flags of the view command.
type ViewCommand struct {
	global *GlobalOptions

	start       string
	end         string
	step        string
	limit       int
	authors     []string
	typeFilter  string
	format      string
	color       string
	aliases     string
	metricsFile string
	maxEntities int
}

// NewViewCommand creates the view subcommand.
func NewViewCommand(global *GlobalOptions) *cobra.Command {
	vc := &ViewCommand{global: global}

	cmd := &cobra.Command{
		Use:   viewCmdUse,
		Short: viewCmdShort,
		Long: `Build a view of each dataset and print it.

A dataset is a JSON or YAML export, optionally LZ4-compressed (.lz4), or "-"
for JSON on standard input. Flags override the configuration file.

Examples:
  typedna view history.json
  typedna view history.json.lz4 --step week --limit 20
  typedna view a.json b.yaml --author ada@example.com --format json
  typedna view history.json --start 2016-01-01 --end 2016-06-30 --type-filter service`,
		Args: cobra.MinimumNArgs(1),
		RunE: vc.run,
	}

	flags := cmd.Flags()
	flags.StringVar(&vc.start, "start", "", "first date to include (default: first record)")
	flags.StringVar(&vc.end, "end", "", "last date to include; a bare date covers the whole day (default: last record)")
	flags.StringVar(&vc.step, "step", "", "slice step: hour, day, week or month")
	flags.IntVar(&vc.limit, "limit", 0, "keep only the N most frequent entities (0 keeps all)")
	flags.StringSliceVarP(&vc.authors, "author", "a", nil, "only attribute cells to these authors (shorthand or email)")
	flags.StringVarP(&vc.typeFilter, "type-filter", "t", "", "keep entities whose name contains this text")
	flags.StringVarP(&vc.format, "format", "f", "", "output format: text, json or yaml")
	flags.StringVar(&vc.color, "color", "", "colour mode: auto, always or never")
	flags.StringVar(&vc.aliases, "aliases", "", "author alias file (yaml, toml or json)")
	flags.StringVar(&vc.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	flags.IntVar(&vc.maxEntities, "max-entities", 0, "cap the entity table of text output")

	return cmd
}

func (vc *ViewCommand) run(cmd *cobra.Command, args []string) error {
	sess, err := openSession(vc.global, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	metricsFile := vc.metricsFile
	if metricsFile == "" {
		metricsFile = sess.cfg.Observability.MetricsFile
	}

	runErr := vc.execute(ctx, cmd, sess, args)

	return errors.Join(runErr, sess.close(context.WithoutCancel(ctx), metricsFile))
}

func (vc *ViewCommand) execute(ctx context.Context, cmd *cobra.Command, sess *session, args []string) error {
	filter, err := vc.filter(cmd, sess)
	if err != nil {
		return err
	}

	opts := vc.reportOptions(cmd, sess, cmd.OutOrStdout())

	datasets, err := sess.service.LoadDatasets(ctx, args)
	if err != nil {
		return err
	}

	for i, ds := range datasets {
		authors, authErr := sess.service.Authors(ds, vc.aliases)
		if authErr != nil {
			return authErr
		}

		v, buildErr := sess.service.BuildView(ctx, ds, authors, filter)
		if buildErr != nil {
			return buildErr
		}

		if i > 0 && opts.Format == report.FormatText {
			fmt.Fprintln(cmd.OutOrStdout())
		}

		opts.Title = ds.Name

		writeErr := report.Write(cmd.OutOrStdout(), v, opts)
		if writeErr != nil {
			return writeErr
		}
	}

	return nil
}

func (vc *ViewCommand) filter(cmd *cobra.Command, sess *session) (*view.Filter, error) {
	f := &view.Filter{
		Step:       timeslice.Step(sess.cfg.View.Step),
		Limit:      sess.cfg.View.Limit,
		Authors:    vc.authors,
		TypeFilter: vc.typeFilter,
	}

	if cmd.Flags().Changed("step") {
		f.Step = timeslice.Step(vc.step)
	}

	if cmd.Flags().Changed("limit") {
		f.Limit = vc.limit
	}

	var err error

	f.Start, err = parseDateFlag("start", vc.start)
	if err != nil {
		return nil, err
	}

	f.End, err = parseDateFlag("end", vc.end)
	if err != nil {
		return nil, err
	}

	// A bare --end date includes the whole day.
	if f.End != nil && isDateOnly(vc.end) {
		endOfDay := f.End.AddDate(0, 0, 1).Add(-time.Millisecond)
		f.End = &endOfDay
	}

	return f, nil
}

func (vc *ViewCommand) reportOptions(cmd *cobra.Command, sess *session, out io.Writer) report.Options {
	format := sess.cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format = vc.format
	}

	colorMode := sess.cfg.Output.Color
	if cmd.Flags().Changed("color") {
		colorMode = vc.color
	}

	return report.Options{
		Format:      format,
		Color:       report.ColorEnabled(out, colorMode),
		MaxEntities: vc.maxEntities,
	}
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil //nolint:nilnil // an empty flag means unbounded
	}

	t, err := commit.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}

	return &t, nil
}

func isDateOnly(value string) bool {
	_, err := time.Parse(time.DateOnly, value)

	return err == nil
}
