package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/typedna/cmd/typedna/commands"
	"github.com/Sumatoshi-tech/typedna/pkg/commit"
	"github.com/Sumatoshi-tech/typedna/pkg/report"
	"github.com/Sumatoshi-tech/typedna/pkg/view"
)

const historyJSON = `{
  "name": "acme",
  "commits": [
    {"author": "Ada <a@x.com>", "commitID": "1a2b3c4d", "date": "2016-01-05T10:00:00Z", "files": ["Foo.java"]},
    {"author": "Grace <b@x.com>", "commitID": "5e6f7a8b", "date": "2016-02-11T10:00:00Z", "files": ["Foo.java", "Bar.java"]}
  ],
  "dates": [
    {"commitID": "1a2b3c4d", "edit": "+", "type": "com.acme.Foo"},
    {"commitID": "1a2b3c4d", "edit": "+", "type": "java.lang.Object#Object()"},
    {"commitID": "5e6f7a8b", "edit": "+", "type": "com.acme.Bar#run()"},
    {"commitID": "5e6f7a8b", "edit": "-", "type": "com.acme.Foo"}
  ]
}`

const aliasesTOML = `enabled = ["Grace <b@x.com>"]

[aliases]
"Grace Work <grace@work.com>" = "Grace <b@x.com>"
`

type fixture struct {
	dir     string
	config  string
	dataset string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dir := t.TempDir()

	return fixture{
		dir:     dir,
		config:  writeFile(t, dir, "typedna.yaml", ""),
		dataset: writeFile(t, dir, "history.json", historyJSON),
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := commands.NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{
		"--config", f.config,
		"--env-file", filepath.Join(f.dir, "missing.env"),
		"--quiet",
	}, args...))

	err := cmd.Execute()

	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := newFixture(t).run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "typedna dev")
}

func TestViewCommand_Text(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	out, err := f.run(t, "view", f.dataset, "--color", "never")
	require.NoError(t, err)

	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "com.acme.Foo")
	assert.Contains(t, out, "Bar")
	assert.NotContains(t, out, "java.lang.Object")
	assert.NotContains(t, out, "\x1b[")
}

func TestViewCommand_JSON(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	out, err := f.run(t, "view", f.dataset, "--format", "json", "--step", "week", "--type-filter", "foo")
	require.NoError(t, err)

	var doc report.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	assert.Equal(t, "acme", doc.Name)
	assert.Equal(t, "week", doc.Step)
	require.Len(t, doc.Entities, 1)
	assert.Equal(t, "com.acme.Foo", doc.Entities[0].Name)
}

func TestViewCommand_DateRange(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	out, err := f.run(t, "view", f.dataset, "--format", "json",
		"--start", "2016-01-01", "--end", "2016-01-31")
	require.NoError(t, err)

	var doc report.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	start, err := commit.ParseDate("2016-01-01")
	require.NoError(t, err)

	assert.True(t, doc.Start.Equal(start))
	assert.True(t, doc.End.Equal(start.AddDate(0, 1, 0).Add(-time.Millisecond)), doc.End.String())
	require.Len(t, doc.Entities, 1)
	assert.Equal(t, "com.acme.Foo", doc.Entities[0].Name)
}

func TestViewCommand_EndDateIncludesWholeDay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	out, err := f.run(t, "view", f.dataset, "--format", "json", "--end", "2016-02-11")
	require.NoError(t, err)

	var doc report.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	names := make([]string, 0, len(doc.Entities))
	for _, e := range doc.Entities {
		names = append(names, e.Name)
	}

	assert.Contains(t, names, "com.acme.Bar#run()")

	out, err = f.run(t, "view", f.dataset, "--format", "json", "--end", "2016-02-11T09:00:00Z")
	require.NoError(t, err)

	doc = report.Document{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	for _, e := range doc.Entities {
		assert.NotEqual(t, "com.acme.Bar#run()", e.Name)
	}
}

func TestViewCommand_ConfigOverride(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.config = writeFile(t, f.dir, "override.yaml", "output:\n  format: yaml\nview:\n  step: day\n")

	out, err := f.run(t, "view", f.dataset)
	require.NoError(t, err)
	assert.Contains(t, out, "step: day")

	out, err = f.run(t, "view", f.dataset, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"step": "day"`)
}

func TestViewCommand_AuthorAliases(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	aliases := writeFile(t, f.dir, "authors.toml", aliasesTOML)

	out, err := f.run(t, "view", f.dataset, "--format", "json", "--aliases", aliases)
	require.NoError(t, err)

	var doc report.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	require.NotEmpty(t, doc.Entities)

	for _, e := range doc.Entities {
		for _, c := range e.Cells {
			assert.Equal(t, []string{"Grace <b@x.com>"}, c.Authors, e.Name)
		}
	}
}

func TestViewCommand_MultipleDatasets(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	second := writeFile(t, f.dir, "other.json", historyJSON)

	out, err := f.run(t, "view", f.dataset, second, "--color", "never")
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("Type evolution: acme")))
}

func TestViewCommand_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "bad range", args: []string{"--start", "2016-02-01", "--end", "2016-01-01"}, want: view.ErrInvalidRange},
		{name: "bad format", args: []string{"--format", "xml"}, want: report.ErrUnsupportedFormat},
		{name: "bad limit", args: []string{"--limit", "-1"}, want: view.ErrInvalidLimit},
		{name: "bad date", args: []string{"--start", "yesterday"}, want: commit.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := f.run(t, append([]string{"view", f.dataset}, tt.args...)...)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.run(t, "view")
	require.Error(t, err)

	_, err = f.run(t, "view", filepath.Join(f.dir, "absent.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestAuthorsCommand(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	aliases := writeFile(t, f.dir, "authors.toml", aliasesTOML)

	out, err := f.run(t, "authors", f.dataset, "--aliases", aliases, "--format", "json")
	require.NoError(t, err)

	var rows []struct {
		ID      string   `json:"id"`
		Aliases []string `json:"aliases"`
		Commits int      `json:"commits"`
		Enabled bool     `json:"enabled"`
	}

	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)

	byID := map[string]int{}
	for i, r := range rows {
		byID[r.ID] = i
	}

	grace := rows[byID["Grace <b@x.com>"]]
	assert.True(t, grace.Enabled)
	assert.Equal(t, 1, grace.Commits)
	assert.Equal(t, []string{"Grace Work <grace@work.com>"}, grace.Aliases)

	ada := rows[byID["Ada <a@x.com>"]]
	assert.False(t, ada.Enabled)
	assert.Equal(t, 1, ada.Commits)
	assert.Empty(t, ada.Aliases)

	out, err = f.run(t, "authors", f.dataset, "--aliases", aliases)
	require.NoError(t, err)
	assert.Contains(t, out, "grace@work.com")
	assert.Contains(t, out, "yes")
}
