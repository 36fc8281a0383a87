package dataset_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/typedna/pkg/commit"
	"github.com/Sumatoshi-tech/typedna/pkg/dataset"
	"github.com/Sumatoshi-tech/typedna/pkg/edit"
	"github.com/Sumatoshi-tech/typedna/pkg/faults"
	"github.com/Sumatoshi-tech/typedna/pkg/view"
)

func recordTypes(ds *dataset.Dataset) []string {
	out := make([]string, 0, len(ds.Records()))
	for _, r := range ds.Records() {
		out = append(out, r.Kind.Marker()+r.Type)
	}

	return out
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, dataset.FormatJSON, dataset.FormatFor("a/b.json"))
	assert.Equal(t, dataset.FormatJSON, dataset.FormatFor("a/b.json.lz4"))
	assert.Equal(t, dataset.FormatYAML, dataset.FormatFor("b.YML"))
	assert.Equal(t, dataset.FormatYAML, dataset.FormatFor("b.yaml.lz4"))
	assert.Equal(t, dataset.FormatJSON, dataset.FormatFor("noext"))
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	project, err := dataset.Load(filepath.Join("testdata", "history.json"))
	require.NoError(t, err)

	assert.Equal(t, "sample", project.Name)
	assert.Len(t, project.Commits, 2)
	assert.Len(t, project.Dates, 4)
	assert.Equal(t, []string{"src/com/acme/Foo.java"}, project.Commits[0].AllFiles)
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	project, err := dataset.Load(filepath.Join("testdata", "history.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "12345678", project.Commits[0].CommitID)
	assert.Equal(t, "12345678", project.Dates[0].CommitID)

	ds, err := dataset.Preprocess(project, dataset.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"+com.acme.Foo", "-com.acme.Foo"}, recordTypes(ds))
}

func TestLoad_LZ4(t *testing.T) {
	t.Parallel()

	raw, err := os.ReadFile(filepath.Join("testdata", "history.json"))
	require.NoError(t, err)

	unnamed := strings.Replace(string(raw), `"name": "sample",`, "", 1)
	path := filepath.Join(t.TempDir(), "acme.json.lz4")

	f, err := os.Create(path)
	require.NoError(t, err)

	w := lz4.NewWriter(f)
	_, err = w.Write([]byte(unnamed))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	project, err := dataset.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "acme", project.Name, "name falls back to the file name")
	assert.Len(t, project.Dates, 4)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := dataset.Load(filepath.Join("testdata", "missing-dates.json"))
	require.ErrorIs(t, err, dataset.ErrSchema)
	require.ErrorIs(t, err, faults.ErrMalformedInput)
	assert.Contains(t, err.Error(), "dates")

	_, err = dataset.Load(filepath.Join("testdata", "absent.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = dataset.Decode(strings.NewReader("{not json"), dataset.FormatJSON)
	require.ErrorIs(t, err, dataset.ErrDecode)

	_, err = dataset.Decode(strings.NewReader("commits: [}"), dataset.FormatYAML)
	require.ErrorIs(t, err, dataset.ErrDecode)

	_, err = dataset.Decode(strings.NewReader("name: only"), dataset.FormatYAML)
	require.ErrorIs(t, err, dataset.ErrSchema)

	_, err = dataset.Decode(strings.NewReader("{}"), dataset.Format("xml"))
	require.ErrorIs(t, err, dataset.ErrDecode)
}

func load(t *testing.T) *dataset.Project {
	t.Helper()

	project, err := dataset.Load(filepath.Join("testdata", "history.json"))
	require.NoError(t, err)

	return project
}

func TestPreprocess_Defaults(t *testing.T) {
	t.Parallel()

	ds, err := dataset.Preprocess(load(t), dataset.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "sample", ds.Name)
	assert.Equal(t, []string{"+com.acme.Foo", "+com.acme.Bar#run()", "-com.acme.Foo"}, recordTypes(ds))
	assert.Equal(t, []string{"com.acme.Bar#run()", "com.acme.Foo"}, ds.TypeNames)
	assert.Equal(t, 1, ds.DroppedEdits)
	assert.Zero(t, ds.DroppedCommits)
	assert.Len(t, ds.Commits(), 2)

	require.Len(t, ds.Authors, 2)
	assert.Equal(t, "Ada <a@x.com>", ds.Authors[0].Shorthand())
	assert.Equal(t, "Grace <b@x.com>", ds.Authors[1].Shorthand())
	assert.Equal(t, 2, ds.Registry.Len())

	for _, r := range ds.Records() {
		assert.Same(t, ds.Commits()[r.SHA()], r.Commit)
	}
}

func TestPreprocess_Options(t *testing.T) {
	t.Parallel()

	ds, err := dataset.Preprocess(load(t), dataset.Options{
		IgnoreTypes:     []string{dataset.DefaultIgnoreType},
		CollapseMethods: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"com.acme.Bar", "com.acme.Foo"}, ds.TypeNames)

	ds, err = dataset.Preprocess(load(t), dataset.Options{MaxCommitFiles: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"+com.acme.Foo", "+java.lang.Object#Object()"}, recordTypes(ds))
	assert.Equal(t, 1, ds.DroppedCommits)
	assert.Equal(t, 2, ds.DroppedEdits)
	assert.Len(t, ds.Commits(), 1)

	ds, err = dataset.Preprocess(load(t), dataset.Options{IgnoreTypes: []string{"com.acme.*"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"java.lang.Object#Object()"}, ds.TypeNames)
}

func TestPreprocess_Errors(t *testing.T) {
	t.Parallel()

	_, err := dataset.Preprocess(load(t), dataset.Options{MaxCommitFiles: -1})
	require.ErrorIs(t, err, dataset.ErrMaxCommitFiles)

	_, err = dataset.Preprocess(load(t), dataset.Options{IgnoreTypes: []string{"[unclosed"}})
	require.ErrorIs(t, err, dataset.ErrIgnorePattern)

	project := load(t)
	project.Dates = append(project.Dates, edit.Raw{CommitID: "ffffffff", Edit: "+", Type: "Ghost"})

	_, err = dataset.Preprocess(project, dataset.DefaultOptions())
	require.ErrorIs(t, err, edit.ErrUnknownCommit)
	require.ErrorIs(t, err, faults.ErrReferentialIntegrity)

	project = load(t)
	project.Commits = append(project.Commits, commit.Raw{Author: "Ada <a@x.com>", CommitID: "xyz", Date: "2016-01-01"})

	_, err = dataset.Preprocess(project, dataset.DefaultOptions())
	require.ErrorIs(t, err, commit.ErrInvalidSHA)

	project = load(t)
	project.Authors = append(project.Authors, "nobody")

	_, err = dataset.Preprocess(project, dataset.DefaultOptions())
	require.ErrorIs(t, err, faults.ErrMalformedInput)
}

func TestDataset_IsViewSource(t *testing.T) {
	t.Parallel()

	ds, err := dataset.Preprocess(load(t), dataset.DefaultOptions())
	require.NoError(t, err)

	var src view.Source = ds

	v, err := view.Build(src, nil)
	require.NoError(t, err)
	assert.Equal(t, "com.acme.Foo", v.Types[0].Name())
	assert.Equal(t, 2, v.NumberOfCommits())
}
