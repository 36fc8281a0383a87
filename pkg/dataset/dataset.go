// Package dataset loads exported type-evolution histories and preprocesses
// them into the sorted records a view is built from.
package dataset

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/typedna/pkg/commit"
	"github.com/Sumatoshi-tech/typedna/pkg/edit"
	"github.com/Sumatoshi-tech/typedna/pkg/faults"
)

// StdinPath names standard input as a dataset path.
const StdinPath = "-"

// Dataset loading errors.
var (
	ErrSchema = fmt.Errorf("%w: dataset does not match schema", faults.ErrMalformedInput)
	ErrDecode = fmt.Errorf("%w: cannot decode dataset", faults.ErrMalformedInput)
)

//go:embed schema.json
var schemaBytes []byte

var schema = gojsonschema.NewBytesLoader(schemaBytes)

// Format is the encoding of a dataset file.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor infers the format from path. A trailing .lz4 is ignored.
func FormatFor(path string) Format {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".lz4")))
	if ext == ".yaml" || ext == ".yml" {
		return FormatYAML
	}

	return FormatJSON
}

// Project is the raw exported history of one repository.
type Project struct {
	Name    string       `json:"name"    yaml:"name"`
	Types   []string     `json:"types"   yaml:"types"`
	Authors []string     `json:"authors" yaml:"authors"`
	Commits []commit.Raw `json:"commits" yaml:"commits"`
	Dates   []edit.Raw   `json:"dates"   yaml:"dates"`
}

// Load reads the dataset at path, or standard input when path is "-".
// Files ending in .lz4 are decompressed as LZ4 frames.
func Load(path string) (*Project, error) {
	if path == StdinPath {
		return Decode(os.Stdin, FormatJSON)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".lz4") {
		r = lz4.NewReader(f)
	}

	project, err := Decode(r, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if project.Name == "" {
		base := filepath.Base(strings.TrimSuffix(path, ".lz4"))
		project.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return project, nil
}

// Decode reads and validates one dataset from r.
func Decode(r io.Reader, format Format) (*Project, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	switch format {
	case FormatYAML:
		return decodeYAML(data)
	case FormatJSON:
		return decodeJSON(data)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrDecode, format)
	}
}

func decodeJSON(data []byte) (*Project, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrDecode)
	}

	err := validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, err
	}

	var project Project

	dec := json.NewDecoder(bytes.NewReader(data))

	decodeErr := dec.Decode(&project)
	if decodeErr != nil {
		return nil, errors.Join(ErrDecode, decodeErr)
	}

	return &project, nil
}

// decodeYAML decodes into Project first so that unquoted scalars such as
// numeric commit IDs still land in string fields.
func decodeYAML(data []byte) (*Project, error) {
	var project Project

	err := yaml.Unmarshal(data, &project)
	if err != nil {
		return nil, errors.Join(ErrDecode, err)
	}

	err = validate(gojsonschema.NewGoLoader(project))
	if err != nil {
		return nil, err
	}

	return &project, nil
}

func validate(doc gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schema, doc)
	if err != nil {
		return errors.Join(ErrDecode, err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		msgs = append(msgs, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}
