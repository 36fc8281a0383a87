package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/typedna/pkg/faults"
)

// ErrConfigurationFile is returned when an alias file cannot be decoded.
var ErrConfigurationFile = fmt.Errorf("%w: author configuration file", faults.ErrMalformedInput)

// LoadConfigurationFile reads an alias file. The format follows the
// extension: .yaml/.yml, .toml, anything else is JSON.
func LoadConfigurationFile(path string) (ConfigurationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ConfigurationFile{}, fmt.Errorf("read author configuration: %w", err)
	}

	var file ConfigurationFile

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".toml":
		_, err = toml.Decode(string(data), &file)
	default:
		err = json.Unmarshal(data, &file)
	}

	if err != nil {
		return ConfigurationFile{}, errors.Join(fmt.Errorf("%w: %s", ErrConfigurationFile, path), err)
	}

	return file, nil
}
