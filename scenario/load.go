package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported scenario format")

const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// FormatOf picks the decoder for path from its extension.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// Load reads a scenario file, TOML or YAML by extension.
func Load(path string) (*Scenario, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("error getting absolute path for %s: %w", path, err)
	}
	log.Infof("Loading scenario from: %s", absPath)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario %s: %w", path, err)
	}
	defer f.Close()

	sc, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("error decoding scenario %s: %w", path, err)
	}
	return sc, nil
}

// Decode reads a scenario in the given format from r.
func Decode(r io.Reader, format string) (*Scenario, error) {
	var sc Scenario
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&sc)
		if err != nil {
			return nil, err
		}
		for _, key := range md.Undecoded() {
			log.Warnf("scenario: unknown key %s", key)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	return &sc, nil
}
