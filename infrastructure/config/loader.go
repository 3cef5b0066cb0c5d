// Package config loads tastate configuration files and opens the backends
// they select.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
)

// Format is a configuration file format.
type Format string

const (
	// FormatYAML is the YAML format.
	FormatYAML Format = "yaml"
	// FormatJSON is the JSON format.
	FormatJSON Format = "json"
)

// decoders unmarshal a document over a configuration that already holds
// the defaults, so keys a file leaves out keep their default value.
var decoders = map[Format]func([]byte, *domainconfig.Config) error{
	FormatYAML: func(b []byte, c *domainconfig.Config) error { return yaml.Unmarshal(b, c) },
	FormatJSON: func(b []byte, c *domainconfig.Config) error { return json.Unmarshal(b, c) },
}

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", domainconfig.ErrUnsupportedFormat, ext)
	}
}

// Loader reads configuration files. The zero value neither expands the
// environment nor validates; NewLoader turns both on.
type Loader struct {
	// ExpandEnv substitutes ${NAME} references before decoding.
	ExpandEnv bool
	// StrictEnv fails on references to unset variables.
	StrictEnv bool
	// Validate runs the domain validator on the result.
	Validate bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnvExpansion toggles environment expansion.
func WithEnvExpansion(enabled bool) LoaderOption {
	return func(l *Loader) { l.ExpandEnv = enabled }
}

// WithStrictEnv toggles failing on unset variables.
func WithStrictEnv(enabled bool) LoaderOption {
	return func(l *Loader) { l.StrictEnv = enabled }
}

// WithValidation toggles validation.
func WithValidation(enabled bool) LoaderOption {
	return func(l *Loader) { l.Validate = enabled }
}

// NewLoader returns a loader that expands the environment leniently and
// validates.
func NewLoader() *Loader {
	return &Loader{ExpandEnv: true, Validate: true}
}

// NewLoaderWithOptions returns NewLoader with opts applied.
func NewLoaderWithOptions(opts ...LoaderOption) *Loader {
	l := NewLoader()
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads the configuration at path. The format follows the file
// extension.
func (l *Loader) LoadFile(path string) (*domainconfig.Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", domainconfig.ErrInvalidFormat, path)
		}
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", domainconfig.ErrConfigNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return l.decode(data, format)
}

// Load reads a whole configuration document from r.
func (l *Loader) Load(r io.Reader, format Format) (*domainconfig.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return l.decode(data, format)
}

// LoadString loads configuration from a string.
func (l *Loader) LoadString(content string, format Format) (*domainconfig.Config, error) {
	return l.decode([]byte(content), format)
}

// LoadBytes loads configuration from bytes.
func (l *Loader) LoadBytes(data []byte, format Format) (*domainconfig.Config, error) {
	return l.Load(bytes.NewReader(data), format)
}

func (l *Loader) decode(data []byte, format Format) (*domainconfig.Config, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainconfig.ErrUnsupportedFormat, format)
	}

	if l.ExpandEnv {
		expanded, err := (&envExpander{strict: l.StrictEnv}).Expand(string(data))
		if err != nil {
			return nil, err
		}
		data = []byte(expanded)
	}

	cfg := Defaults()
	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domainconfig.ErrInvalidFormat, err)
	}

	if l.Validate {
		if errs := domainconfig.NewValidator().Validate(cfg); errs.HasErrors() {
			return nil, fmt.Errorf("%w: %v", domainconfig.ErrValidationFailed, errs)
		}
	}
	return cfg, nil
}
