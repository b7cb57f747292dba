// Package loader reads project configuration, the threat catalog and input
// diagrams from YAML or TOML files.
//
// The format is chosen from the file extension: ".toml" selects TOML and
// everything else is read as YAML. Every record is validated with the
// model package's validators after decoding, so callers receive either
// well-formed records or a coded error:
//
//   - FILE_NOT_FOUND when a path does not exist
//   - INVALID_FORMAT when a file cannot be decoded
//   - INVALID_CONFIG, INVALID_CATALOG, INVALID_NODE when validation fails
package loader

import (
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stridegraph/pkg/errors"
	"github.com/matzehuels/stridegraph/pkg/model"
)

// Format is an input file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// IsInputFile reports whether a file name has a recognised extension.
func IsInputFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

// =============================================================================
// Config
// =============================================================================

// ReadConfig decodes and validates a configuration.
func ReadConfig(r io.Reader, format Format) (*model.Config, error) {
	var cfg model.Config
	if err := decode(r, format, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode config")
	}
	if err := model.ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReadConfigFile reads a configuration file.
func ReadConfigFile(path string) (*model.Config, error) {
	var cfg *model.Config
	err := withFile(path, func(r io.Reader) (err error) {
		cfg, err = ReadConfig(r, FormatFromPath(path))
		return err
	})
	return cfg, err
}

// =============================================================================
// Catalog
// =============================================================================

// tomlCatalog wraps the catalog because TOML documents cannot be arrays.
type tomlCatalog struct {
	Threats model.Catalog `toml:"threats"`
}

// ReadCatalog decodes and validates a threat catalog. YAML catalogs are a
// top-level sequence; TOML catalogs are a [[threats]] array of tables.
func ReadCatalog(r io.Reader, format Format) (model.Catalog, error) {
	var catalog model.Catalog
	var err error
	if format == FormatTOML {
		var doc tomlCatalog
		err = decode(r, format, &doc)
		catalog = doc.Threats
	} else {
		err = decode(r, format, &catalog)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode threat catalog")
	}
	if err := model.ValidateCatalog(catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// ReadCatalogFile reads a threat catalog file.
func ReadCatalogFile(path string) (model.Catalog, error) {
	var catalog model.Catalog
	err := withFile(path, func(r io.Reader) (err error) {
		catalog, err = ReadCatalog(r, FormatFromPath(path))
		return err
	})
	return catalog, err
}

// =============================================================================
// Diagrams
// =============================================================================

// ReadDiagram decodes and validates one input diagram.
func ReadDiagram(r io.Reader, format Format) (model.InputDiagram, error) {
	var d model.InputDiagram
	if err := decode(r, format, &d); err != nil {
		return model.InputDiagram{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode diagram")
	}
	if err := model.ValidateDiagram(d); err != nil {
		return model.InputDiagram{}, err
	}
	return d, nil
}

// ReadDiagramFile reads one diagram file.
func ReadDiagramFile(path string) (model.InputDiagram, error) {
	var d model.InputDiagram
	err := withFile(path, func(r io.Reader) (err error) {
		d, err = ReadDiagram(r, FormatFromPath(path))
		return err
	})
	return d, err
}

// ReadDiagramDir reads every YAML or TOML file directly inside dir, in file
// name order. Subdirectories and other files are ignored.
func ReadDiagramDir(dir string) ([]model.InputDiagram, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "diagram directory %s", dir)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read diagram directory %s", dir)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsInputFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	diagrams := make([]model.InputDiagram, 0, len(names))
	for _, name := range names {
		d, err := ReadDiagramFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		diagrams = append(diagrams, d)
	}
	return diagrams, nil
}

// =============================================================================
// Helpers
// =============================================================================

func decode(r io.Reader, format Format, v any) error {
	if format == FormatTOML {
		_, err := toml.NewDecoder(r).Decode(v)
		return err
	}
	err := yaml.NewDecoder(r).Decode(v)
	if stderrors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "%s", path)
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()

	if err := fn(f); err != nil {
		var coded *errors.Error
		if stderrors.As(err, &coded) {
			coded.Message = path + ": " + coded.Message
			return coded
		}
		return err
	}
	return nil
}
