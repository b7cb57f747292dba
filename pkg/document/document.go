// Package document assembles and serializes the Threat Dragon threat model
// document: a version, a summary taken from the project configuration and a
// detail section holding the built diagrams.
package document

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/matzehuels/stridegraph/pkg/diagram"
	"github.com/matzehuels/stridegraph/pkg/errors"
	"github.com/matzehuels/stridegraph/pkg/model"
)

// ThreatModel is the top-level Threat Dragon document.
type ThreatModel struct {
	Version string  `json:"version"`
	Summary Summary `json:"summary"`
	Detail  Detail  `json:"detail"`
}

// Summary identifies the model.
type Summary struct {
	Title       string `json:"title"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
	ID          int    `json:"id"`
}

// Detail holds the diagrams. The counters and reviewer are left at their
// zero values for Threat Dragon to maintain.
type Detail struct {
	Contributors []string          `json:"contributors"`
	Diagrams     []diagram.Diagram `json:"diagrams"`
	DiagramTop   int               `json:"diagramTop"`
	Reviewer     string            `json:"reviewer"`
	ThreatTop    int               `json:"threatTop"`
}

// New wraps built diagrams in a document described by cfg.
func New(cfg *model.Config, diagrams []diagram.Diagram) *ThreatModel {
	if diagrams == nil {
		diagrams = []diagram.Diagram{}
	}
	tm := &ThreatModel{
		Detail: Detail{
			Contributors: []string{},
			Diagrams:     diagrams,
		},
	}
	if cfg != nil {
		tm.Version = cfg.ThreatDragonVersion
		tm.Summary = Summary{Title: cfg.Title, Owner: cfg.Owner, Description: cfg.Description}
	}
	return tm
}

// Diagram returns the diagram with the given title.
func (tm *ThreatModel) Diagram(title string) (diagram.Diagram, bool) {
	for _, d := range tm.Detail.Diagrams {
		if d.Title == title {
			return d, true
		}
	}
	return diagram.Diagram{}, false
}

// Titles lists the diagram titles in document order.
func (tm *ThreatModel) Titles() []string {
	titles := make([]string, 0, len(tm.Detail.Diagrams))
	for _, d := range tm.Detail.Diagrams {
		titles = append(titles, d.Title)
	}
	return titles
}

// =============================================================================
// Serialization
// =============================================================================

// Marshal returns the indented JSON encoding of the document.
func (tm *ThreatModel) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := tm.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes the document as indented JSON.
func (tm *ThreatModel) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tm); err != nil {
		return fmt.Errorf("encode threat model: %w", err)
	}
	return nil
}

// WriteFile writes the document to path, creating parent directories.
func (tm *ThreatModel) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := tm.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Read decodes a document.
func Read(r io.Reader) (*ThreatModel, error) {
	var tm ThreatModel
	if err := json.NewDecoder(r).Decode(&tm); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode threat model")
	}
	return &tm, nil
}

// ReadFile reads a document written by WriteFile.
func ReadFile(path string) (*ThreatModel, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// OutputPath returns the document path for an output directory: the
// directory's own name with a .json extension, inside the directory.
func OutputPath(dir string) string {
	dir = filepath.Clean(dir)
	return filepath.Join(dir, filepath.Base(dir)+".json")
}
