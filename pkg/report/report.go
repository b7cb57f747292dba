// Package report derives audit tables from an input diagram: the entry
// points crossing into the system, the trust boundaries and assets the
// diagram touches, and the threats attached to each element.
//
// Tables are plain string grids. [WriteWorkbook] saves a diagram's tables as
// one spreadsheet with a sheet per table; [WriteCSV] and [WriteDir] write
// them as CSV, and the CLI prints them to a terminal.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/matzehuels/stridegraph/pkg/model"
)

// Unknown fills cells whose value cannot be derived.
const Unknown = "Unknown"

// Table names.
const (
	EntryPoints     = "Entry Points"
	TrustBoundaries = "Trust Boundaries"
	Assets          = "Assets"
	Threats         = "Threats"
)

// Table is a named grid with a header row.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Build returns every report table for one diagram.
func Build(in model.InputDiagram, cfg *model.Config, catalog model.Catalog) []Table {
	if cfg == nil {
		cfg = &model.Config{}
	}
	return []Table{
		EntryPointTable(in),
		TrustBoundaryTable(in, cfg),
		AssetTable(in, cfg),
		ThreatTable(in, catalog),
	}
}

// EntryPointTable lists every flow with the in-scope element it enters:
// the source when it is in scope, otherwise the destination when that is
// in scope, otherwise Unknown.
func EntryPointTable(in model.InputDiagram) Table {
	t := Table{
		Name:   EntryPoints,
		Header: []string{"ID", "Name", "Description", "Trust Level", "Microservice"},
		Rows:   [][]string{},
	}
	for _, n := range in.Nodes {
		if !n.IsFlow() {
			continue
		}
		t.Rows = append(t.Rows, []string{
			n.Name,
			n.Name,
			n.Description,
			orUnknown(n.TrustLevel),
			microservice(in, n),
		})
	}
	return t
}

func microservice(in model.InputDiagram, f model.Node) string {
	if src, ok := in.Node(f.Source); ok && !src.IsOutOfScope() {
		return src.Name
	}
	if dst, ok := in.Node(f.Destination); ok && !dst.IsOutOfScope() {
		return dst.Name
	}
	return Unknown
}

// TrustBoundaryTable lists each boundary named by a node and defined in the
// configuration, in first-seen order.
func TrustBoundaryTable(in model.InputDiagram, cfg *model.Config) Table {
	t := Table{
		Name:   TrustBoundaries,
		Header: []string{"ID", "Description", "Limit of Access", "Level of Authorization"},
		Rows:   [][]string{},
	}
	for _, name := range distinct(in.Nodes, func(n model.Node) string { return n.TrustBoundary }) {
		tb, ok := cfg.TrustBoundary(name)
		if !ok {
			continue
		}
		t.Rows = append(t.Rows, []string{name, tb.Description, tb.LimitOfAccess, tb.LevelOfAuthorization})
	}
	return t
}

// AssetTable lists each asset named by a node, with its configured
// description when there is one.
func AssetTable(in model.InputDiagram, cfg *model.Config) Table {
	t := Table{
		Name:   Assets,
		Header: []string{"ID", "Description"},
		Rows:   [][]string{},
	}
	for _, name := range distinct(in.Nodes, func(n model.Node) string { return n.Asset }) {
		var desc string
		if a, ok := cfg.Asset(name); ok {
			desc = a.Description
		}
		t.Rows = append(t.Rows, []string{name, desc})
	}
	return t
}

// ThreatTable lists one row per element and resolved threat.
func ThreatTable(in model.InputDiagram, catalog model.Catalog) Table {
	t := Table{
		Name:   Threats,
		Header: []string{"Element", "Title", "Category", "Severity", "Status", "Mitigation"},
		Rows:   [][]string{},
	}
	for _, n := range in.Nodes {
		for _, title := range n.Threats {
			th, ok := catalog.Lookup(title)
			if !ok {
				continue
			}
			t.Rows = append(t.Rows, []string{
				n.Name,
				th.Title,
				th.Category.String(),
				string(th.Severity),
				string(th.Status),
				th.Mitigation,
			})
		}
	}
	return t
}

func distinct(nodes []model.Node, key func(model.Node) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range nodes {
		k := key(n)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

// =============================================================================
// Output
// =============================================================================

// WriteCSV writes the header and rows of t.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write %s: %w", t.Name, err)
	}
	return nil
}

// WriteDir writes each table to dir/<slug>.csv and returns the paths.
func WriteDir(dir string, tables []Table) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(dir, Slug(t.Name)+".csv")
		if err := writeFile(path, t); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Slug turns a title into a file name: lower case, runs of anything other
// than letters and digits collapsed to a single dash.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
