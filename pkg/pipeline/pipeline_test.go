package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/stridegraph/pkg/cache"
	"github.com/matzehuels/stridegraph/pkg/diagram"
	"github.com/matzehuels/stridegraph/pkg/errors"
	"github.com/matzehuels/stridegraph/pkg/model"
	"github.com/matzehuels/stridegraph/pkg/render"
)

const testConfig = `
threat_dragon_version: 2.2.0
title: Web shop
owner: security
diagrams:
  - name: Checkout
    parent: Overview
    nodes: [Browser, API]
trust_boundaries:
  - name: Internet
    description: public network
`

const testThreats = `
- title: Session hijack
  status: Open
  severity: High
  type: Spoofing
`

const testDiagram = `
title: Overview
description: whole shop
nodes:
  - name: Browser
    type: process
    outOfScope: true
    trustBoundary: Internet
  - name: API
    type: process
    threats: [Session hijack]
  - name: DB
    type: process
  - name: Request
    type: flow
    source: Browser
    destination: API
  - name: Query
    type: flow
    source: API
    destination: DB
`

func fixture(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	write("diagrams/overview.yaml", testDiagram)
	return Options{
		ConfigPath:  write("config.yaml", testConfig),
		ThreatPath:  write("threats.yaml", testThreats),
		DiagramPath: filepath.Join(dir, "diagrams"),
		OutputPath:  filepath.Join(dir, "out", "shop"),
	}
}

func TestValidateForLoad(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"missing config", Options{ThreatPath: "t", DiagramPath: "d"}, "CONFIG_PATH"},
		{"missing threats", Options{ConfigPath: "c", DiagramPath: "d"}, "THREAT_PATH"},
		{"missing diagrams", Options{ConfigPath: "c", ThreatPath: "t"}, "DIAGRAM_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateForLoad()
			if !errors.Is(err, errors.ErrCodeInvalidInput) || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ValidateForLoad() = %v", err)
			}
		})
	}
	if err := (&Options{ConfigPath: "c", ThreatPath: "t", DiagramPath: "d"}).ValidateForLoad(); err != nil {
		t.Errorf("complete options: %v", err)
	}
}

func TestValidatePreviewFormat(t *testing.T) {
	for format, wantErr := range map[string]bool{"svg": false, "png": false, "dot": false, "": false, "pdf": true, "SVG": true} {
		if err := ValidatePreviewFormat(format); (err != nil) != wantErr {
			t.Errorf("ValidatePreviewFormat(%q) = %v, wantErr %v", format, err, wantErr)
		}
	}
}

func TestExecute(t *testing.T) {
	opts := fixture(t)
	opts.Reports = true
	opts.Preview = true
	opts.PreviewFormat = FormatDOT

	r := NewRunner(nil, nil)
	result, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if diff := cmp.Diff([]string{"Checkout", "Overview"}, result.Document.Titles()); diff != "" {
		t.Errorf("titles (-want +got):\n%s", diff)
	}
	if result.Document.Version != "2.2.0" || result.Document.Summary.Title != "Web shop" {
		t.Errorf("document header = %q/%q", result.Document.Version, result.Document.Summary.Title)
	}
	// Overview: 5 nodes + Internet box; Checkout: Browser, API, Request + Internet box.
	if result.Stats.Diagrams != 2 || result.Stats.Cells != 10 || result.Stats.Threats != 2 {
		t.Errorf("stats = %+v", result.Stats)
	}

	var reportTitles []string
	for _, rep := range result.Reports {
		reportTitles = append(reportTitles, rep.Title)
	}
	if diff := cmp.Diff([]string{"Overview", "Checkout"}, reportTitles); diff != "" {
		t.Errorf("report titles (-want +got):\n%s", diff)
	}

	if !strings.HasPrefix(string(result.Previews["Overview"]), "digraph G {") {
		t.Errorf("DOT preview = %q", result.Previews["Overview"])
	}

	paths, err := r.WriteOutputs(result, opts)
	if err != nil {
		t.Fatalf("WriteOutputs() error: %v", err)
	}
	wants := []string{
		filepath.Join(opts.OutputPath, "shop.json"),
		filepath.Join(opts.OutputPath, "reports", "overview.xlsx"),
		filepath.Join(opts.OutputPath, "reports", "checkout.xlsx"),
		filepath.Join(opts.OutputPath, "reports", "overview", "entry-points.csv"),
		filepath.Join(opts.OutputPath, "reports", "checkout", "threats.csv"),
		filepath.Join(opts.OutputPath, "preview", "overview.dot"),
	}
	for _, want := range wants {
		if !contains(paths, want) {
			t.Errorf("WriteOutputs() did not write %s", want)
		}
		if _, err := os.Stat(want); err != nil {
			t.Errorf("%s: %v", want, err)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestExecuteMissingInput(t *testing.T) {
	opts := fixture(t)
	opts.ThreatPath = filepath.Join(t.TempDir(), "none.yaml")

	_, err := NewRunner(nil, nil).Execute(context.Background(), opts)
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Execute() error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadSingleDiagramFile(t *testing.T) {
	opts := fixture(t)
	opts.DiagramPath = filepath.Join(opts.DiagramPath, "overview.yaml")

	in, err := NewRunner(nil, nil).Load(opts)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(in.Diagrams) != 1 || in.Diagrams[0].Title != "Overview" {
		t.Errorf("diagrams = %+v", in.Diagrams)
	}
}

func TestGenerateRejectsPreviewFormat(t *testing.T) {
	in := &Inputs{Config: &model.Config{Title: "x"}}
	if _, err := NewRunner(nil, nil).Generate(context.Background(), in, Options{Preview: true, PreviewFormat: "gif"}); err == nil {
		t.Error("expected error for unsupported preview format")
	}
}

func TestInputsValidate(t *testing.T) {
	valid := Inputs{
		Config:   &model.Config{Title: "x"},
		Diagrams: []model.InputDiagram{{Title: "d", Nodes: []model.Node{{Name: "A", Kind: model.KindProcess}}}},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid inputs: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Inputs)
		code   errors.Code
	}{
		{"no config", func(in *Inputs) { in.Config = nil }, errors.ErrCodeInvalidConfig},
		{"no diagrams", func(in *Inputs) { in.Diagrams = nil }, errors.ErrCodeInvalidInput},
		{"bad node", func(in *Inputs) {
			in.Diagrams = []model.InputDiagram{{Title: "d", Nodes: []model.Node{{Name: "F", Kind: model.KindFlow}}}}
		}, errors.ErrCodeInvalidNode},
		{"bad threat", func(in *Inputs) { in.Catalog = model.Catalog{{Title: "t"}} }, errors.ErrCodeInvalidCatalog},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			if err := in.Validate(); !errors.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestPreviewUsesCache(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil)

	d := diagram.NewBuilder().Build(0, model.InputDiagram{
		Title: "d",
		Nodes: []model.Node{{Name: "A", Kind: model.KindProcess}},
	}, nil, "")
	key := cache.PreviewKey(cache.Hash([]byte(render.ToDOT(d))), FormatSVG)
	if err := c.Set(ctx, key, []byte("<svg>cached</svg>"), 0); err != nil {
		t.Fatal(err)
	}

	data, hit, err := r.Preview(ctx, d, FormatSVG)
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}
	if !hit || string(data) != "<svg>cached</svg>" {
		t.Errorf("Preview() = %q, hit=%v; want cached entry", data, hit)
	}

	dot, hit, err := r.Preview(ctx, d, FormatDOT)
	if err != nil || hit || !strings.Contains(string(dot), `label="A"`) {
		t.Errorf("DOT preview = %q, %v, %v", dot, hit, err)
	}
}

func TestWriteOutputsNumbersCollidingTitles(t *testing.T) {
	in := &Inputs{
		Config: &model.Config{Title: "Shop"},
		Diagrams: []model.InputDiagram{
			{Title: "Web Shop", Nodes: []model.Node{{Name: "A", Kind: model.KindProcess}}},
			{Title: "web-shop", Nodes: []model.Node{{Name: "B", Kind: model.KindProcess}}},
		},
	}
	var logs bytes.Buffer
	r := NewRunner(nil, log.New(&logs))
	opts := Options{
		OutputPath:    filepath.Join(t.TempDir(), "shop"),
		Reports:       true,
		Preview:       true,
		PreviewFormat: FormatDOT,
	}

	result, err := r.Generate(context.Background(), in, opts)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	paths, err := r.WriteOutputs(result, opts)
	if err != nil {
		t.Fatalf("WriteOutputs() error: %v", err)
	}

	wants := []string{
		filepath.Join(opts.OutputPath, "reports", "web-shop.xlsx"),
		filepath.Join(opts.OutputPath, "reports", "web-shop-2.xlsx"),
		filepath.Join(opts.OutputPath, "reports", "web-shop-2", "threats.csv"),
		filepath.Join(opts.OutputPath, "preview", "web-shop.dot"),
		filepath.Join(opts.OutputPath, "preview", "web-shop-2.dot"),
	}
	for _, want := range wants {
		if !contains(paths, want) {
			t.Errorf("WriteOutputs() did not write %s", want)
		}
	}
	if !strings.Contains(logs.String(), "web-shop-2") {
		t.Errorf("expected a collision warning, got logs:\n%s", logs.String())
	}
}

func TestWriteOutputsRequiresOutputPath(t *testing.T) {
	_, err := NewRunner(nil, nil).WriteOutputs(&Result{}, Options{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("WriteOutputs() = %v", err)
	}
}

func TestExecuteExampleInputs(t *testing.T) {
	dir := filepath.Join("..", "..", "examples", "shop")
	opts := Options{
		ConfigPath:  filepath.Join(dir, "config.yaml"),
		ThreatPath:  filepath.Join(dir, "threats.yaml"),
		DiagramPath: filepath.Join(dir, "diagrams"),
		Reports:     true,
	}

	result, err := NewRunner(nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if diff := cmp.Diff([]string{"Checkout", "Shop overview"}, result.Document.Titles()); diff != "" {
		t.Errorf("titles (-want +got):\n%s", diff)
	}
	if len(result.Reports) != 2 {
		t.Errorf("reports = %d, want 2", len(result.Reports))
	}
}
