package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stridegraph/pkg/document"
	"github.com/matzehuels/stridegraph/pkg/pipeline"
	"github.com/matzehuels/stridegraph/pkg/report"
)

const (
	testConfigYAML = `
title: Web shop
diagrams:
  - name: Edge
    parent: Overview
    nodes: [Browser, API]
`
	testThreatsYAML = `
- title: Session hijack
  status: Open
  severity: High
  type: Spoofing
`
	testDiagramYAML = `
title: Overview
nodes:
  - name: Browser
    type: process
    trustBoundary: Internet
  - name: API
    type: process
    threats: [Session hijack]
  - name: Request
    type: flow
    source: Browser
    destination: API
`
)

// writeInputs lays out a config, catalog and diagram directory in a temp dir.
func writeInputs(t *testing.T) (dir string, args []string) {
	t.Helper()
	dir = t.TempDir()
	files := map[string]string{
		"config.yaml":            testConfigYAML,
		"threats.yaml":           testThreatsYAML,
		"diagrams/overview.yaml": testDiagramYAML,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir, []string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--threats", filepath.Join(dir, "threats.yaml"),
		"--diagrams", filepath.Join(dir, "diagrams"),
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(&bytes.Buffer{}, log.InfoLevel)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
	want := []string{"generate", "report", "preview", "serve", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestOrEnv(t *testing.T) {
	t.Setenv(pipeline.EnvConfigPath, "env.yaml")
	if got := orEnv("flag.yaml", pipeline.EnvConfigPath); got != "flag.yaml" {
		t.Errorf("flag value should win, got %q", got)
	}
	if got := orEnv("", pipeline.EnvConfigPath); got != "env.yaml" {
		t.Errorf("env fallback = %q", got)
	}
}

func TestInputFlagsFromEnv(t *testing.T) {
	t.Setenv(pipeline.EnvConfigPath, "c.yaml")
	t.Setenv(pipeline.EnvThreatPath, "t.yaml")
	t.Setenv(pipeline.EnvDiagramPath, "d")
	opts := (&inputFlags{diagrams: "flag-dir"}).options()
	if opts.ConfigPath != "c.yaml" || opts.ThreatPath != "t.yaml" || opts.DiagramPath != "flag-dir" {
		t.Errorf("options() = %+v", opts)
	}
}

func TestGenerateCommand(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir, args := writeInputs(t)
	outDir := filepath.Join(dir, "out", "shop")

	args = append([]string{"generate"}, args...)
	args = append(args, "--output", outDir, "--reports", "--no-cache")
	if _, err := execute(t, args...); err != nil {
		t.Fatalf("generate: %v", err)
	}

	tm, err := document.ReadFile(filepath.Join(outDir, "shop.json"))
	if err != nil {
		t.Fatal(err)
	}
	if got := tm.Titles(); len(got) != 2 {
		t.Errorf("titles = %v, want Edge and Overview", got)
	}
	for _, title := range []string{"Overview", "Edge"} {
		for _, path := range []string{
			filepath.Join(outDir, pipeline.ReportsDir, report.Slug(title)+pipeline.WorkbookExt),
			filepath.Join(outDir, pipeline.ReportsDir, report.Slug(title), report.Slug(report.Threats)+".csv"),
		} {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("missing report %s", path)
			}
		}
	}
}

func TestGenerateCommandRequiresOutput(t *testing.T) {
	t.Setenv(pipeline.EnvOutputPath, "")
	_, args := writeInputs(t)
	_, err := execute(t, append([]string{"generate"}, args...)...)
	if err == nil || !strings.Contains(err.Error(), "output path is required") {
		t.Errorf("err = %v", err)
	}
}

func TestPreviewCommandDOT(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	_, args := writeInputs(t)
	args = append([]string{"preview", "--title", "Overview", "--format", "dot", "--no-cache"}, args...)
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.HasPrefix(out, "digraph") {
		t.Errorf("stdout = %.40q", out)
	}
}

func TestPreviewCommandUnknownTitle(t *testing.T) {
	_, args := writeInputs(t)
	args = append([]string{"preview", "--title", "Missing", "--format", "dot", "--no-cache"}, args...)
	if _, err := execute(t, args...); err == nil || !strings.Contains(err.Error(), "Missing") {
		t.Errorf("err = %v", err)
	}
}

func TestCachePathCommand(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)
	out, err := execute(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(out), filepath.Join(xdg, appName); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}
}

func TestRenderTable(t *testing.T) {
	tbl := report.Table{
		Name:   report.Threats,
		Header: []string{"Element", "Severity"},
		Rows:   [][]string{{"API", "High"}, {"DB", report.Unknown}},
	}
	out := renderTable(tbl)
	for _, want := range []string{"Element", "Severity", "API", "High", report.Unknown} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
