// Package pipeline runs the complete stridegraph flow that the CLI and the
// HTTP server share.
//
// # Architecture
//
// A run consists of four stages:
//
//  1. Load: read the configuration, threat catalog and diagram directory
//  2. Build: expand sub-scopes and lay out every diagram
//  3. Assemble: wrap the diagrams in a Threat Dragon document and derive
//     the report tables of every input diagram
//  4. Preview (optional): render each diagram through Graphviz, with
//     rendered output cached by DOT hash
//
// [Runner.WriteOutputs] then writes the document, report workbooks and previews
// below the output directory.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, logger)
//	opts := pipeline.Options{
//	    ConfigPath:  "config.yaml",
//	    ThreatPath:  "threats.yaml",
//	    DiagramPath: "diagrams/",
//	    OutputPath:  "out/shop",
//	    Reports:     true,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := runner.WriteOutputs(result, opts)
//
// Inputs that arrive by other means (the HTTP API decodes them from a
// request body) go straight to [Runner.Generate].
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stridegraph/pkg/diagram"
	"github.com/matzehuels/stridegraph/pkg/document"
	"github.com/matzehuels/stridegraph/pkg/errors"
	"github.com/matzehuels/stridegraph/pkg/model"
	"github.com/matzehuels/stridegraph/pkg/report"
)

// =============================================================================
// Default Values
// =============================================================================

// Environment variables that provide default input and output paths.
const (
	EnvConfigPath  = "CONFIG_PATH"
	EnvThreatPath  = "THREAT_PATH"
	EnvDiagramPath = "DIAGRAM_PATH"
	EnvOutputPath  = "OUTPUT_PATH"
)

// Preview formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatDOT = "dot"
)

// DefaultPreviewFormat is used when Options.PreviewFormat is empty.
const DefaultPreviewFormat = FormatSVG

// ValidPreviewFormats is the set of supported preview formats.
var ValidPreviewFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
	FormatDOT: true,
}

// Output layout below Options.OutputPath.
const (
	ReportsDir  = "reports"
	PreviewDir  = "preview"
	WorkbookExt = ".xlsx"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
type Options struct {
	// Inputs
	ConfigPath  string `json:"config_path,omitempty"`
	ThreatPath  string `json:"threat_path,omitempty"`
	DiagramPath string `json:"diagram_path,omitempty"`

	// Outputs
	OutputPath    string `json:"output_path,omitempty"`
	Reports       bool   `json:"reports,omitempty"`
	Preview       bool   `json:"preview,omitempty"`
	PreviewFormat string `json:"preview_format,omitempty"`

	// Layout geometry; zero fields take the diagram package defaults.
	Layout diagram.LayoutOptions `json:"-"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// SetDefaults fills empty fields.
func (o *Options) SetDefaults() {
	if o.PreviewFormat == "" {
		o.PreviewFormat = DefaultPreviewFormat
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLoad checks that every input path is set.
func (o *Options) ValidateForLoad() error {
	for _, f := range []struct{ name, value, env string }{
		{"config", o.ConfigPath, EnvConfigPath},
		{"threats", o.ThreatPath, EnvThreatPath},
		{"diagrams", o.DiagramPath, EnvDiagramPath},
	} {
		if f.value == "" {
			return errors.New(errors.ErrCodeInvalidInput, "%s path is required (flag --%s or $%s)", f.name, f.name, f.env)
		}
	}
	return nil
}

// ValidateForWrite checks the output settings.
func (o *Options) ValidateForWrite() error {
	if o.OutputPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "output path is required (flag --output or $%s)", EnvOutputPath)
	}
	return ValidatePreviewFormat(o.PreviewFormat)
}

// ValidatePreviewFormat checks that a preview format is supported.
func ValidatePreviewFormat(format string) error {
	if format != "" && !ValidPreviewFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid preview format: %q (must be one of: svg, png, dot)", format)
	}
	return nil
}

// =============================================================================
// Inputs and Results
// =============================================================================

// Inputs are the validated records a run is built from.
type Inputs struct {
	Config   *model.Config        `json:"config"`
	Catalog  model.Catalog        `json:"threats"`
	Diagrams []model.InputDiagram `json:"diagrams"`
}

// Validate checks every record. Inputs read by [Runner.Load] are already
// valid; this is for inputs decoded elsewhere.
func (in *Inputs) Validate() error {
	if err := model.ValidateConfig(in.Config); err != nil {
		return err
	}
	if err := model.ValidateCatalog(in.Catalog); err != nil {
		return err
	}
	if len(in.Diagrams) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one diagram is required")
	}
	for _, d := range in.Diagrams {
		if err := model.ValidateDiagram(d); err != nil {
			return err
		}
	}
	return nil
}

// DiagramReport holds the report tables of one input diagram.
type DiagramReport struct {
	Title  string
	Tables []report.Table
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document is the Threat Dragon threat model.
	Document *document.ThreatModel

	// Reports holds report tables per input diagram, in build order.
	Reports []DiagramReport

	// Previews holds rendered previews keyed by diagram title.
	Previews map[string][]byte

	// PreviewFormat is the format of Previews.
	PreviewFormat string

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Diagrams   int
	Cells      int
	Threats    int
	LoadTime   time.Duration
	BuildTime  time.Duration
	RenderTime time.Duration
}

// CacheInfo counts preview cache lookups.
type CacheInfo struct {
	PreviewHits   int
	PreviewMisses int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d diagrams, %d cells, %d threats", s.Diagrams, s.Cells, s.Threats)
}
