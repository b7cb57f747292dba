package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stridegraph/pkg/cache"
	"github.com/matzehuels/stridegraph/pkg/diagram"
	"github.com/matzehuels/stridegraph/pkg/document"
	"github.com/matzehuels/stridegraph/pkg/loader"
	"github.com/matzehuels/stridegraph/pkg/model"
	"github.com/matzehuels/stridegraph/pkg/render"
	"github.com/matzehuels/stridegraph/pkg/report"
)

// Runner executes the pipeline with a preview cache.
//
// The Runner is stateless except for the cache and logger, so multiple
// goroutines can share one Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables preview caching and a
// nil logger falls back to the default logger.
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// Execute loads the inputs named by opts and generates every output.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	opts.SetDefaults()

	loadStart := time.Now()
	in, err := r.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	loadTime := time.Since(loadStart)

	result, err := r.Generate(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.LoadTime = loadTime
	return result, nil
}

// Load reads the configuration, catalog and diagram directory.
func (r *Runner) Load(opts Options) (*Inputs, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}

	cfg, err := loader.ReadConfigFile(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	catalog, err := loader.ReadCatalogFile(opts.ThreatPath)
	if err != nil {
		return nil, err
	}
	diagrams, err := r.readDiagrams(opts.DiagramPath)
	if err != nil {
		return nil, err
	}

	r.Logger.Info("loaded inputs",
		"title", cfg.Title,
		"threats", len(catalog),
		"diagrams", len(diagrams),
		"sub_scopes", len(cfg.Diagrams))
	return &Inputs{Config: cfg, Catalog: catalog, Diagrams: diagrams}, nil
}

// readDiagrams accepts either a directory of diagram files or one file.
func (r *Runner) readDiagrams(path string) ([]model.InputDiagram, error) {
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		d, err := loader.ReadDiagramFile(path)
		if err != nil {
			return nil, err
		}
		return []model.InputDiagram{d}, nil
	}
	return loader.ReadDiagramDir(path)
}

// Generate builds the document, the report tables and, when requested, the
// previews from already loaded inputs.
func (r *Runner) Generate(ctx context.Context, in *Inputs, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	opts.SetDefaults()
	if err := ValidatePreviewFormat(opts.PreviewFormat); err != nil {
		return nil, err
	}

	result := &Result{PreviewFormat: opts.PreviewFormat}

	buildStart := time.Now()
	b := diagram.NewBuilder(
		diagram.WithLogger(opts.Logger),
		diagram.WithLayoutOptions(opts.Layout),
	)
	diagrams := b.BuildAll(in.Diagrams, in.Config, in.Catalog)
	result.Document = document.New(in.Config, diagrams)
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.Diagrams = len(diagrams)
	for _, d := range diagrams {
		result.Stats.Cells += len(d.Cells)
		for _, c := range d.Cells {
			result.Stats.Threats += len(c.Data.Threats)
		}
	}
	r.Logger.Info("built diagrams",
		"diagrams", result.Stats.Diagrams,
		"cells", result.Stats.Cells,
		"threats", result.Stats.Threats,
		"duration", result.Stats.BuildTime)

	if opts.Reports {
		for _, d := range diagram.Expand(in.Diagrams, in.Config) {
			result.Reports = append(result.Reports, DiagramReport{
				Title:  d.Title,
				Tables: report.Build(d, in.Config, in.Catalog),
			})
		}
	}

	if opts.Preview {
		renderStart := time.Now()
		result.Previews = make(map[string][]byte, len(diagrams))
		for _, d := range diagrams {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, hit, err := r.Preview(ctx, d, opts.PreviewFormat)
			if err != nil {
				return nil, fmt.Errorf("preview %q: %w", d.Title, err)
			}
			if hit {
				result.CacheInfo.PreviewHits++
			} else {
				result.CacheInfo.PreviewMisses++
			}
			result.Previews[d.Title] = data
		}
		result.Stats.RenderTime = time.Since(renderStart)
		r.Logger.Info("rendered previews",
			"format", opts.PreviewFormat,
			"cached", result.CacheInfo.PreviewHits,
			"duration", result.Stats.RenderTime)
	}

	return result, nil
}

// Preview renders one diagram and reports whether the result came from the
// cache. DOT output is returned as is and never cached.
func (r *Runner) Preview(ctx context.Context, d diagram.Diagram, format string) ([]byte, bool, error) {
	if format == "" {
		format = DefaultPreviewFormat
	}
	if err := ValidatePreviewFormat(format); err != nil {
		return nil, false, err
	}

	dot := render.ToDOT(d)
	if format == FormatDOT {
		return []byte(dot), false, nil
	}

	key := cache.PreviewKey(cache.Hash([]byte(dot)), format)
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		return data, true, nil
	} else if err != nil {
		r.Logger.Warn("preview cache read failed", "error", err)
	}

	var data []byte
	var err error
	switch format {
	case FormatPNG:
		data, err = render.RenderPNG(ctx, dot)
	default:
		data, err = render.RenderSVG(ctx, dot)
	}
	if err != nil {
		return nil, false, err
	}

	if err := r.Cache.Set(ctx, key, data, cache.PreviewTTL); err != nil {
		r.Logger.Warn("preview cache write failed", "error", err)
	}
	return data, false, nil
}

// WriteOutputs writes the document to <output>/<basename>.json, one report
// workbook per diagram to <output>/reports/<title>.xlsx with the same tables
// as CSV below <output>/reports/<title>/, and previews to <output>/preview/.
// Titles that map to the same file name are numbered. It returns the
// written paths.
func (r *Runner) WriteOutputs(result *Result, opts Options) ([]string, error) {
	opts.SetDefaults()
	if err := opts.ValidateForWrite(); err != nil {
		return nil, err
	}

	var paths []string

	docPath := document.OutputPath(opts.OutputPath)
	if err := result.Document.WriteFile(docPath); err != nil {
		return paths, fmt.Errorf("write document: %w", err)
	}
	paths = append(paths, docPath)

	reportNames := r.newFileNames()
	for _, rep := range result.Reports {
		base := filepath.Join(opts.OutputPath, ReportsDir, reportNames.name(rep.Title))
		if err := report.WriteWorkbook(base+WorkbookExt, rep.Tables); err != nil {
			return paths, fmt.Errorf("write reports for %q: %w", rep.Title, err)
		}
		paths = append(paths, base+WorkbookExt)

		written, err := report.WriteDir(base, rep.Tables)
		paths = append(paths, written...)
		if err != nil {
			return paths, fmt.Errorf("write reports for %q: %w", rep.Title, err)
		}
	}

	if len(result.Previews) > 0 {
		dir := filepath.Join(opts.OutputPath, PreviewDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, fmt.Errorf("create preview dir: %w", err)
		}
		previewNames := r.newFileNames()
		for _, title := range result.Document.Titles() {
			data, ok := result.Previews[title]
			if !ok {
				continue
			}
			path := filepath.Join(dir, previewNames.name(title)+"."+result.PreviewFormat)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return paths, fmt.Errorf("write preview: %w", err)
			}
			paths = append(paths, path)
		}
	}

	r.Logger.Debug("wrote outputs", "files", len(paths), "dir", opts.OutputPath)
	return paths, nil
}

// fileNames hands out one file name per title within a directory.
type fileNames struct {
	used   map[string]bool
	logger *log.Logger
}

func (r *Runner) newFileNames() *fileNames {
	return &fileNames{used: make(map[string]bool), logger: r.Logger}
}

// name returns the slug of title, suffixed with -2, -3, ... when an earlier
// title already took it.
func (n *fileNames) name(title string) string {
	base := report.Slug(title)
	name := base
	for i := 2; n.used[name]; i++ {
		name = fmt.Sprintf("%s-%d", base, i)
	}
	n.used[name] = true
	if name != base {
		n.logger.Warn("title collides with an earlier file name", "title", title, "file", name)
	}
	return name
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
