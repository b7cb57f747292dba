// Package pkg provides the core libraries for Stridegraph threat model diagrams.
//
// # Overview
//
// Stridegraph turns a flat list of processes and data flows into laid-out
// STRIDE diagrams that Threat Dragon can open. Nodes are grouped into
// trust-level regions placed on a ring, flows are wired to their endpoint
// cells, and every trust boundary gets a box around its members.
//
// # Architecture
//
// The typical data flow through Stridegraph:
//
//	config.yaml + threats.yaml + diagrams/*.yaml
//	         ↓
//	    [loader] package (decode YAML/TOML, validate with [model])
//	         ↓
//	    [diagram] package (partition, map, resolve, lay out, box)
//	         ↓
//	    [document] package (Threat Dragon JSON)
//	         ↓
//	    [report] xlsx/CSV tables and [render] Graphviz previews
//
// # Quick Start
//
//	cfg, _ := loader.ReadConfigFile("config.yaml")
//	catalog, _ := loader.ReadCatalogFile("threats.yaml")
//	inputs, _ := loader.ReadDiagramDir("diagrams")
//
//	b := diagram.NewBuilder()
//	tm := document.New(cfg, b.BuildAll(inputs, cfg, catalog))
//	_ = tm.WriteFile("out/shop/shop.json")
//
// # Main Packages
//
// [model] - Input records (configuration, threat catalog, diagrams) with
// struct-tag validation.
//
// [diagram] - Partitioning into sub-scopes, cell mapping, flow resolution,
// radial layout and trust boundary synthesis.
//
// [document] - The Threat Dragon document wrapper and its JSON codec.
//
// [report] - Entry point, trust boundary, asset and threat tables.
//
// [render] - DOT export and Graphviz SVG/PNG previews.
//
// [cache] - Preview cache backends (file, Redis, no-op).
//
// [pipeline] - Load, build, report and preview in one run. Shared by the CLI
// and the HTTP server so both behave the same.
//
// [errors] - Coded errors that map onto exit messages and HTTP statuses.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test -short ./pkg/...             # Skip Graphviz rendering
//	go test -run Example ./pkg/diagram   # Examples only
package pkg
