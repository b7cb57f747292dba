// Package model defines the input records of a threat model: architecture
// nodes (processes and data flows), threat catalog entries and the project
// configuration that declares sub-scopes, trust boundaries and assets.
//
// Records are plain data. The only behaviour here is parsing of the
// enumerated fields, catalog lookup and validation at the input boundary:
// once a record passes [ValidateDiagram], [ValidateCatalog] or
// [ValidateConfig], the diagram builder trusts it without re-checking.
//
// # Input format
//
// Diagrams use camelCase keys, matching the files analysts already write:
//
//	title: Payments
//	description: Card payment flow
//	nodes:
//	  - name: API
//	    type: process
//	    description: Public API
//	    trustBoundary: DMZ
//	    threats: [Token replay]
//	  - name: Browser to API
//	    type: flow
//	    source: Browser
//	    destination: API
//	    threats: []
//
// The configuration uses snake_case keys (see [Config]).
package model
