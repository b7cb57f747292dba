// Package diagram turns input diagrams into laid-out Threat Dragon diagrams.
//
// A build runs four stages over one diagram, strictly in order, threading a
// single cell slice through them:
//
//  1. Mapping: every [model.Node] becomes a [Cell] with style attributes and
//     its referenced threats resolved against the catalog ([Builder.MapNode]).
//  2. Resolution: flow cells get source/target endpoints pointing at the
//     cells of the nodes they connect ([Resolve]).
//  3. Layout: process cells are grouped into regions and placed on
//     concentric circles ([Layout]).
//  4. Boundaries: one bounding box per trust boundary is appended
//     ([Builder.Boundaries]).
//
// [Builder.BuildAll] additionally derives sub-scope child diagrams with
// [Partition], builds every diagram independently, and returns them keyed and
// sorted by title.
//
// # Degenerate input
//
// Building never fails: [Partition], [Builder.MapNode], [Resolve], [Layout],
// [Builder.Boundaries] and [Builder.Build] return no error, and only decoding
// a [Cell] from JSON can. A threat title missing from the catalog is
// dropped, a flow naming an unknown node keeps that endpoint unset, a
// sub-scope naming an unknown parent produces no child, and a trust boundary
// whose members have no placed cells produces no box. Misses are logged at
// debug level when a logger is configured.
//
// # Determinism
//
// Regions, region members and trust-boundary groups are kept in first-seen
// order, so identical input yields identical positions. Only cell and threat
// ids differ between runs; inject [WithIDFunc] for fully reproducible output.
//
// # Layout
//
// Every region except "Center" sits on a circle of radius
// [LayoutOptions.RegionRadius] around the global center; "Center" is pinned
// to the global center. Members sit on a circle of radius
// [LayoutOptions.MemberRadius] around their region's center:
//
//	region i of n:   angle = 2π·i/n           (i counts non-Center regions from 0)
//	member k of m:   angle = 2π·k/m           (k counts from 1 in insertion order)
package diagram
