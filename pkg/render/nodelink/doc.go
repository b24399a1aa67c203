// Package nodelink draws the structure of tree and network datasets as
// node-link diagrams.
//
// # Overview
//
// ECharts documents need a browser to look at. For the hierarchical and
// graph-shaped families a quick structural check is often enough, so this
// package converts a [dataset.Dataset] to Graphviz DOT and renders it to SVG
// in-process:
//
//	dot, err := nodelink.ToDOT(ds, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Tree datasets become parent -> child edges, network datasets become
// source -> target edges. Other shapes are rejected with UNSUPPORTED_SCHEMA.
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz]; no external binaries are
// required.
//
// [dataset.Dataset]: github.com/matzehuels/chartforge/pkg/dataset.Dataset
package nodelink
