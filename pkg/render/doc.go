// Package render turns chart instructions into HTML documents.
//
// # Overview
//
// A document is a single self-contained page: a fixed-size chart container,
// the ECharts library plus any extension scripts the family needs, the theme
// registered inline, and the option and dataset embedded as JSON. Once the
// chart fires its first "finished" event the page sets
// window.__chartReady and a data-chart-ready attribute on <body>, which the
// raster converter waits for.
//
//	r := render.New(catalog.Default(), render.WithSidecar(true))
//	art, err := r.Render(ins, ds, "charts/Line/line_dark_01.html")
//
// Rendering is deterministic: the same instructions, dataset and theme
// always produce the same bytes, and therefore the same [Artifact.Checksum].
//
// # Node-Link Previews
//
// The [nodelink] subpackage draws the structure of tree and network
// datasets with Graphviz, independent of the ECharts document.
//
// [nodelink]: github.com/matzehuels/chartforge/pkg/render/nodelink
package render
