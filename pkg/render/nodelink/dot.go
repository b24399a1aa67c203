package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/dataset"
	"github.com/matzehuels/chartforge/pkg/errors"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds record values to node and edge labels.
	Detailed bool
	// Theme colors nodes with the first palette entry. The zero value draws
	// plain white boxes.
	Theme catalog.Theme
}

// Supports reports whether shape can be drawn as a node-link diagram.
func Supports(shape catalog.Shape) bool {
	return shape == catalog.ShapeTree || shape == catalog.ShapeNetwork
}

// ToDOT converts a tree or network dataset to Graphviz DOT.
func ToDOT(ds dataset.Dataset, opts Options) (string, error) {
	if !Supports(ds.Shape) {
		return "", errors.New(errors.ErrCodeUnsupportedSchema, "%s datasets have no node-link structure", ds.Shape)
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if ds.Shape == catalog.ShapeNetwork {
		buf.WriteString("  rankdir=LR;\n")
	} else {
		buf.WriteString("  rankdir=TB;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	fmt.Fprintf(&buf, "  node [shape=box, style=\"rounded,filled\", fillcolor=%q, fontsize=14, margin=\"0.2,0.1\"];\n", fill(opts.Theme))
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	switch ds.Shape {
	case catalog.ShapeTree:
		writeTree(&buf, ds, opts)
	case catalog.ShapeNetwork:
		writeNetwork(&buf, ds, opts)
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func fill(t catalog.Theme) string {
	if len(t.Palette) == 0 {
		return "white"
	}
	return t.Palette[0]
}

func writeTree(buf *bytes.Buffer, ds dataset.Dataset, opts Options) {
	for i := range ds.Records {
		name := ds.String(i, "name")
		fmt.Fprintf(buf, "  %q [label=%q];\n", name, nodeLabel(name, ds.Number(i, "value"), opts.Detailed))
	}
	buf.WriteString("\n")
	for i := range ds.Records {
		if parent := ds.String(i, "parent"); parent != "" {
			fmt.Fprintf(buf, "  %q -> %q;\n", parent, ds.String(i, "name"))
		}
	}
}

func writeNetwork(buf *bytes.Buffer, ds dataset.Dataset, opts Options) {
	for _, name := range nodes(ds) {
		fmt.Fprintf(buf, "  %q;\n", name)
	}
	buf.WriteString("\n")
	for i := range ds.Records {
		src, dst := ds.String(i, "source"), ds.String(i, "target")
		if opts.Detailed {
			fmt.Fprintf(buf, "  %q -> %q [label=%q];\n", src, dst, formatValue(ds.Number(i, "value")))
			continue
		}
		fmt.Fprintf(buf, "  %q -> %q;\n", src, dst)
	}
}

// nodes returns network node names in first-seen order.
func nodes(ds dataset.Dataset) []string {
	seen := map[string]bool{}
	var out []string
	for i := range ds.Records {
		for _, n := range []string{ds.String(i, "source"), ds.String(i, "target")} {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

func nodeLabel(name string, value float64, detailed bool) string {
	if !detailed {
		return name
	}
	return name + "\n" + formatValue(value)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderSVG renders DOT source to SVG with a normalized root element.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// Preview is ToDOT followed by RenderSVG.
func Preview(ctx context.Context, ds dataset.Dataset, opts Options) ([]byte, error) {
	dot, err := ToDOT(ds, opts)
	if err != nil {
		return nil, err
	}
	return RenderSVG(ctx, dot)
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root with a unitless one
// whose viewBox starts at the origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

