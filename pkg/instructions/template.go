package instructions

import (
	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/dataset"
	"github.com/matzehuels/chartforge/pkg/errors"
)

type obj = map[string]any

// Template builds deterministic instructions for spec over ds. The option
// uses only dataset values and record indices, so it always passes
// [Validate]. It fails only for shapes the catalog does not know.
func Template(spec catalog.ChartSpec, ds dataset.Dataset, theme, title string) (Instructions, error) {
	if title == "" {
		title = spec.Family + " chart"
	}

	var opt obj
	switch spec.Shape {
	case catalog.ShapeCategorySeries:
		opt = categoryOption(spec, ds)
	case catalog.ShapePairs:
		opt = pairsOption(spec, ds)
	case catalog.ShapeSingleValue:
		opt = singleValueOption(spec, ds)
	case catalog.ShapeXY:
		opt = xyOption(spec, ds)
	case catalog.ShapeXYZ:
		opt = xyzOption(spec, ds)
	case catalog.ShapeMatrix:
		opt = matrixOption(spec, ds)
	case catalog.ShapeCalendar:
		opt = calendarOption(spec, ds)
	case catalog.ShapeOHLC:
		opt = ohlcOption(spec, ds)
	case catalog.ShapeBox:
		opt = boxOption(spec, ds)
	case catalog.ShapeMultiDimension:
		opt = multiDimensionOption(spec, ds)
	case catalog.ShapeTree:
		opt = treeOption(spec, ds)
	case catalog.ShapeNetwork:
		opt = networkOption(spec, ds)
	case catalog.ShapeGeo:
		opt = geoOption(spec, ds)
	case catalog.ShapeTimeSeries:
		opt = timeSeriesOption(spec, ds)
	default:
		return Instructions{}, errors.New(errors.ErrCodeUnsupportedSchema, "no template for shape %q", spec.Shape)
	}

	opt["title"] = obj{"text": title, "left": "center"}
	if _, ok := opt["tooltip"]; !ok {
		opt["tooltip"] = obj{"trigger": "item"}
	}
	opt["animation"] = true

	return normalize(Instructions{Family: spec.Family, Theme: theme, Title: title, Option: opt})
}

func numbers(ds dataset.Dataset, field string) []float64 {
	out := make([]float64, ds.Len())
	for i := range ds.Records {
		out[i] = ds.Number(i, field)
	}
	return out
}

func strs(ds dataset.Dataset, field string) []string {
	out := make([]string, ds.Len())
	for i := range ds.Records {
		out[i] = ds.String(i, field)
	}
	return out
}

func tuples(ds dataset.Dataset, fields ...string) [][]any {
	out := make([][]any, ds.Len())
	for i, r := range ds.Records {
		row := make([]any, len(fields))
		for j, f := range fields {
			row[j] = r[f]
		}
		out[i] = row
	}
	return out
}

func minMax(vals []float64) (lo, hi float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		lo, hi = min(lo, v), max(hi, v)
	}
	return lo, hi
}

func categoryAxes(labels []string) (obj, obj) {
	return obj{"type": "category", "data": labels}, obj{"type": "value"}
}

func categoryOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	labels, values := strs(ds, "label"), numbers(ds, "value")
	x, y := categoryAxes(labels)
	axisTip := obj{"trigger": "axis"}

	switch spec.Family {
	case "Polar":
		return obj{
			"tooltip":    axisTip,
			"polar":      obj{"radius": []string{"10%", "75%"}},
			"angleAxis":  obj{"type": "category", "data": labels},
			"radiusAxis": obj{},
			"series": []obj{{
				"type": spec.SeriesType, "name": spec.Family, "coordinateSystem": "polar", "data": values,
			}},
		}
	case "PictorialBar":
		return obj{
			"tooltip": axisTip, "xAxis": x, "yAxis": y,
			"series": []obj{{
				"type": spec.SeriesType, "name": spec.Family, "symbol": "roundRect",
				"symbolRepeat": true, "symbolSize": []int{18, 6}, "symbolMargin": 2, "data": values,
			}},
		}
	case "Grid":
		return obj{
			"tooltip": axisTip,
			"grid":    []obj{{"top": "12%", "bottom": "56%"}, {"top": "56%", "bottom": "8%"}},
			"xAxis": []obj{
				{"type": "category", "data": labels, "gridIndex": 0},
				{"type": "category", "data": labels, "gridIndex": 1},
			},
			"yAxis": []obj{{"type": "value", "gridIndex": 0}, {"type": "value", "gridIndex": 1}},
			"series": []obj{
				{"type": spec.SeriesType, "name": "bars", "data": values},
				{"type": "line", "name": "line", "xAxisIndex": 1, "yAxisIndex": 1, "data": values},
			},
		}
	case "Overlap":
		return obj{
			"tooltip": axisTip, "xAxis": x, "yAxis": y,
			"legend": obj{"top": "bottom"},
			"series": []obj{
				{"type": spec.SeriesType, "name": "value", "data": values},
				{"type": "line", "name": "trend", "smooth": true, "data": values},
			},
		}
	case "Timeline":
		return obj{
			"tooltip": axisTip, "xAxis": x, "yAxis": y,
			"dataZoom": []obj{{"type": "slider", "start": 0, "end": 100}, {"type": "inside"}},
			"series": []obj{{
				"type": spec.SeriesType, "name": spec.Family, "data": values,
				"animationDuration": 1500, "animationEasing": "cubicOut",
			}},
		}
	case "Dataset":
		return obj{
			"tooltip": axisTip,
			"dataset": obj{"dimensions": []string{"label", "value"}, "source": tuples(ds, "label", "value")},
			"xAxis":   obj{"type": "category"},
			"yAxis":   obj{"type": "value"},
			"series": []obj{{
				"type": spec.SeriesType, "name": spec.Family, "encode": obj{"x": "label", "y": "value"},
			}},
		}
	case "Tab":
		return obj{
			"tooltip": axisTip, "xAxis": x, "yAxis": y,
			"legend": obj{"top": "bottom"},
			"series": []obj{
				{"type": spec.SeriesType, "name": "smooth", "smooth": true, "data": values},
				{"type": spec.SeriesType, "name": "stepped", "step": "middle", "data": values},
			},
		}
	case "Page":
		return obj{
			"tooltip": axisTip, "xAxis": x, "yAxis": y,
			"toolbox": obj{"feature": obj{"saveAsImage": obj{}, "dataView": obj{"readOnly": true}}},
			"series": []obj{{
				"type": spec.SeriesType, "name": spec.Family, "data": values,
				"markLine": obj{"data": []obj{{"type": "average", "name": "average"}}},
			}},
		}
	}

	series := obj{"type": spec.SeriesType, "name": spec.Family, "data": values}
	if spec.SeriesType == "line" {
		series["smooth"] = true
		series["areaStyle"] = obj{"opacity": 0.15}
	}
	return obj{"tooltip": axisTip, "xAxis": x, "yAxis": y, "grid": obj{"containLabel": true}, "series": []obj{series}}
}

func pairsOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	data := make([]obj, ds.Len())
	for i := range ds.Records {
		data[i] = obj{"name": ds.String(i, "name"), "value": ds.Number(i, "value")}
	}

	series := obj{"type": spec.SeriesType, "name": spec.Family, "data": data}
	opt := obj{"series": []obj{series}}
	switch spec.SeriesType {
	case "pie":
		series["radius"] = []string{"35%", "65%"}
		series["center"] = []string{"50%", "55%"}
		opt["legend"] = obj{"orient": "vertical", "left": "left"}
	case "funnel":
		series["sort"] = "descending"
		series["left"] = "10%"
		series["width"] = "80%"
		opt["legend"] = obj{"top": "bottom"}
	case "wordCloud":
		series["sizeRange"] = []int{14, 64}
		series["rotationRange"] = []int{-45, 45}
		series["gridSize"] = 8
	}
	return opt
}

func singleValueOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	if spec.SeriesType == "liquidFill" {
		return obj{"series": []obj{{
			"type": spec.SeriesType, "name": spec.Family, "radius": "70%", "data": numbers(ds, "value"),
		}}}
	}
	data := make([]obj, ds.Len())
	for i := range ds.Records {
		data[i] = obj{"name": ds.String(i, "name"), "value": ds.Number(i, "value")}
	}
	return obj{"series": []obj{{
		"type": spec.SeriesType, "name": spec.Family, "min": 0, "max": 100,
		"progress": obj{"show": true}, "detail": obj{"valueAnimation": true}, "data": data,
	}}}
}

func xyOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	return obj{
		"xAxis": obj{"type": "value", "scale": true},
		"yAxis": obj{"type": "value", "scale": true},
		"series": []obj{{
			"type": spec.SeriesType, "name": spec.Family, "symbolSize": 12, "data": tuples(ds, "x", "y"),
		}},
	}
}

func xyzOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	lo, hi := minMax(numbers(ds, "z"))
	series := obj{"type": spec.SeriesType, "name": spec.Family, "data": tuples(ds, "x", "y", "z")}
	if spec.SeriesType == "surface" {
		series["wireframe"] = obj{"show": true}
	}
	return obj{
		"tooltip":   obj{},
		"visualMap": obj{"show": false, "dimension": 2, "min": lo, "max": hi},
		"grid3D":    obj{"viewControl": obj{"autoRotate": true}},
		"xAxis3D":   obj{"type": "value"},
		"yAxis3D":   obj{"type": "value"},
		"zAxis3D":   obj{"type": "value"},
		"series":    []obj{series},
	}
}

func matrixOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	xs, ys := ds.Distinct("x"), ds.Distinct("y")
	xi, yi := index(xs), index(ys)
	data := make([][]any, ds.Len())
	for i := range ds.Records {
		data[i] = []any{xi[ds.String(i, "x")], yi[ds.String(i, "y")], ds.Number(i, "value")}
	}
	lo, hi := minMax(numbers(ds, "value"))
	return obj{
		"tooltip":   obj{"position": "top"},
		"grid":      obj{"height": "60%", "top": "12%"},
		"xAxis":     obj{"type": "category", "data": xs, "splitArea": obj{"show": true}},
		"yAxis":     obj{"type": "category", "data": ys, "splitArea": obj{"show": true}},
		"visualMap": obj{"min": lo, "max": hi, "calculable": true, "orient": "horizontal", "left": "center", "bottom": "4%"},
		"series": []obj{{
			"type": spec.SeriesType, "name": spec.Family, "data": data, "label": obj{"show": ds.Len() <= 60},
		}},
	}
}

func index(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}

func calendarOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	cal := obj{"top": 100, "cellSize": []any{"auto", 18}}
	if dates := strs(ds, "date"); len(dates) > 0 {
		cal["range"] = []string{dates[0], dates[len(dates)-1]}
	}
	lo, hi := minMax(numbers(ds, "value"))
	return obj{
		"visualMap": obj{"min": lo, "max": hi, "orient": "horizontal", "left": "center", "bottom": "6%"},
		"calendar":  cal,
		"series": []obj{{
			"type": spec.SeriesType, "name": spec.Family, "coordinateSystem": "calendar",
			"data": tuples(ds, "date", "value"),
		}},
	}
}

func ohlcOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	return obj{
		"tooltip":  obj{"trigger": "axis", "axisPointer": obj{"type": "cross"}},
		"xAxis":    obj{"type": "category", "data": strs(ds, "date")},
		"yAxis":    obj{"type": "value", "scale": true},
		"dataZoom": []obj{{"type": "inside"}},
		"series": []obj{{
			"type": spec.SeriesType, "name": spec.Family, "data": tuples(ds, "open", "close", "low", "high"),
		}},
	}
}

func boxOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	return obj{
		"xAxis": obj{"type": "category", "data": strs(ds, "label")},
		"yAxis": obj{"type": "value", "scale": true},
		"series": []obj{{
			"type": spec.SeriesType, "name": spec.Family, "data": tuples(ds, "min", "q1", "median", "q3", "max"),
		}},
	}
}

func multiDimensionOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	if spec.SeriesType == "parallel" {
		axes := make([]obj, len(catalog.Dimensions))
		for i, d := range catalog.Dimensions {
			axes[i] = obj{"dim": i, "name": d, "min": 0, "max": 100}
		}
		return obj{
			"parallelAxis": axes,
			"series": []obj{{
				"type": spec.SeriesType, "name": spec.Family, "lineStyle": obj{"width": 2},
				"data": tuples(ds, catalog.Dimensions...),
			}},
		}
	}

	indicators := make([]obj, len(catalog.Dimensions))
	for i, d := range catalog.Dimensions {
		indicators[i] = obj{"name": d, "max": 100}
	}
	data := make([]obj, ds.Len())
	for i, r := range ds.Records {
		vals := make([]any, len(catalog.Dimensions))
		for j, d := range catalog.Dimensions {
			vals[j] = r[d]
		}
		data[i] = obj{"name": ds.String(i, "name"), "value": vals}
	}
	return obj{
		"legend": obj{"top": "bottom", "data": ds.Distinct("name")},
		"radar":  obj{"indicator": indicators},
		"series": []obj{{"type": spec.SeriesType, "name": spec.Family, "data": data}},
	}
}

// nest turns parent-before-child records into a node tree rooted at the
// record with an empty parent.
func nest(ds dataset.Dataset) obj {
	nodes := make(map[string]obj, ds.Len())
	var root obj
	for i := range ds.Records {
		n := obj{"name": ds.String(i, "name"), "value": ds.Number(i, "value")}
		nodes[ds.String(i, "name")] = n
		parent := ds.String(i, "parent")
		if parent == "" {
			root = n
			continue
		}
		if p, ok := nodes[parent]; ok {
			children, _ := p["children"].([]obj)
			p["children"] = append(children, n)
		}
	}
	return root
}

func treeOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	root := nest(ds)
	series := obj{"type": spec.SeriesType, "name": spec.Family, "data": []obj{root}}
	switch spec.SeriesType {
	case "tree":
		series["top"] = "10%"
		series["left"] = "8%"
		series["bottom"] = "8%"
		series["right"] = "20%"
		series["expandAndCollapse"] = true
		series["initialTreeDepth"] = -1
		series["label"] = obj{"position": "left", "verticalAlign": "middle", "align": "right"}
	case "sunburst":
		series["radius"] = []string{"0%", "80%"}
		series["center"] = []string{"50%", "55%"}
	case "treemap":
		series["leafDepth"] = 2
		series["top"] = 60
	}
	return obj{"series": []obj{series}}
}

func networkOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	var nodes []obj
	seen := map[string]bool{}
	for i := range ds.Records {
		for _, name := range []string{ds.String(i, "source"), ds.String(i, "target")} {
			if !seen[name] {
				seen[name] = true
				nodes = append(nodes, obj{"name": name})
			}
		}
	}
	links := make([]obj, ds.Len())
	for i := range ds.Records {
		links[i] = obj{"source": ds.String(i, "source"), "target": ds.String(i, "target"), "value": ds.Number(i, "value")}
	}

	switch spec.SeriesType {
	case "graphGL":
		return obj{"series": []obj{{
			"type": spec.SeriesType, "name": spec.Family, "nodes": nodes, "edges": links,
			"forceAtlas2": obj{"steps": 5, "stopThreshold": 20, "edgeWeight": []float64{0.2, 1}},
			"itemStyle":   obj{"opacity": 0.9}, "lineStyle": obj{"width": 1, "opacity": 0.5},
		}}}
	case "sankey":
		return obj{"series": []obj{{
			"type": spec.SeriesType, "name": spec.Family, "data": nodes, "links": links,
			"emphasis": obj{"focus": "adjacency"}, "lineStyle": obj{"color": "gradient", "curveness": 0.5},
		}}}
	}
	return obj{"series": []obj{{
		"type": spec.SeriesType, "name": spec.Family, "layout": "force", "roam": true,
		"symbolSize": 28, "label": obj{"show": true}, "edgeSymbol": []string{"none", "arrow"},
		"force": obj{"repulsion": 220, "edgeLength": 90}, "data": nodes, "links": links,
	}}}
}

func geoOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	lo, hi := minMax(numbers(ds, "value"))
	if spec.SeriesType == "scatter3D" || spec.SeriesType == "bar3D" {
		return obj{
			"tooltip":   obj{},
			"visualMap": obj{"show": false, "dimension": 2, "min": lo, "max": hi},
			"grid3D":    obj{"viewControl": obj{"autoRotate": true}},
			"xAxis3D":   obj{"type": "value", "name": "lng"},
			"yAxis3D":   obj{"type": "value", "name": "lat"},
			"zAxis3D":   obj{"type": "value"},
			"series": []obj{{
				"type": spec.SeriesType, "name": spec.Family, "data": tuples(ds, "lng", "lat", "value"),
			}},
		}
	}

	data := make([]obj, ds.Len())
	for i, r := range ds.Records {
		data[i] = obj{"name": ds.String(i, "name"), "value": []any{r["lng"], r["lat"], r["value"]}}
	}
	series := obj{
		"type": spec.SeriesType, "name": spec.Family, "data": data,
		"encode": obj{"x": 0, "y": 1, "tooltip": []int{0, 1, 2}}, "symbolSize": 14,
		"label": obj{"show": true, "formatter": "{b}", "position": "right"},
	}
	if spec.SeriesType == "effectScatter" {
		series["rippleEffect"] = obj{"brushType": "stroke"}
	}
	return obj{
		"xAxis":     obj{"type": "value", "name": "lng", "min": -180, "max": 180},
		"yAxis":     obj{"type": "value", "name": "lat", "min": -90, "max": 90},
		"visualMap": obj{"show": false, "dimension": 2, "min": lo, "max": hi, "inRange": obj{"symbolSize": []int{8, 30}}},
		"series":    []obj{series},
	}
}

func timeSeriesOption(spec catalog.ChartSpec, ds dataset.Dataset) obj {
	return obj{
		"tooltip":    obj{"trigger": "axis", "axisPointer": obj{"type": "line"}},
		"legend":     obj{"top": "bottom", "data": ds.Distinct("series")},
		"singleAxis": obj{"type": "time", "top": 60, "bottom": 60},
		"series": []obj{{
			"type": spec.SeriesType, "name": spec.Family, "data": tuples(ds, "date", "value", "series"),
		}},
	}
}
