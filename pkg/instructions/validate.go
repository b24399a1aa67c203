package instructions

import (
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/dataset"
	"github.com/matzehuels/chartforge/pkg/errors"
)

const schemaJSON = `{
  "type": "object",
  "required": ["family", "theme", "option"],
  "properties": {
    "family": {"type": "string", "minLength": 1},
    "theme": {"type": "string"},
    "title": {"type": "string"},
    "option": {
      "type": "object",
      "required": ["series"],
      "properties": {
        "series": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["type"],
            "properties": {"type": {"type": "string", "minLength": 1}}
          }
        }
      }
    }
  }
}`

var schema = mustSchema(schemaJSON)

func mustSchema(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return sch
}

// Validate checks instructions against the chart they claim to draw:
//
//   - the document matches the structural schema
//   - the family equals spec.Family (ignoring case)
//   - some series has spec.SeriesType
//   - every number inside series data and dataset.source is a dataset value,
//     except the category slots of heatmap triples and of tuples on a
//     category axis declared without names, and numeric link endpoints,
//     which may be indices
//   - every string inside series data and dataset.source is a dataset value
//
// Failures are MALFORMED_INSTRUCTIONS.
func Validate(ins Instructions, spec catalog.ChartSpec, ds dataset.Dataset) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(ins))
	if err != nil {
		return errors.Wrap(errors.ErrCodeMalformedInstructions, err, "schema validation")
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return errors.New(errors.ErrCodeMalformedInstructions, "schema: %s", strings.Join(msgs, "; "))
	}

	if !strings.EqualFold(ins.Family, spec.Family) {
		return errors.New(errors.ErrCodeMalformedInstructions, "instructions claim family %q, want %q", ins.Family, spec.Family)
	}

	found := false
	for _, t := range ins.SeriesTypes() {
		if strings.EqualFold(t, spec.SeriesType) {
			found = true
			break
		}
	}
	if !found {
		return errors.New(errors.ErrCodeMalformedInstructions, "no series of type %q (got %v)", spec.SeriesType, ins.SeriesTypes())
	}

	lit := newLiterals(ds)
	for i, s := range ins.Series() {
		path := fmt.Sprintf("series[%d]", i)
		if err := lit.checkData(s["data"], path+".data", indexSlotsFor(ins.Option, s)); err != nil {
			return err
		}
		if err := lit.check(s["nodes"], path+".nodes"); err != nil {
			return err
		}
		nodes := nodeCount(s, lit.rows)
		for _, key := range []string{"links", "edges"} {
			if err := lit.checkLinks(s[key], path+"."+key, nodes); err != nil {
				return err
			}
		}
	}
	for i, src := range datasetSources(ins.Option) {
		if err := lit.check(src, fmt.Sprintf("dataset[%d].source", i)); err != nil {
			return err
		}
	}
	return nil
}

// datasetSources returns option.dataset.source for both the object and the
// array form of option.dataset.
func datasetSources(opt map[string]any) []any {
	var out []any
	switch d := opt["dataset"].(type) {
	case map[string]any:
		if src, ok := d["source"]; ok {
			out = append(out, src)
		}
	case []any:
		for _, item := range d {
			if m, ok := item.(map[string]any); ok {
				if src, ok := m["source"]; ok {
					out = append(out, src)
				}
			}
		}
	}
	return out
}

// indexSlots lists the tuple positions ECharts reads as category indices.
type indexSlots struct {
	at     [2]bool
	minLen int
}

// indexSlotsFor derives the index positions of s's data tuples. Heatmaps on
// a cartesian grid take [xIndex, yIndex, value]. Other cartesian series take
// an index in the slot of a category axis that declares no names.
func indexSlotsFor(opt, s map[string]any) indexSlots {
	switch cs, _ := s["coordinateSystem"].(string); cs {
	case "", "cartesian2d":
	default:
		return indexSlots{}
	}
	if t, _ := s["type"].(string); strings.EqualFold(t, "heatmap") {
		return indexSlots{at: [2]bool{true, true}, minLen: 3}
	}
	return indexSlots{
		at: [2]bool{
			unnamedCategory(axisFor(opt["xAxis"], s["xAxisIndex"])),
			unnamedCategory(axisFor(opt["yAxis"], s["yAxisIndex"])),
		},
		minLen: 2,
	}
}

func axisFor(axes, index any) map[string]any {
	switch a := axes.(type) {
	case map[string]any:
		return a
	case []any:
		i := 0
		if f, ok := index.(float64); ok {
			i = int(f)
		}
		if i >= 0 && i < len(a) {
			m, _ := a[i].(map[string]any)
			return m
		}
	}
	return nil
}

func unnamedCategory(axis map[string]any) bool {
	if axis == nil {
		return false
	}
	if t, _ := axis["type"].(string); t != "category" {
		return false
	}
	names, _ := axis["data"].([]any)
	return len(names) == 0
}

// nodeCount bounds numeric link endpoints by the declared nodes, or by the
// most nodes the records could name.
func nodeCount(s map[string]any, rows int) int {
	for _, key := range []string{"nodes", "data"} {
		if nodes, ok := s[key].([]any); ok && len(nodes) > 0 {
			return len(nodes)
		}
	}
	return 2 * rows
}

type literals struct {
	numbers map[float64]bool
	strings map[string]bool
	rows    int
}

func newLiterals(ds dataset.Dataset) literals {
	l := literals{numbers: map[float64]bool{}, strings: map[string]bool{}, rows: ds.Len()}
	for _, n := range ds.Numbers() {
		l.numbers[n] = true
	}
	for _, s := range ds.Strings() {
		l.strings[s] = true
	}
	return l
}

func isIndex(v any, n int) bool {
	x, ok := v.(float64)
	return ok && x == math.Trunc(x) && x >= 0 && x < float64(n)
}

// checkData checks a series data array. Tuples, bare or under "value", may
// carry indices in the slots of idx; everything else must be a dataset value.
func (l literals) checkData(v any, path string, idx indexSlots) error {
	items, ok := v.([]any)
	if !ok {
		return l.check(v, path)
	}
	for i, item := range items {
		p := fmt.Sprintf("%s[%d]", path, i)
		switch x := item.(type) {
		case []any:
			if err := l.checkTuple(x, p, idx); err != nil {
				return err
			}
		case map[string]any:
			for k, field := range x {
				var err error
				if t, ok := field.([]any); ok && k == "value" {
					err = l.checkTuple(t, p+".value", idx)
				} else {
					err = l.check(field, p+"."+k)
				}
				if err != nil {
					return err
				}
			}
		default:
			if err := l.check(x, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l literals) checkTuple(t []any, path string, idx indexSlots) error {
	for j, el := range t {
		if j < len(idx.at) && idx.at[j] && len(t) >= idx.minLen && isIndex(el, l.rows) {
			continue
		}
		if err := l.check(el, fmt.Sprintf("%s[%d]", path, j)); err != nil {
			return err
		}
	}
	return nil
}

// checkLinks checks link or edge objects, whose source and target may name a
// node or give its index.
func (l literals) checkLinks(v any, path string, nodes int) error {
	items, ok := v.([]any)
	if !ok {
		return l.check(v, path)
	}
	for i, item := range items {
		p := fmt.Sprintf("%s[%d]", path, i)
		link, ok := item.(map[string]any)
		if !ok {
			if err := l.check(item, p); err != nil {
				return err
			}
			continue
		}
		for k, field := range link {
			if (k == "source" || k == "target") && isIndex(field, nodes) {
				continue
			}
			if err := l.check(field, p+"."+k); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l literals) check(v any, path string) error {
	switch x := v.(type) {
	case float64:
		if l.numbers[x] {
			return nil
		}
		return errors.New(errors.ErrCodeMalformedInstructions, "%s: number %v is not in the dataset", path, x)
	case string:
		if l.strings[x] {
			return nil
		}
		return errors.New(errors.ErrCodeMalformedInstructions, "%s: string %q is not in the dataset", path, x)
	case []any:
		for i, item := range x {
			if err := l.check(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case map[string]any:
		for k, item := range x {
			if err := l.check(item, path+"."+k); err != nil {
				return err
			}
		}
	}
	return nil
}
