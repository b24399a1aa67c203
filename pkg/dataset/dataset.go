// Package dataset models the tabular data behind a chart and synthesizes it.
//
// A [Dataset] is a list of records whose fields are fixed by the family's
// [catalog.Shape]. Values are either strings (labels, names and YYYY-MM-DD
// dates) or float64 numbers; nothing else ever appears in a record.
package dataset

import (
	"encoding/json"
	"sort"

	"github.com/matzehuels/chartforge/pkg/catalog"
)

// Record is one row, keyed by field name.
type Record map[string]any

// Dataset is the synthesized data for one chart.
type Dataset struct {
	Family  string          `json:"family"`
	Shape   catalog.Shape   `json:"shape"`
	Fields  []catalog.Field `json:"fields"`
	Records []Record        `json:"records"`
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.Records) }

// String returns the string value of field in record i, or "".
func (d Dataset) String(i int, field string) string {
	s, _ := d.Records[i][field].(string)
	return s
}

// Number returns the numeric value of field in record i, or 0.
func (d Dataset) Number(i int, field string) float64 {
	f, _ := d.Records[i][field].(float64)
	return f
}

// Column returns the values of one field in record order.
func (d Dataset) Column(field string) []any {
	out := make([]any, len(d.Records))
	for i, r := range d.Records {
		out[i] = r[field]
	}
	return out
}

// Distinct returns the distinct string values of a field in first-seen
// order.
func (d Dataset) Distinct(field string) []string {
	seen := map[string]bool{}
	var out []string
	for i := range d.Records {
		s := d.String(i, field)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Numbers returns every numeric literal in the dataset, sorted and
// deduplicated.
func (d Dataset) Numbers() []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, r := range d.Records {
		for _, v := range r {
			if f, ok := v.(float64); ok && !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Float64s(out)
	return out
}

// Strings returns every string literal in the dataset, sorted and
// deduplicated.
func (d Dataset) Strings() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range d.Records {
		for _, v := range r {
			if s, ok := v.(string); ok && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Rows returns the records as arrays in field order, the layout ECharts
// expects for dataset.source.
func (d Dataset) Rows() [][]any {
	out := make([][]any, len(d.Records))
	for i, r := range d.Records {
		row := make([]any, len(d.Fields))
		for j, f := range d.Fields {
			row[j] = r[f.Name]
		}
		out[i] = row
	}
	return out
}

// MarshalIndent renders the dataset as indented JSON.
func (d Dataset) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
