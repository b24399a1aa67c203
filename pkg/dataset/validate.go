package dataset

import (
	"fmt"
	"math"
	"time"

	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/errors"
)

// DateLayout is the format of every date value.
const DateLayout = "2006-01-02"

// Validate checks that d conforms to its shape: field list, value kinds,
// and the per-shape constraints (unique labels, ordered quartiles, a single
// tree root, acyclic networks and so on). Violations are reported as
// UNSUPPORTED_SCHEMA for unknown shapes and INVALID_INPUT otherwise.
func Validate(d Dataset) error {
	if !d.Shape.Valid() {
		return errors.New(errors.ErrCodeUnsupportedSchema, "unsupported shape %q", d.Shape)
	}
	if len(d.Records) == 0 {
		return invalid("dataset has no records")
	}

	want := d.Shape.Fields()
	if len(d.Fields) != len(want) {
		return invalid("shape %s has %d fields, dataset declares %d", d.Shape, len(want), len(d.Fields))
	}
	for i, f := range want {
		if d.Fields[i] != f {
			return invalid("field %d is %s:%s, want %s:%s", i, d.Fields[i].Name, d.Fields[i].Kind, f.Name, f.Kind)
		}
	}

	for i, r := range d.Records {
		if len(r) != len(want) {
			return invalid("record %d has %d values, want %d", i, len(r), len(want))
		}
		for _, f := range want {
			if err := checkKind(r[f.Name], f); err != nil {
				return invalid("record %d: %v", i, err)
			}
		}
	}

	switch d.Shape {
	case catalog.ShapeCategorySeries:
		return all(unique(d, "label"), nonNegative(d, "value"))
	case catalog.ShapePairs:
		return all(unique(d, "name"), positive(d, "value"))
	case catalog.ShapeSingleValue:
		return all(unique(d, "name"), within(d, "value", 0, 100))
	case catalog.ShapeXY, catalog.ShapeXYZ:
		return nil
	case catalog.ShapeMatrix:
		return all(unique(d, "x", "y"), nonNegative(d, "value"))
	case catalog.ShapeCalendar:
		return all(consecutiveDays(d), nonNegative(d, "value"))
	case catalog.ShapeOHLC:
		return all(unique(d, "date"), ohlcBounds(d))
	case catalog.ShapeBox:
		return all(unique(d, "label"), ordered(d, "min", "q1", "median", "q3", "max"))
	case catalog.ShapeMultiDimension:
		errs := []error{unique(d, "name")}
		for _, dim := range catalog.Dimensions {
			errs = append(errs, within(d, dim, 0, 100))
		}
		return all(errs...)
	case catalog.ShapeTree:
		return all(unique(d, "name"), positive(d, "value"), treeOrder(d))
	case catalog.ShapeNetwork:
		return all(positive(d, "value"), acyclic(d))
	case catalog.ShapeGeo:
		return all(unique(d, "name"), within(d, "lng", -180, 180), within(d, "lat", -90, 90), nonNegative(d, "value"))
	case catalog.ShapeTimeSeries:
		return all(unique(d, "date", "series"), nonNegative(d, "value"))
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidInput, format, args...)
}

func checkKind(v any, f catalog.Field) error {
	switch f.Kind {
	case catalog.KindNumber:
		n, ok := v.(float64)
		if !ok {
			return fmt.Errorf("%s: want number, got %T", f.Name, v)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("%s: not finite", f.Name)
		}
	case catalog.KindString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%s: want string, got %T", f.Name, v)
		}
	case catalog.KindDate:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%s: want date string, got %T", f.Name, v)
		}
		if _, err := time.Parse(DateLayout, s); err != nil {
			return fmt.Errorf("%s: %q is not YYYY-MM-DD", f.Name, s)
		}
	}
	return nil
}

func all(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func unique(d Dataset, fields ...string) error {
	seen := map[string]int{}
	for i, r := range d.Records {
		key := fmt.Sprint(pick(r, fields))
		if j, dup := seen[key]; dup {
			return invalid("records %d and %d share %v = %s", j, i, fields, key)
		}
		seen[key] = i
	}
	return nil
}

func pick(r Record, fields []string) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = r[f]
	}
	return out
}

func nonNegative(d Dataset, field string) error {
	for i := range d.Records {
		if v := d.Number(i, field); v < 0 {
			return invalid("record %d: %s = %v is negative", i, field, v)
		}
	}
	return nil
}

func positive(d Dataset, field string) error {
	for i := range d.Records {
		if v := d.Number(i, field); v <= 0 {
			return invalid("record %d: %s = %v must be positive", i, field, v)
		}
	}
	return nil
}

func within(d Dataset, field string, lo, hi float64) error {
	for i := range d.Records {
		if v := d.Number(i, field); v < lo || v > hi {
			return invalid("record %d: %s = %v outside [%v, %v]", i, field, v, lo, hi)
		}
	}
	return nil
}

func ordered(d Dataset, fields ...string) error {
	for i := range d.Records {
		for k := 1; k < len(fields); k++ {
			if d.Number(i, fields[k-1]) > d.Number(i, fields[k]) {
				return invalid("record %d: %s > %s", i, fields[k-1], fields[k])
			}
		}
	}
	return nil
}

func consecutiveDays(d Dataset) error {
	var prev time.Time
	for i := range d.Records {
		day, _ := time.Parse(DateLayout, d.String(i, "date"))
		if i > 0 && !day.Equal(prev.AddDate(0, 0, 1)) {
			return invalid("record %d: date %s does not follow %s", i, day.Format(DateLayout), prev.Format(DateLayout))
		}
		prev = day
	}
	return nil
}

func ohlcBounds(d Dataset) error {
	for i := range d.Records {
		o, c := d.Number(i, "open"), d.Number(i, "close")
		lo, hi := d.Number(i, "low"), d.Number(i, "high")
		if lo > math.Min(o, c) || hi < math.Max(o, c) || lo > hi {
			return invalid("record %d: low/high %v/%v do not bound open/close %v/%v", i, lo, hi, o, c)
		}
	}
	return nil
}

// treeOrder requires exactly one root and every parent to name an earlier
// record, which rules out cycles.
func treeOrder(d Dataset) error {
	seen := map[string]bool{}
	roots := 0
	for i := range d.Records {
		parent := d.String(i, "parent")
		if parent == "" {
			roots++
		} else if !seen[parent] {
			return invalid("record %d: parent %q does not precede it", i, parent)
		}
		seen[d.String(i, "name")] = true
	}
	if roots != 1 {
		return invalid("tree has %d roots, want 1", roots)
	}
	return nil
}

// acyclic rejects self loops, duplicate links and directed cycles.
func acyclic(d Dataset) error {
	type link struct{ a, b string }
	links := map[link]bool{}
	out := map[string][]string{}
	indeg := map[string]int{}
	for i := range d.Records {
		a, b := d.String(i, "source"), d.String(i, "target")
		if a == b {
			return invalid("record %d: self loop on %q", i, a)
		}
		if links[link{a, b}] {
			return invalid("record %d: duplicate link %s -> %s", i, a, b)
		}
		links[link{a, b}] = true
		out[a] = append(out[a], b)
		indeg[b]++
		if _, ok := indeg[a]; !ok {
			indeg[a] = 0
		}
	}

	var queue []string
	for n, deg := range indeg {
		if deg == 0 {
			queue = append(queue, n)
		}
	}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, m := range out[n] {
			indeg[m]--
			if indeg[m] == 0 {
				queue = append(queue, m)
			}
		}
	}
	if visited != len(indeg) {
		return invalid("network contains a cycle")
	}
	return nil
}
