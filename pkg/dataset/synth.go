package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/errors"
)

// MaxRows bounds a single dataset.
const MaxRows = 5000

// Synthesizer generates random datasets that conform to a family's shape.
// The same seed always yields the same datasets in the same order.
//
// A Synthesizer is not safe for concurrent use; create one per job.
type Synthesizer struct {
	rng *rand.Rand
}

// NewSynthesizer returns a synthesizer seeded with seed.
func NewSynthesizer(seed int64) *Synthesizer {
	s := uint64(seed)
	return &Synthesizer{rng: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

// Synthesize builds a dataset with exactly rows records for spec. Zero rows
// selects the family default; negative rows fail with INVALID_INPUT and an
// unknown shape with UNSUPPORTED_SCHEMA.
func (s *Synthesizer) Synthesize(spec catalog.ChartSpec, rows int) (Dataset, error) {
	if err := errors.ValidateRows(rows, MaxRows); err != nil {
		return Dataset{}, err
	}
	if rows == 0 {
		rows = spec.DefaultRows
	}
	if rows <= 0 {
		return Dataset{}, errors.New(errors.ErrCodeInvalidInput, "family %s has no default row count", spec.Family)
	}

	var records []Record
	switch spec.Shape {
	case catalog.ShapeCategorySeries:
		records = s.categorySeries(rows)
	case catalog.ShapePairs:
		records = s.pairs(spec, rows)
	case catalog.ShapeSingleValue:
		records = s.singleValue(spec, rows)
	case catalog.ShapeXY:
		records = s.xy(rows)
	case catalog.ShapeXYZ:
		records = s.xyz(rows)
	case catalog.ShapeMatrix:
		records = s.matrix(rows)
	case catalog.ShapeCalendar:
		records = s.calendar(rows)
	case catalog.ShapeOHLC:
		records = s.ohlc(rows)
	case catalog.ShapeBox:
		records = s.box(rows)
	case catalog.ShapeMultiDimension:
		records = s.multiDimension(rows)
	case catalog.ShapeTree:
		records = s.tree(rows)
	case catalog.ShapeNetwork:
		records = s.network(rows)
	case catalog.ShapeGeo:
		records = s.geo(rows)
	case catalog.ShapeTimeSeries:
		records = s.timeSeries(rows)
	default:
		return Dataset{}, errors.New(errors.ErrCodeUnsupportedSchema, "family %s: unsupported shape %q", spec.Family, spec.Shape)
	}

	return Dataset{
		Family:  spec.Family,
		Shape:   spec.Shape,
		Fields:  spec.Shape.Fields(),
		Records: records,
	}, nil
}

func (s *Synthesizer) categorySeries(n int) []Record {
	labels := s.labels(n, months, quarters, products)
	base := s.between(50, 500)
	out := make([]Record, n)
	for i, l := range labels {
		v := math.Max(0, base*(1+0.08*float64(i)*s.sign())+s.between(-40, 40))
		out[i] = Record{"label": l, "value": round(v, 1)}
	}
	return out
}

func (s *Synthesizer) pairs(spec catalog.ChartSpec, n int) []Record {
	var labels []string
	switch spec.SeriesType {
	case "wordCloud":
		labels = s.labels(n, words)
	case "funnel":
		labels = s.labels(n, funnelStages)
	default:
		labels = s.labels(n, segments, products)
	}

	out := make([]Record, n)
	value := s.between(500, 1000)
	for i, l := range labels {
		v := s.between(10, 100)
		if spec.SeriesType == "funnel" {
			// Stages narrow monotonically.
			value *= s.between(0.55, 0.9)
			v = value
		}
		out[i] = Record{"name": l, "value": round(math.Max(v, 1), 1)}
	}
	return out
}

func (s *Synthesizer) singleValue(spec catalog.ChartSpec, n int) []Record {
	labels := s.labels(n, gauges)
	out := make([]Record, n)
	for i, l := range labels {
		if spec.SeriesType == "liquidFill" {
			out[i] = Record{"name": l, "value": round(s.between(0.2, 0.95), 2)}
			continue
		}
		out[i] = Record{"name": l, "value": round(s.between(10, 98), 1)}
	}
	return out
}

func (s *Synthesizer) xy(n int) []Record {
	slope := s.between(-2, 3)
	intercept := s.between(0, 50)
	out := make([]Record, n)
	for i := range out {
		x := s.between(0, 100)
		y := intercept + slope*x + s.rng.NormFloat64()*15
		out[i] = Record{"x": round(x, 2), "y": round(y, 2)}
	}
	return out
}

// xyz lays points on a near-square grid so surfaces and 3D bars are well
// formed.
func (s *Synthesizer) xyz(n int) []Record {
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	fx, fy := s.between(0.3, 0.9), s.between(0.3, 0.9)
	amp := s.between(5, 20)
	out := make([]Record, n)
	for i := range out {
		x, y := float64(i%cols), float64(i/cols)
		z := amp*(math.Sin(fx*x)+math.Cos(fy*y)) + amp*2 + s.between(-1, 1)
		out[i] = Record{"x": x, "y": y, "z": round(z, 2)}
	}
	return out
}

func (s *Synthesizer) matrix(n int) []Record {
	nx := int(math.Ceil(math.Sqrt(float64(n))))
	ny := (n + nx - 1) / nx
	xs := axisLabels(nx, hours, "X")
	ys := axisLabels(ny, weekdays, "Y")
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{"x": xs[i%nx], "y": ys[i/nx], "value": round(s.between(0, 10), 1)}
	}
	return out
}

func (s *Synthesizer) calendar(n int) []Record {
	start := s.startDate()
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{
			"date":  start.AddDate(0, 0, i).Format(DateLayout),
			"value": round(s.between(0, 1000), 0),
		}
	}
	return out
}

func (s *Synthesizer) ohlc(n int) []Record {
	start := s.startDate()
	price := round(s.between(20, 300), 2)
	out := make([]Record, n)
	for i := range out {
		open := price
		closing := round(math.Max(1, open*(1+s.rng.NormFloat64()*0.02)), 2)
		lo, hi := math.Min(open, closing), math.Max(open, closing)
		low := round(math.Max(0, lo-round(s.between(0, lo*0.02), 2)), 2)
		high := round(hi+round(s.between(0, hi*0.02), 2), 2)
		out[i] = Record{
			"date":  start.AddDate(0, 0, i).Format(DateLayout),
			"open":  open,
			"close": closing,
			"low":   math.Min(low, lo),
			"high":  math.Max(high, hi),
		}
		price = closing
	}
	return out
}

func (s *Synthesizer) box(n int) []Record {
	labels := s.labels(n, products, segments)
	out := make([]Record, n)
	for i, l := range labels {
		v := round(s.between(100, 600), 1)
		q := [5]float64{v}
		for k := 1; k < 5; k++ {
			q[k] = round(q[k-1]+s.between(5, 120), 1)
		}
		out[i] = Record{"label": l, "min": q[0], "q1": q[1], "median": q[2], "q3": q[3], "max": q[4]}
	}
	return out
}

func (s *Synthesizer) multiDimension(n int) []Record {
	labels := s.labels(n, profiles)
	out := make([]Record, n)
	for i, l := range labels {
		r := Record{"name": l}
		for _, d := range catalog.Dimensions {
			r[d] = round(s.between(20, 100), 1)
		}
		out[i] = r
	}
	return out
}

// tree emits records in parent-before-child order: exactly one root with an
// empty parent, every other parent an earlier record.
func (s *Synthesizer) tree(n int) []Record {
	out := make([]Record, n)
	names := make([]string, n)
	for i := range out {
		switch {
		case i == 0:
			names[i] = "Organization"
		case i-1 < len(treeLevels):
			names[i] = treeLevels[i-1]
		default:
			names[i] = fmt.Sprintf("Unit %d", i)
		}
		parent := ""
		if i > 0 {
			// Favor shallow trees: first levels hang off the root.
			if i <= 3 {
				parent = names[0]
			} else {
				parent = names[s.rng.IntN(i)]
			}
		}
		out[i] = Record{"name": names[i], "parent": parent, "value": round(s.between(5, 100), 0)}
	}
	return out
}

// network emits n edges that always point from a lower to a higher node
// index, so the graph is acyclic. The first edges chain every node to an
// earlier one to keep the graph connected.
func (s *Synthesizer) network(n int) []Record {
	nodes := 2
	for nodes*(nodes-1)/2 < n {
		nodes++
	}
	nodes = max(nodes, min(n+1, 3+n/2))
	names := axisLabels(nodes, flowNodes, "Node")

	type edge struct{ a, b int }
	used := map[edge]bool{}
	var edges []edge
	for j := 1; j < nodes && len(edges) < n; j++ {
		e := edge{s.rng.IntN(j), j}
		used[e] = true
		edges = append(edges, e)
	}
	var rest []edge
	for a := 0; a < nodes; a++ {
		for b := a + 1; b < nodes; b++ {
			if !used[edge{a, b}] {
				rest = append(rest, edge{a, b})
			}
		}
	}
	s.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	edges = append(edges, rest[:n-len(edges)]...)

	out := make([]Record, n)
	for i, e := range edges {
		out[i] = Record{"source": names[e.a], "target": names[e.b], "value": round(s.between(1, 50), 0)}
	}
	return out
}

func (s *Synthesizer) geo(n int) []Record {
	perm := s.rng.Perm(len(cities))
	out := make([]Record, n)
	for i := range out {
		var c city
		if i < len(cities) {
			c = cities[perm[i]]
		} else {
			c = city{fmt.Sprintf("Site %d", i+1), round(s.between(-180, 180), 2), round(s.between(-60, 70), 2)}
		}
		out[i] = Record{"name": c.name, "lng": c.lng, "lat": c.lat, "value": round(s.between(10, 500), 0)}
	}
	return out
}

func (s *Synthesizer) timeSeries(n int) []Record {
	k := min(len(streams), max(1, n/8))
	start := s.startDate()
	levels := make([]float64, k)
	for j := range levels {
		levels[j] = s.between(10, 60)
	}
	out := make([]Record, n)
	for i := range out {
		j := i % k
		levels[j] = math.Max(0, levels[j]+s.rng.NormFloat64()*5)
		out[i] = Record{
			"date":   start.AddDate(0, 0, i/k).Format(DateLayout),
			"series": streams[j],
			"value":  round(levels[j], 1),
		}
	}
	return out
}

// labels picks n unique labels from a random pool large enough to hold
// them, numbering "Item N" when no pool is.
func (s *Synthesizer) labels(n int, pools ...[]string) []string {
	var fits [][]string
	for _, p := range pools {
		if len(p) >= n {
			fits = append(fits, p)
		}
	}
	if len(fits) == 0 {
		return axisLabels(n, nil, "Item")
	}
	pool := fits[s.rng.IntN(len(fits))]
	return append([]string(nil), pool[:n]...)
}

// axisLabels returns the first n entries of pool, or prefix-numbered labels
// when the pool is too small.
func axisLabels(n int, pool []string, prefix string) []string {
	if n <= len(pool) {
		return append([]string(nil), pool[:n]...)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %d", prefix, i+1)
	}
	return out
}

func (s *Synthesizer) startDate() time.Time {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, s.rng.IntN(180))
}

func (s *Synthesizer) between(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *Synthesizer) sign() float64 {
	if s.rng.IntN(2) == 0 {
		return -1
	}
	return 1
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
