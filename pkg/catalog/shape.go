package catalog

import "strings"

// Shape is the dataset layout a chart family consumes. The set is closed:
// every consumer switches over these values and rejects anything else.
type Shape string

const (
	ShapeCategorySeries Shape = "category_series"
	ShapePairs          Shape = "pairs"
	ShapeSingleValue    Shape = "single_value"
	ShapeXY             Shape = "xy"
	ShapeXYZ            Shape = "xyz"
	ShapeMatrix         Shape = "matrix"
	ShapeCalendar       Shape = "calendar"
	ShapeOHLC           Shape = "ohlc"
	ShapeBox            Shape = "box"
	ShapeMultiDimension Shape = "multi_dimension"
	ShapeTree           Shape = "tree"
	ShapeNetwork        Shape = "network"
	ShapeGeo            Shape = "geo"
	ShapeTimeSeries     Shape = "time_series"
)

// FieldKind is the value type of a dataset field.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindNumber FieldKind = "number"
	// KindDate values are strings formatted as YYYY-MM-DD.
	KindDate FieldKind = "date"
)

// Field is one column of a dataset.
type Field struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
}

// Dimensions are the measure names used by [ShapeMultiDimension].
var Dimensions = []string{"d1", "d2", "d3", "d4", "d5", "d6"}

var shapeFields = map[Shape][]Field{
	ShapeCategorySeries: {{"label", KindString}, {"value", KindNumber}},
	ShapePairs:          {{"name", KindString}, {"value", KindNumber}},
	ShapeSingleValue:    {{"name", KindString}, {"value", KindNumber}},
	ShapeXY:             {{"x", KindNumber}, {"y", KindNumber}},
	ShapeXYZ:            {{"x", KindNumber}, {"y", KindNumber}, {"z", KindNumber}},
	ShapeMatrix:         {{"x", KindString}, {"y", KindString}, {"value", KindNumber}},
	ShapeCalendar:       {{"date", KindDate}, {"value", KindNumber}},
	ShapeOHLC: {
		{"date", KindDate}, {"open", KindNumber}, {"close", KindNumber},
		{"low", KindNumber}, {"high", KindNumber},
	},
	ShapeBox: {
		{"label", KindString}, {"min", KindNumber}, {"q1", KindNumber},
		{"median", KindNumber}, {"q3", KindNumber}, {"max", KindNumber},
	},
	ShapeMultiDimension: {
		{"name", KindString}, {"d1", KindNumber}, {"d2", KindNumber}, {"d3", KindNumber},
		{"d4", KindNumber}, {"d5", KindNumber}, {"d6", KindNumber},
	},
	ShapeTree:       {{"name", KindString}, {"parent", KindString}, {"value", KindNumber}},
	ShapeNetwork:    {{"source", KindString}, {"target", KindString}, {"value", KindNumber}},
	ShapeGeo:        {{"name", KindString}, {"lng", KindNumber}, {"lat", KindNumber}, {"value", KindNumber}},
	ShapeTimeSeries: {{"date", KindDate}, {"series", KindString}, {"value", KindNumber}},
}

// Shapes returns every known shape in declaration order.
func Shapes() []Shape {
	return []Shape{
		ShapeCategorySeries, ShapePairs, ShapeSingleValue, ShapeXY, ShapeXYZ,
		ShapeMatrix, ShapeCalendar, ShapeOHLC, ShapeBox, ShapeMultiDimension,
		ShapeTree, ShapeNetwork, ShapeGeo, ShapeTimeSeries,
	}
}

// Valid reports whether s is a known shape.
func (s Shape) Valid() bool {
	_, ok := shapeFields[s]
	return ok
}

// Fields returns the ordered field list of the shape, or nil for an unknown
// shape. The slice is a copy.
func (s Shape) Fields() []Field {
	fields, ok := shapeFields[s]
	if !ok {
		return nil
	}
	return append([]Field(nil), fields...)
}

// ParseShape converts a name such as "category_series" or "category-series".
func ParseShape(name string) (Shape, bool) {
	s := Shape(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	return s, s.Valid()
}
