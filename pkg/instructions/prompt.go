package instructions

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/dataset"
)

// exampleRows is the size of the sample dataset behind a synthesized
// few-shot example.
const exampleRows = 7

var promptTemplate = template.Must(template.New("prompt").Parse(`You write Apache ECharts option objects.

Produce the option for a {{.Family}} chart (ECharts series type "{{.SeriesType}}").
{{- if .Description}}
About this chart family: {{.Description}}
{{- end}}
Title: {{.Title}}
Theme: {{.Theme}} (registered by the page; do not set colors or backgroundColor)

The data has shape "{{.Shape}}" with fields {{.FieldList}}.
Use every record below and no other values. Do not invent, round or rescale
numbers. Refer to categories by the exact strings given. Integer indices into
the record list are allowed.

DATA:
{{.Data}}

EXAMPLE OPTION for a {{.Family}} chart (different data):
{{.Example}}

Answer with one JSON object and nothing else:
{"family": "{{.Family}}", "theme": "{{.Theme}}", "title": "<title>", "option": {...}}
The option must contain a "series" array with at least one series of type "{{.SeriesType}}".
`))

type promptData struct {
	Family      string
	SeriesType  string
	Description string
	Shape       catalog.Shape
	FieldList   string
	Theme       string
	Title       string
	Data        string
	Example     string
}

// Prompt builds the generative request for one chart. The example is the
// first gallery example for the family when the catalog has one, otherwise
// the family template drawn over a small synthetic dataset.
func Prompt(c *catalog.Catalog, spec catalog.ChartSpec, ds dataset.Dataset, theme, title string) (string, error) {
	data, err := ds.MarshalIndent()
	if err != nil {
		return "", err
	}

	example, err := promptExample(c, spec, theme)
	if err != nil {
		return "", err
	}

	fields := make([]string, len(ds.Fields))
	for i, f := range ds.Fields {
		fields[i] = f.Name + " (" + string(f.Kind) + ")"
	}
	if title == "" {
		title = spec.Family + " chart"
	}

	var buf bytes.Buffer
	err = promptTemplate.Execute(&buf, promptData{
		Family:      spec.Family,
		SeriesType:  spec.SeriesType,
		Description: spec.Description,
		Shape:       spec.Shape,
		FieldList:   strings.Join(fields, ", "),
		Theme:       theme,
		Title:       title,
		Data:        string(data),
		Example:     example,
	})
	return buf.String(), err
}

func promptExample(c *catalog.Catalog, spec catalog.ChartSpec, theme string) (string, error) {
	if c != nil {
		if raw, ok := c.Example(spec.Family); ok {
			return string(bytes.TrimSpace(raw)), nil
		}
	}

	sample, err := dataset.NewSynthesizer(1).Synthesize(spec, min(spec.DefaultRows, exampleRows))
	if err != nil {
		return "", err
	}
	ins, err := Template(spec, sample, theme, "")
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(ins.Option, "", "  ")
	return string(out), err
}
