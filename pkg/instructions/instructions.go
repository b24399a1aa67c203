// Package instructions produces the rendering instructions for a chart: an
// ECharts option wrapped with the family, theme and title it was made for.
//
// Instructions come from one of two sources. The generative service is asked
// first; its answer is parsed, validated against the dataset and accepted
// only if it references nothing but dataset values. Otherwise a
// deterministic template for the family's shape is used. Either way the
// caller always receives usable instructions.
package instructions

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/matzehuels/chartforge/pkg/errors"
)

// Source tells where instructions came from.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Instructions is the self-contained description of one chart.
type Instructions struct {
	Family string         `json:"family"`
	Theme  string         `json:"theme"`
	Title  string         `json:"title"`
	Option map[string]any `json:"option"`
}

// Series returns option.series as a list of objects, skipping anything
// malformed.
func (ins Instructions) Series() []map[string]any {
	raw, _ := ins.Option["series"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, s := range raw {
		if m, ok := s.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// SeriesTypes returns the type of every series in order.
func (ins Instructions) SeriesTypes() []string {
	var out []string
	for _, s := range ins.Series() {
		if t, ok := s["type"].(string); ok {
			out = append(out, t)
		}
	}
	return out
}

// Parse decodes generative output into Instructions. Markdown code fences
// and prose around the JSON object are tolerated. Anything else fails with
// MALFORMED_INSTRUCTIONS.
func Parse(text string) (Instructions, error) {
	body := extractJSON(text)
	if body == "" {
		return Instructions{}, errors.New(errors.ErrCodeMalformedInstructions, "response contains no JSON object")
	}

	dec := json.NewDecoder(strings.NewReader(body))
	var ins Instructions
	if err := dec.Decode(&ins); err != nil {
		return Instructions{}, errors.Wrap(errors.ErrCodeMalformedInstructions, err, "decode instructions")
	}
	if ins.Option == nil {
		return Instructions{}, errors.New(errors.ErrCodeMalformedInstructions, "instructions have no option")
	}
	return normalize(ins)
}

// normalize round-trips the option through JSON so every value is one of
// the types encoding/json produces (map[string]any, []any, float64, string,
// bool, nil). Templates build options from typed Go slices; validation and
// hashing rely on the canonical form.
func normalize(ins Instructions) (Instructions, error) {
	data, err := json.Marshal(ins.Option)
	if err != nil {
		return Instructions{}, errors.Wrap(errors.ErrCodeMalformedInstructions, err, "encode option")
	}
	var opt map[string]any
	if err := json.Unmarshal(data, &opt); err != nil {
		return Instructions{}, errors.Wrap(errors.ErrCodeMalformedInstructions, err, "decode option")
	}
	ins.Option = opt
	return ins, nil
}

// extractJSON strips code fences and returns the outermost {...} span.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

// MarshalIndent renders instructions as indented JSON with HTML escaping
// disabled, matching what is embedded in documents.
func (ins Instructions) MarshalIndent() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ins); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
