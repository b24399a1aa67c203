package render

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/dataset"
	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/fsutil"
	"github.com/matzehuels/chartforge/pkg/instructions"
)

// Default document size in CSS pixels.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Generator is written to the generator meta tag of every document so
// other tools can recognise chartforge output.
const Generator = "chartforge"

// Artifact describes a document written to disk.
type Artifact struct {
	Path   string              `json:"path"`
	Family string              `json:"family"`
	Theme  string              `json:"theme"`
	Source instructions.Source `json:"source,omitempty"`
	// Checksum is the hex SHA-256 of the document bytes.
	Checksum string `json:"checksum"`
	Size     int    `json:"size"`
	// Sidecar is the path of the instructions+dataset file, if written.
	Sidecar string `json:"sidecar,omitempty"`
}

// Option configures a [Renderer].
type Option func(*Renderer)

// WithSidecar writes <stem>.json next to each document, holding the
// instructions and dataset it was rendered from.
func WithSidecar(enabled bool) Option {
	return func(r *Renderer) { r.sidecar = enabled }
}

// WithSize overrides the chart container size.
func WithSize(width, height int) Option {
	return func(r *Renderer) {
		if width > 0 && height > 0 {
			r.width, r.height = width, height
		}
	}
}

// Renderer executes instructions against the catalog it was built with.
// It holds no mutable state and is safe for concurrent use.
type Renderer struct {
	catalog *catalog.Catalog
	width   int
	height  int
	sidecar bool
}

// New returns a renderer for c.
func New(c *catalog.Catalog, opts ...Option) *Renderer {
	r := &Renderer{catalog: c, width: DefaultWidth, height: DefaultHeight}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type page struct {
	Generator  string
	Title      string
	Family     string
	ThemeName  string
	Background string
	Text       string
	Width      int
	Height     int
	Scripts    []string
	Theme      template.JS
	Option     template.JS
	Dataset    template.JS
}

// Document renders the HTML bytes without writing them.
//
// It fails with RENDER_ERROR when the family or theme is not in the
// catalog, when the dataset belongs to another family, or when the option
// cannot be encoded.
func (r *Renderer) Document(ins instructions.Instructions, ds dataset.Dataset) ([]byte, error) {
	f, ok := r.catalog.Family(ins.Family)
	if !ok {
		return nil, errors.New(errors.ErrCodeRenderError, "family %q is not in the catalog", ins.Family)
	}
	theme, ok := r.catalog.Theme(ins.Theme)
	if !ok {
		return nil, errors.New(errors.ErrCodeRenderError, "theme %q is not in the catalog", ins.Theme)
	}
	if !strings.EqualFold(ds.Family, f.Name) {
		return nil, errors.New(errors.ErrCodeRenderError, "dataset is for %q, instructions for %q", ds.Family, f.Name)
	}
	if len(ins.Series()) == 0 {
		return nil, errors.New(errors.ErrCodeRenderError, "%s instructions have no series", f.Name)
	}

	option, err := scriptJSON(ins.Option)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderError, err, "encode %s option", f.Name)
	}
	data, err := scriptJSON(ds)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderError, err, "encode %s dataset", f.Name)
	}
	themeJS, err := scriptJSON(themeObject(theme))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderError, err, "encode theme %s", theme.Name)
	}

	title := ins.Title
	if title == "" {
		title = f.Name + " chart"
	}

	var buf bytes.Buffer
	err = documentTemplate.Execute(&buf, page{
		Generator:  Generator,
		Title:      title,
		Family:     f.Name,
		ThemeName:  theme.Name,
		Background: theme.Background,
		Text:       theme.Text,
		Width:      r.width,
		Height:     r.height,
		Scripts:    r.catalog.Scripts(f),
		Theme:      themeJS,
		Option:     option,
		Dataset:    data,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderError, err, "execute %s document", f.Name)
	}
	return buf.Bytes(), nil
}

// Render writes the document for ins to path and returns its [Artifact].
// The file is replaced atomically; readers never see a partial document.
func (r *Renderer) Render(ins instructions.Instructions, ds dataset.Dataset, path string) (Artifact, error) {
	if path == "" {
		return Artifact{}, errors.New(errors.ErrCodeRenderError, "no output path for %s", ins.Family)
	}
	doc, err := r.Document(ins, ds)
	if err != nil {
		return Artifact{}, err
	}
	if err := fsutil.WriteFileAtomic(path, doc, 0o644); err != nil {
		return Artifact{}, errors.Wrap(errors.ErrCodeRenderError, err, "write %s", path)
	}

	sum := sha256.Sum256(doc)
	art := Artifact{
		Path:     path,
		Family:   ins.Family,
		Theme:    ins.Theme,
		Checksum: hex.EncodeToString(sum[:]),
		Size:     len(doc),
	}
	if f, ok := r.catalog.Family(ins.Family); ok {
		art.Family = f.Name
	}
	if t, ok := r.catalog.Theme(ins.Theme); ok {
		art.Theme = t.Name
	}

	if r.sidecar {
		side := SidecarPath(path)
		if err := writeSidecar(side, ins, ds); err != nil {
			return Artifact{}, errors.Wrap(errors.ErrCodeRenderError, err, "write %s", side)
		}
		art.Sidecar = side
	}
	return art, nil
}

// SidecarPath returns <dir>/<stem>.json for a document path.
func SidecarPath(doc string) string {
	return strings.TrimSuffix(doc, filepath.Ext(doc)) + ".json"
}

// Sidecar is the content of a sidecar file.
type Sidecar struct {
	Instructions instructions.Instructions `json:"instructions"`
	Dataset      dataset.Dataset           `json:"dataset"`
}

func writeSidecar(path string, ins instructions.Instructions, ds dataset.Dataset) error {
	data, err := json.MarshalIndent(Sidecar{Instructions: ins, Dataset: ds}, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// scriptJSON encodes v for inclusion in a <script> element. HTML escaping
// stays on so "</script>" inside a string cannot end the element.
func scriptJSON(v any) (template.JS, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return "", err
	}
	return template.JS(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func themeObject(t catalog.Theme) map[string]any {
	text := map[string]any{"color": t.Text}
	axis := map[string]any{
		"axisLine":  map[string]any{"lineStyle": map[string]any{"color": t.Text}},
		"axisLabel": map[string]any{"color": t.Text},
	}
	return map[string]any{
		"color":           t.Palette,
		"backgroundColor": t.Background,
		"textStyle":       text,
		"title":           map[string]any{"textStyle": text, "subtextStyle": text},
		"legend":          map[string]any{"textStyle": text},
		"categoryAxis":    axis,
		"valueAxis":       axis,
		"timeAxis":        axis,
	}
}
