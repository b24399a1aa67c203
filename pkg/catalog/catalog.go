// Package catalog is the knowledge base of chart families and themes.
//
// The catalog ships embedded (catalog.toml) and can be replaced by a file of
// the same name under a catalog root directory. The root may also hold
// gallery examples, one directory per family:
//
//	<root>/catalog.toml
//	<root>/examples/Bar/bar_basic.json
//	<root>/examples/Pie/pie_rosetype.json
//
// Examples are ECharts option documents used as few-shot context for the
// generative service.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed catalog.toml
var embedded []byte

// FileName is the catalog file looked up under a catalog root.
const FileName = "catalog.toml"

// Family is one chart family entry.
type Family struct {
	Name        string   `toml:"name"`
	Shape       Shape    `toml:"shape"`
	SeriesType  string   `toml:"series"`
	DefaultRows int      `toml:"rows"`
	Theme       string   `toml:"theme"`
	Keywords    []string `toml:"keywords"`
	Scripts     []string `toml:"scripts"`
	Description string   `toml:"description"`
}

// Theme is a named visual theme.
type Theme struct {
	Name       string   `toml:"name"`
	Background string   `toml:"background"`
	Text       string   `toml:"text"`
	Palette    []string `toml:"palette"`
}

type file struct {
	DefaultFamily string            `toml:"default_family"`
	DefaultTheme  string            `toml:"default_theme"`
	Scripts       map[string]string `toml:"scripts"`
	Families      []Family          `toml:"family"`
	Themes        []Theme           `toml:"theme"`
}

// Catalog is an immutable, validated set of families and themes. It is safe
// for concurrent use.
type Catalog struct {
	root          string
	defaultFamily string
	defaultTheme  string
	scripts       map[string]string
	families      []Family
	themes        []Theme
	familyIndex   map[string]int
	themeIndex    map[string]int
}

// Load returns the catalog under root, or the embedded catalog when root is
// empty or has no catalog.toml.
func Load(root string) (*Catalog, error) {
	data := embedded
	source := "embedded catalog"
	if root != "" {
		path := filepath.Join(root, FileName)
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			data, source = b, path
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read catalog: %w", err)
		}
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	c.root = root
	return c, nil
}

// Default returns the embedded catalog. It panics if the embedded file is
// invalid, which the package tests rule out.
func Default() *Catalog {
	c, err := Parse(embedded)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	c := &Catalog{
		defaultFamily: f.DefaultFamily,
		defaultTheme:  strings.ToLower(f.DefaultTheme),
		scripts:       f.Scripts,
		families:      f.Families,
		themes:        f.Themes,
		familyIndex:   make(map[string]int, len(f.Families)),
		themeIndex:    make(map[string]int, len(f.Themes)),
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) index() error {
	if len(c.families) == 0 {
		return errors.New("no families")
	}
	if len(c.themes) == 0 {
		return errors.New("no themes")
	}
	if c.scripts["echarts"] == "" {
		return errors.New(`scripts.echarts is required`)
	}

	for i := range c.themes {
		t := &c.themes[i]
		t.Name = strings.ToLower(strings.TrimSpace(t.Name))
		if t.Name == "" {
			return fmt.Errorf("theme %d: empty name", i)
		}
		if _, dup := c.themeIndex[t.Name]; dup {
			return fmt.Errorf("theme %q: duplicate", t.Name)
		}
		if len(t.Palette) == 0 {
			return fmt.Errorf("theme %q: empty palette", t.Name)
		}
		if t.Background == "" || t.Text == "" {
			return fmt.Errorf("theme %q: background and text colors are required", t.Name)
		}
		c.themeIndex[t.Name] = i
	}
	if c.defaultTheme == "" {
		c.defaultTheme = c.themes[0].Name
	}
	if _, ok := c.themeIndex[c.defaultTheme]; !ok {
		return fmt.Errorf("default theme %q not in catalog", c.defaultTheme)
	}

	for i := range c.families {
		f := &c.families[i]
		f.Name = strings.TrimSpace(f.Name)
		key := strings.ToLower(f.Name)
		switch {
		case f.Name == "":
			return fmt.Errorf("family %d: empty name", i)
		case !f.Shape.Valid():
			return fmt.Errorf("family %q: unknown shape %q", f.Name, f.Shape)
		case f.SeriesType == "":
			return fmt.Errorf("family %q: empty series type", f.Name)
		case f.DefaultRows <= 0:
			return fmt.Errorf("family %q: rows must be positive", f.Name)
		}
		if _, dup := c.familyIndex[key]; dup {
			return fmt.Errorf("family %q: duplicate", f.Name)
		}
		f.Theme = strings.ToLower(f.Theme)
		if f.Theme == "" {
			f.Theme = c.defaultTheme
		}
		if _, ok := c.themeIndex[f.Theme]; !ok {
			return fmt.Errorf("family %q: unknown theme %q", f.Name, f.Theme)
		}
		for _, s := range f.Scripts {
			if c.scripts[s] == "" {
				return fmt.Errorf("family %q: unknown script %q", f.Name, s)
			}
		}
		c.familyIndex[key] = i
	}

	if c.defaultFamily == "" {
		c.defaultFamily = c.families[0].Name
	}
	if _, ok := c.familyIndex[strings.ToLower(c.defaultFamily)]; !ok {
		return fmt.Errorf("default family %q not in catalog", c.defaultFamily)
	}
	return nil
}

// Root returns the directory the catalog was loaded from, if any.
func (c *Catalog) Root() string { return c.root }

// Family looks up a family by name, ignoring case.
func (c *Catalog) Family(name string) (Family, bool) {
	i, ok := c.familyIndex[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Family{}, false
	}
	return c.families[i], true
}

// Families returns all families in catalog order.
func (c *Catalog) Families() []Family {
	return append([]Family(nil), c.families...)
}

// FamilyNames returns all family names in catalog order.
func (c *Catalog) FamilyNames() []string {
	names := make([]string, len(c.families))
	for i, f := range c.families {
		names[i] = f.Name
	}
	return names
}

// DefaultFamily returns the family used when nothing else matches.
func (c *Catalog) DefaultFamily() Family {
	f, _ := c.Family(c.defaultFamily)
	return f
}

// Theme looks up a theme by name, ignoring case. Underscores are accepted
// in place of dashes ("purple_passion").
func (c *Catalog) Theme(name string) (Theme, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	i, ok := c.themeIndex[key]
	if !ok {
		return Theme{}, false
	}
	return c.themes[i], true
}

// Themes returns all themes in catalog order.
func (c *Catalog) Themes() []Theme {
	return append([]Theme(nil), c.themes...)
}

// ThemeNames returns all theme names in catalog order.
func (c *Catalog) ThemeNames() []string {
	names := make([]string, len(c.themes))
	for i, t := range c.themes {
		names[i] = t.Name
	}
	return names
}

// DefaultTheme returns the catalog-wide default theme.
func (c *Catalog) DefaultTheme() Theme {
	t, _ := c.Theme(c.defaultTheme)
	return t
}

// Scripts resolves the script URLs a family needs: the core library first,
// then the family's extensions.
func (c *Catalog) Scripts(f Family) []string {
	urls := []string{c.scripts["echarts"]}
	for _, s := range f.Scripts {
		urls = append(urls, c.scripts[s])
	}
	return urls
}

// Example returns a gallery example for the family, preferring files whose
// names mark them as basic. It reports false when the catalog has no root
// or the family has no examples.
func (c *Catalog) Example(family string) ([]byte, bool) {
	f, ok := c.Family(family)
	if !ok || c.root == "" {
		return nil, false
	}
	matches, err := filepath.Glob(filepath.Join(c.root, "examples", f.Name, "*.json"))
	if err != nil || len(matches) == 0 {
		return nil, false
	}
	sort.Strings(matches)

	pick := matches[0]
	for _, hint := range []string{"basic", "simple", "base"} {
		if p, ok := firstContaining(matches, hint); ok {
			pick = p
			break
		}
	}
	data, err := os.ReadFile(pick)
	if err != nil {
		return nil, false
	}
	return data, true
}

func firstContaining(paths []string, hint string) (string, bool) {
	for _, p := range paths {
		if strings.Contains(strings.ToLower(filepath.Base(p)), hint) {
			return p, true
		}
	}
	return "", false
}
