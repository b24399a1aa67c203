package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	if got := len(c.Families()); got != 40 {
		t.Errorf("len(Families()) = %d, want 40", got)
	}
	wantThemes := []string{
		"light", "dark", "white", "chalk", "essos", "infographic", "macarons",
		"purple-passion", "roma", "romantic", "shine", "vintage", "walden",
		"westeros", "wonderland", "halloween",
	}
	if diff := cmp.Diff(wantThemes, c.ThemeNames()); diff != "" {
		t.Errorf("ThemeNames() mismatch (-want +got):\n%s", diff)
	}
	if c.DefaultFamily().Name != "Line" {
		t.Errorf("DefaultFamily() = %q, want Line", c.DefaultFamily().Name)
	}

	shapes := map[Shape]bool{}
	for _, f := range c.Families() {
		shapes[f.Shape] = true
	}
	for _, s := range Shapes() {
		if !shapes[s] {
			t.Errorf("no family uses shape %q", s)
		}
	}
}

func TestFamilyLookup(t *testing.T) {
	c := Default()

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"Bar", "Bar", true},
		{"bar", "Bar", true},
		{" HEATMAP ", "HeatMap", true},
		{"effectscatter", "EffectScatter", true},
		{"Spiral", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		f, ok := c.Family(tt.name)
		if ok != tt.wantOK || f.Name != tt.want {
			t.Errorf("Family(%q) = %q, %v; want %q, %v", tt.name, f.Name, ok, tt.want, tt.wantOK)
		}
	}
}

func TestThemeLookup(t *testing.T) {
	c := Default()
	for _, name := range []string{"dark", "DARK", "purple-passion", "purple_passion", "PURPLE_PASSION"} {
		if _, ok := c.Theme(name); !ok {
			t.Errorf("Theme(%q) not found", name)
		}
	}
	if _, ok := c.Theme("neon"); ok {
		t.Error("Theme(neon) found")
	}
}

func TestScripts(t *testing.T) {
	c := Default()

	bar, _ := c.Family("Bar")
	if got := c.Scripts(bar); len(got) != 1 || !strings.Contains(got[0], "echarts.min.js") {
		t.Errorf("Scripts(Bar) = %v", got)
	}

	wc, _ := c.Family("WordCloud")
	got := c.Scripts(wc)
	if len(got) != 2 || !strings.Contains(got[1], "wordcloud") {
		t.Errorf("Scripts(WordCloud) = %v", got)
	}
}

func TestLoadOverride(t *testing.T) {
	root := t.TempDir()
	doc := `
default_family = "Donut"
[scripts]
echarts = "echarts.js"
[[family]]
name = "Donut"
shape = "pairs"
series = "pie"
rows = 4
[[theme]]
name = "mono"
background = "#000"
text = "#fff"
palette = ["#fff"]
`
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.FamilyNames(); len(got) != 1 || got[0] != "Donut" {
		t.Errorf("FamilyNames() = %v", got)
	}
	f, _ := c.Family("donut")
	if f.Theme != "mono" {
		t.Errorf("family theme = %q, want catalog default mono", f.Theme)
	}
}

func TestLoadMissingRootFallsBack(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(c.Families()) != 40 {
		t.Errorf("expected embedded catalog")
	}
}

func TestParseInvalid(t *testing.T) {
	base := `
[scripts]
echarts = "e.js"
[[theme]]
name = "t"
background = "#fff"
text = "#000"
palette = ["#111"]
`
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad toml", "[[family", "decode"},
		{"no families", base, "no families"},
		{"unknown shape", base + "[[family]]\nname=\"X\"\nshape=\"spiral\"\nseries=\"x\"\nrows=1\n", "unknown shape"},
		{"zero rows", base + "[[family]]\nname=\"X\"\nshape=\"pairs\"\nseries=\"pie\"\nrows=0\n", "rows"},
		{"empty series", base + "[[family]]\nname=\"X\"\nshape=\"pairs\"\nrows=1\n", "series"},
		{"duplicate", base + "[[family]]\nname=\"X\"\nshape=\"pairs\"\nseries=\"pie\"\nrows=1\n[[family]]\nname=\"x\"\nshape=\"pairs\"\nseries=\"pie\"\nrows=1\n", "duplicate"},
		{"unknown script", base + "[[family]]\nname=\"X\"\nshape=\"pairs\"\nseries=\"pie\"\nrows=1\nscripts=[\"gl\"]\n", "unknown script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestExample(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "examples", "Bar")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, body := range map[string]string{
		"a_stacked.json": `{"k":"stacked"}`,
		"bar_basic.json": `{"k":"basic"}`,
		"notes.txt":      "ignored",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	c, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := c.Example("bar")
	if !ok || string(got) != `{"k":"basic"}` {
		t.Errorf("Example(bar) = %s, %v; want basic example", got, ok)
	}
	if _, ok := c.Example("Pie"); ok {
		t.Error("Example(Pie) found without files")
	}
	if _, ok := Default().Example("Bar"); ok {
		t.Error("Example on rootless catalog should report false")
	}
}

func TestShapeFields(t *testing.T) {
	for _, s := range Shapes() {
		if len(s.Fields()) == 0 {
			t.Errorf("%s has no fields", s)
		}
	}
	if Shape("spiral").Fields() != nil {
		t.Error("unknown shape returned fields")
	}
	if s, ok := ParseShape("Category-Series"); !ok || s != ShapeCategorySeries {
		t.Errorf("ParseShape = %q, %v", s, ok)
	}
}
