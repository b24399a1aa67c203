package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/chartforge/pkg/batch"
	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/instructions"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a much longer sentence", 8, "a much…"},
		{"überlänge", 5, "über…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestStatsLine(t *testing.T) {
	line := statsLine(12, instructions.SourceFallback, 3, 1500*time.Millisecond)
	for _, want := range []string{"12 rows", "3 attempts", "1.5s", "fallback"} {
		if !strings.Contains(line, want) {
			t.Errorf("statsLine() = %q, missing %q", line, want)
		}
	}
	if strings.Contains(statsLine(5, instructions.SourceFallback, 0, time.Second), "attempts") {
		t.Error("zero attempts should be omitted")
	}
}

func TestSummaryTable(t *testing.T) {
	s := &batch.Summary{Jobs: []batch.JobResult{
		{Job: batch.Job{Family: "Line"}, Status: batch.StatusSucceeded, Source: instructions.SourceFallback},
		{Job: batch.Job{Family: "Line"}, Status: batch.StatusFailed},
		{Job: batch.Job{Family: "Pie"}, Status: batch.StatusSucceeded, Source: instructions.SourceAI},
		{Job: batch.Job{Family: "Pie"}, Status: batch.StatusSkipped},
	}}
	out := summaryTable(s)
	if strings.Index(out, "Line") > strings.Index(out, "Pie") {
		t.Error("families should keep summary order")
	}
	for _, want := range []string{"Family", "Fallback", "Line", "Pie"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary table missing %q:\n%s", want, out)
		}
	}
}

func TestCatalogTables(t *testing.T) {
	cat := catalog.Default()

	all := familiesTable(cat, "")
	for _, name := range cat.FamilyNames() {
		if !strings.Contains(all, name) {
			t.Errorf("families table missing %s", name)
		}
	}

	trees := familiesTable(cat, catalog.ShapeTree)
	for _, name := range []string{"Tree", "Treemap", "Sunburst"} {
		if !strings.Contains(trees, name) {
			t.Errorf("tree table missing %s", name)
		}
	}
	for _, name := range []string{"Candlestick", "Gauge"} {
		if strings.Contains(trees, name) {
			t.Errorf("tree table lists %s", name)
		}
	}

	themes := themesTable(cat)
	for _, name := range cat.ThemeNames() {
		if !strings.Contains(themes, name) {
			t.Errorf("themes table missing %s", name)
		}
	}
}
