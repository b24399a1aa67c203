package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/generative"
	"github.com/matzehuels/chartforge/pkg/instructions"
	"github.com/matzehuels/chartforge/pkg/observability"
)

func TestValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		code errors.Code
	}{
		{"description only", Request{Description: "sales by month"}, ""},
		{"chart type only", Request{ChartType: "Pie"}, ""},
		{"neither", Request{Description: "  "}, errors.ErrCodeInvalidInput},
		{"negative rows", Request{Description: "x", Rows: -1}, errors.ErrCodeInvalidInput},
		{"too many rows", Request{Description: "x", Rows: 1_000_000}, errors.ErrCodeInvalidInput},
		{"control characters", Request{Description: "x\x00y"}, errors.ErrCodeInvalidInput},
		{"bad output", Request{Description: "x", Output: "a\x00b.html"}, errors.ErrCodeInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.ValidateAndSetDefaults("docs")
			if tt.code == "" {
				if err != nil {
					t.Fatalf("ValidateAndSetDefaults() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("ValidateAndSetDefaults() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidateAndSetDefaultsFills(t *testing.T) {
	req := Request{Description: "x"}
	if err := req.ValidateAndSetDefaults("docs"); err != nil {
		t.Fatal(err)
	}
	if req.ID == "" || req.Seed == 0 {
		t.Errorf("ID/Seed not set: %q/%d", req.ID, req.Seed)
	}
	if want := filepath.Join("docs", "chart_"+req.ID+".html"); req.Output != want {
		t.Errorf("Output = %q, want %q", req.Output, want)
	}

	before := req
	if err := req.ValidateAndSetDefaults("elsewhere"); err != nil {
		t.Fatal(err)
	}
	if req.Output != before.Output || req.Seed != before.Seed {
		t.Error("second call changed the request")
	}
}

func TestTitleFor(t *testing.T) {
	tests := []struct {
		req  Request
		want string
	}{
		{Request{Title: " Custom "}, "Custom"},
		{Request{}, "Line chart"},
		{Request{Description: "monthly revenue. Use blue."}, "Monthly revenue"},
		{Request{Description: "a fairly long description of quarterly revenue across every region we operate in"},
			"A fairly long description of quarterly revenue across every…"},
	}
	for _, tt := range tests {
		if got := TitleFor(tt.req, "Line"); got != tt.want {
			t.Errorf("TitleFor(%+v) = %q, want %q", tt.req, got, tt.want)
		}
	}
}

func newRunner(t *testing.T, gen generative.Generator) *Runner {
	t.Helper()
	return NewRunner(catalog.Default(), gen, RunnerOptions{
		DocumentsRoot: t.TempDir(),
		Attempts:      2,
		Backoff:       time.Millisecond,
		Timeout:       time.Second,
	})
}

func TestExecuteWithoutGenerator(t *testing.T) {
	r := newRunner(t, nil)
	res, err := r.Execute(context.Background(), Request{Description: "a sankey of energy flows", Rows: 9, Seed: 5})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Spec.Family != "Sankey" || res.Theme != "light" {
		t.Errorf("family/theme = %s/%s, want Sankey/light", res.Spec.Family, res.Theme)
	}
	if res.Source != instructions.SourceFallback || res.Artifact.Source != instructions.SourceFallback {
		t.Errorf("source = %s/%s, want fallback", res.Source, res.Artifact.Source)
	}
	if res.Dataset.Len() != 9 || res.Stats.Rows != 9 {
		t.Errorf("rows = %d, want 9", res.Dataset.Len())
	}
	if _, err := os.Stat(res.Artifact.Path); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
	if res.Instructions.Title != "A sankey of energy flows" {
		t.Errorf("title = %q", res.Instructions.Title)
	}
}

func TestExecuteFallbackGuarantee(t *testing.T) {
	failing := generative.Func(func(context.Context, string) (string, error) {
		return "", errors.New(errors.ErrCodeGenerativeUnavailable, "offline")
	})
	r := newRunner(t, failing)
	for _, f := range catalog.Default().Families() {
		res, err := r.Execute(context.Background(), Request{Description: "anything", ChartType: f.Name, Seed: 1})
		if err != nil {
			t.Fatalf("Execute(%s) error = %v", f.Name, err)
		}
		if res.Spec.Family != f.Name || res.Source != instructions.SourceFallback {
			t.Errorf("Execute(%s) = %s via %s", f.Name, res.Spec.Family, res.Source)
		}
		if res.Stats.GenerativeAttempts != 2 {
			t.Errorf("Execute(%s) made %d generative attempts, want 2", f.Name, res.Stats.GenerativeAttempts)
		}
		if _, err := os.Stat(res.Artifact.Path); err != nil {
			t.Errorf("Execute(%s) artifact missing: %v", f.Name, err)
		}
	}
}

func TestExecuteAIPath(t *testing.T) {
	var prompts []string
	gen := generative.Func(func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return `{"family":"Gauge","theme":"dark","title":"Load","option":{"series":[{"type":"gauge","min":0,"max":100}]}}`, nil
	})
	r := newRunner(t, gen)
	res, err := r.Execute(context.Background(), Request{Description: "server load", ChartType: "gauge", Theme: "Purple_Passion"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != instructions.SourceAI {
		t.Fatalf("source = %s (%s), want ai", res.Source, res.FallbackReason)
	}
	if res.Theme != "purple-passion" || res.Instructions.Theme != "purple-passion" {
		t.Errorf("theme = %s/%s, want purple-passion", res.Theme, res.Instructions.Theme)
	}
	if len(prompts) != 1 || !strings.Contains(prompts[0], "Gauge") {
		t.Errorf("prompts = %d", len(prompts))
	}
}

func TestExecuteDeterministic(t *testing.T) {
	r := newRunner(t, nil)
	dir := t.TempDir()
	var sums []string
	for i := range 2 {
		res, err := r.Execute(context.Background(), Request{
			Description: "weekly heat map",
			Seed:        99,
			Output:      filepath.Join(dir, "run"+string(rune('a'+i))+".html"),
		})
		if err != nil {
			t.Fatal(err)
		}
		sums = append(sums, res.Artifact.Checksum)
	}
	if sums[0] != sums[1] {
		t.Error("same request and seed produced different documents")
	}
}

func TestExecuteErrors(t *testing.T) {
	r := newRunner(t, nil)

	if _, err := r.Execute(context.Background(), Request{Description: "x", Theme: "neon"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown theme error = %v, want INVALID_INPUT", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Execute(ctx, Request{Description: "x"}); err == nil {
		t.Error("Execute() on a cancelled context succeeded")
	}
}

type recordingHooks struct {
	mu       sync.Mutex
	stages   []string
	families []string
	sources  []string
}

func (h *recordingHooks) OnStageComplete(_ context.Context, stage string, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stages = append(h.stages, stage)
}

func (h *recordingHooks) OnRequestComplete(_ context.Context, family, source string, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.families = append(h.families, family)
	h.sources = append(h.sources, source)
}

func TestExecuteHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	t.Cleanup(observability.Reset)

	if _, err := newRunner(t, nil).Execute(context.Background(), Request{ChartType: "Pie"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{StageSelect, StageData, StageInstructions, StageRender}, hooks.stages); diff != "" {
		t.Errorf("stages (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Pie"}, hooks.families); diff != "" {
		t.Errorf("families (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"fallback"}, hooks.sources); diff != "" {
		t.Errorf("sources (-want +got):\n%s", diff)
	}
}
