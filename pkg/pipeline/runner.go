package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/dataset"
	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/generative"
	"github.com/matzehuels/chartforge/pkg/instructions"
	"github.com/matzehuels/chartforge/pkg/observability"
	"github.com/matzehuels/chartforge/pkg/render"
)

// Stage names reported to [observability.PipelineHooks].
const (
	StageSelect       = "select"
	StageData         = "data"
	StageInstructions = "instructions"
	StageRender       = "render"
)

// RunnerOptions configures a [Runner].
type RunnerOptions struct {
	// DocumentsRoot is used for requests without an output path.
	DocumentsRoot string
	// Sidecar writes <stem>.json next to every document.
	Sidecar bool
	// Matcher overrides the selector's keyword matcher.
	Matcher catalog.Matcher
	// Generative retry budget; zero values select the defaults.
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
	Logger   *log.Logger
}

// Runner executes the pipeline. It holds no per-request state; multiple
// goroutines can share one Runner.
type Runner struct {
	Catalog       *catalog.Catalog
	Selector      *catalog.Selector
	Instructions  *instructions.Synthesizer
	Renderer      *render.Renderer
	Logger        *log.Logger
	DocumentsRoot string
}

// NewRunner wires the stages over c. A nil gen sends every request down the
// template path.
func NewRunner(c *catalog.Catalog, gen generative.Generator, opts RunnerOptions) *Runner {
	if c == nil {
		c = catalog.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.DocumentsRoot == "" {
		opts.DocumentsRoot = DefaultDocumentsRoot
	}
	return &Runner{
		Catalog:  c,
		Selector: catalog.NewSelector(c, opts.Matcher),
		Instructions: instructions.NewSynthesizer(gen, c, instructions.Options{
			Attempts: opts.Attempts,
			Backoff:  opts.Backoff,
			Timeout:  opts.Timeout,
			Logger:   logger,
		}),
		Renderer:      render.New(c, render.WithSidecar(opts.Sidecar)),
		Logger:        logger,
		DocumentsRoot: opts.DocumentsRoot,
	}
}

// Execute runs select → data → instructions → render for one request.
//
// Generative failures never fail a run; the result then carries
// Source = fallback. Invalid input, an unknown theme, an unsupported shape
// or a render failure are returned as errors.
func (r *Runner) Execute(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	family := ""
	defer func() {
		source := ""
		if res != nil {
			source = string(res.Source)
		}
		observability.Pipeline().OnRequestComplete(ctx, family, source, time.Since(start), err)
	}()

	if err := req.ValidateAndSetDefaults(r.DocumentsRoot); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := r.Logger.With("request", req.ID)

	// Stage 1: Select
	stageStart := time.Now()
	spec := r.Select(req)
	theme, err := r.ResolveTheme(req.Theme, spec)
	r.stageDone(ctx, StageSelect, stageStart, err)
	if err != nil {
		return nil, err
	}
	family = spec.Family
	result := &Result{RequestID: req.ID, Spec: spec, Theme: theme, Seed: req.Seed}
	result.Stats.SelectTime = time.Since(stageStart)

	logger.Debug("selected chart family",
		"family", spec.Family,
		"theme", theme,
		"shape", spec.Shape)

	// Stage 2: Data
	stageStart = time.Now()
	ds, err := dataset.NewSynthesizer(req.Seed).Synthesize(spec, req.Rows)
	r.stageDone(ctx, StageData, stageStart, err)
	if err != nil {
		return nil, err
	}
	result.Dataset = ds
	result.Stats.DataTime = time.Since(stageStart)
	result.Stats.Rows = ds.Len()

	// Stage 3: Instructions
	stageStart = time.Now()
	syn, err := r.Instructions.Synthesize(ctx, spec, ds, theme, TitleFor(req, spec.Family))
	r.stageDone(ctx, StageInstructions, stageStart, err)
	if err != nil {
		return nil, err
	}
	result.Instructions = syn.Instructions
	result.Source = syn.Source
	result.FallbackReason = syn.FallbackReason
	result.Stats.InstructionsTime = time.Since(stageStart)
	result.Stats.GenerativeAttempts = syn.Attempts

	// Stage 4: Render
	stageStart = time.Now()
	art, err := r.Renderer.Render(syn.Instructions, ds, req.Output)
	r.stageDone(ctx, StageRender, stageStart, err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderError, err, "%s/%s -> %s", spec.Family, theme, req.Output)
	}
	art.Source = syn.Source
	result.Artifact = art
	result.Stats.RenderTime = time.Since(stageStart)

	logger.Info("generated chart",
		"family", spec.Family,
		"theme", theme,
		"source", syn.Source,
		"rows", ds.Len(),
		"path", art.Path,
		"duration", result.Stats.Total())

	return result, nil
}

// Select resolves the chart family for req.
func (r *Runner) Select(req Request) catalog.ChartSpec {
	return r.Selector.Select(req.Description, req.ChartType)
}

// ResolveTheme returns the canonical name of the requested theme, or the
// family default when name is empty. Unknown themes are INVALID_INPUT.
func (r *Runner) ResolveTheme(name string, spec catalog.ChartSpec) (string, error) {
	if name == "" {
		name = spec.DefaultTheme
	}
	t, ok := r.Catalog.Theme(name)
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "unknown theme %q", name)
	}
	return t.Name, nil
}

func (r *Runner) stageDone(ctx context.Context, stage string, start time.Time, err error) {
	observability.Pipeline().OnStageComplete(ctx, stage, time.Since(start), err)
}
