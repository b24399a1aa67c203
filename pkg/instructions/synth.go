package instructions

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/dataset"
	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/generative"
	"github.com/matzehuels/chartforge/pkg/observability"
	"github.com/matzehuels/chartforge/pkg/retry"
)

// Default retry budget for generative calls.
const (
	DefaultAttempts = 3
	DefaultBackoff  = time.Second
)

// Options tunes a [Synthesizer]. Zero values select the defaults.
type Options struct {
	Attempts int
	Backoff  time.Duration
	// Timeout bounds each generative call.
	Timeout time.Duration
	Logger  *log.Logger
}

// Result is the outcome of one synthesis.
type Result struct {
	Instructions Instructions
	Source       Source
	// Attempts is the number of generative calls made; zero when no
	// generator is configured.
	Attempts int
	// FallbackReason explains why the template was used. Empty for AI
	// results.
	FallbackReason string
}

// Synthesizer obtains instructions from a generator and falls back to the
// family template whenever the generator is missing, keeps failing, or
// answers with something that does not validate.
type Synthesizer struct {
	gen     generative.Generator
	catalog *catalog.Catalog
	opts    Options
	logger  *log.Logger
}

// NewSynthesizer returns a synthesizer. A nil gen always uses the template.
// The catalog supplies few-shot examples and may be nil.
func NewSynthesizer(gen generative.Generator, c *catalog.Catalog, opts Options) *Synthesizer {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Timeout <= 0 {
		opts.Timeout = generative.DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Synthesizer{gen: gen, catalog: c, opts: opts, logger: logger}
}

// Synthesize produces instructions for spec over ds. The returned family and
// theme always equal spec.Family and theme. It fails only when the shape has
// no template; generative failures never surface as errors.
func (s *Synthesizer) Synthesize(ctx context.Context, spec catalog.ChartSpec, ds dataset.Dataset, theme, title string) (Result, error) {
	if s.gen == nil {
		return s.fallback(ctx, spec, ds, theme, title, 0, "no generative service configured")
	}

	prompt, err := Prompt(s.catalog, spec, ds, theme, title)
	if err != nil {
		return s.fallback(ctx, spec, ds, theme, title, 0, "build prompt: "+err.Error())
	}

	var ins Instructions
	policy := retry.Policy{
		Attempts: s.opts.Attempts,
		Delay:    s.opts.Backoff,
		Retryable: func(err error) bool {
			return errors.Has(err, errors.ErrCodeGenerativeUnavailable)
		},
		OnRetry: func(attempt int, err error, wait time.Duration) {
			s.logger.Debug("generative call failed, retrying",
				"family", spec.Family, "attempt", attempt, "wait", wait, "error", err)
		},
	}
	attempts, err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		got, err := s.generate(ctx, prompt)
		if err == nil {
			err = Validate(got, spec, ds)
		}
		if err != nil {
			if errors.Has(err, errors.ErrCodeMalformedInstructions) {
				s.forget(ctx, prompt)
			}
			return err
		}
		ins = got
		return nil
	})
	if err != nil {
		return s.fallback(ctx, spec, ds, theme, title, attempts, err.Error())
	}

	ins.Family = spec.Family
	ins.Theme = theme
	if title != "" && ins.Title == "" {
		ins.Title = title
	}
	s.logger.Debug("instructions from generative service", "family", spec.Family, "attempts", attempts)
	return Result{Instructions: ins, Source: SourceAI, Attempts: attempts}, nil
}

func (s *Synthesizer) generate(ctx context.Context, prompt string) (Instructions, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeGenerativeUnavailable, err, "generate")
		}
		return Instructions{}, err
	}
	return Parse(text)
}

// forget drops a cached reply that failed validation so the next run asks
// the service again.
func (s *Synthesizer) forget(ctx context.Context, prompt string) {
	if err := generative.Forget(ctx, s.gen, prompt); err != nil {
		s.logger.Debug("drop cached reply", "error", err)
	}
}

func (s *Synthesizer) fallback(ctx context.Context, spec catalog.ChartSpec, ds dataset.Dataset, theme, title string, attempts int, reason string) (Result, error) {
	ins, err := Template(spec, ds, theme, title)
	if err != nil {
		return Result{}, err
	}
	observability.Generative().OnFallback(ctx, spec.Family, reason)
	if attempts > 0 {
		s.logger.Warn("using template instructions", "family", spec.Family, "attempts", attempts, "reason", reason)
	} else {
		s.logger.Debug("using template instructions", "family", spec.Family, "reason", reason)
	}
	return Result{Instructions: ins, Source: SourceFallback, Attempts: attempts, FallbackReason: reason}, nil
}
