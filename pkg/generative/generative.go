// Package generative is the boundary to the external text generation
// service.
//
// Everything above this package sees a [Generator]: prompt in, text out.
// Transport failures, timeouts and empty answers are all reported as
// GENERATIVE_UNAVAILABLE so callers can retry them uniformly. Decorators add
// a process-wide concurrency limit ([Gate]) and response caching ([Cached]).
package generative

import (
	"context"
	"time"

	"github.com/matzehuels/chartforge/pkg/cache"
	"github.com/matzehuels/chartforge/pkg/config"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Forgetter is implemented by generators that remember answers.
type Forgetter interface {
	// Forget drops the stored answer for prompt.
	Forget(ctx context.Context, prompt string) error
}

// Forget drops g's stored answer for prompt. Generators that store nothing
// ignore it.
func Forget(ctx context.Context, g Generator, prompt string) error {
	if f, ok := g.(Forgetter); ok {
		return f.Forget(ctx, prompt)
	}
	return nil
}

// Func adapts a function to [Generator].
type Func func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// New builds the production generator stack from cfg: the genai client,
// wrapped in a response cache (when c is non-nil) and a concurrency gate.
//
// New returns a nil Generator and no error when cfg has no credential. The
// instruction synthesizer treats a nil generator as "always use the
// template".
func New(ctx context.Context, cfg *config.Config, c cache.Cache) (Generator, error) {
	if !cfg.HasCredential() {
		return nil, nil
	}

	client, err := NewGenAI(ctx, Options{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}

	var g Generator = client
	if c != nil {
		keyer := cache.NewDefaultKeyer()
		if cfg.CachePrefix != "" {
			keyer = cache.NewScopedKeyer(keyer, cfg.CachePrefix)
		}
		g = NewCached(g, c, CacheOptions{
			Keyer:       keyer,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			TTL:         cfg.CacheTTL,
		})
	}
	return NewGate(g, cfg.GenerativeConcurrency), nil
}

// DefaultTimeout bounds one call when the caller sets no deadline.
const DefaultTimeout = 30 * time.Second
