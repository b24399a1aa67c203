package generative

import (
	"context"
	"time"

	"github.com/matzehuels/chartforge/pkg/cache"
	"github.com/matzehuels/chartforge/pkg/observability"
)

// CacheOptions configures [NewCached].
type CacheOptions struct {
	Keyer       cache.Keyer
	Model       string
	Temperature float32
	TTL         time.Duration
}

// Cached serves repeated prompts from a cache. Only successful responses are
// stored; cache backend failures degrade to a direct call. Callers that find
// a stored answer unusable drop it with [Forget].
type Cached struct {
	next  Generator
	cache cache.Cache
	opts  CacheOptions
}

// NewCached wraps next with c.
func NewCached(next Generator, c cache.Cache, opts CacheOptions) *Cached {
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	return &Cached{next: next, cache: c, opts: opts}
}

// Generate implements [Generator].
func (c *Cached) Generate(ctx context.Context, prompt string) (string, error) {
	key := c.opts.Keyer.GenerationKey(c.opts.Model, c.opts.Temperature, prompt)

	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		observability.Cache().OnCacheHit(ctx, "gen")
		return string(data), nil
	}
	observability.Cache().OnCacheMiss(ctx, "gen")

	text, err := c.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, []byte(text), c.opts.TTL); err == nil {
		observability.Cache().OnCacheSet(ctx, "gen", len(text))
	}
	return text, nil
}

// Forget implements [Forgetter].
func (c *Cached) Forget(ctx context.Context, prompt string) error {
	return c.cache.Delete(ctx, c.opts.Keyer.GenerationKey(c.opts.Model, c.opts.Temperature, prompt))
}

var (
	_ Generator = (*Cached)(nil)
	_ Forgetter = (*Cached)(nil)
)
