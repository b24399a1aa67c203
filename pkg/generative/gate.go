package generative

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/matzehuels/chartforge/pkg/errors"
)

// Gate limits how many calls reach the wrapped generator at once. One Gate
// is shared by every job of a batch.
type Gate struct {
	next Generator
	sem  *semaphore.Weighted
}

// NewGate allows at most n concurrent calls. n below 1 is treated as 1.
func NewGate(next Generator, n int) *Gate {
	return &Gate{next: next, sem: semaphore.NewWeighted(int64(max(n, 1)))}
}

// Generate waits for a slot, then delegates. A context that ends while
// waiting is reported as GENERATIVE_UNAVAILABLE.
func (g *Gate) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", errors.Wrap(errors.ErrCodeGenerativeUnavailable, err, "wait for generative slot")
	}
	defer g.sem.Release(1)
	return g.next.Generate(ctx, prompt)
}

// Forget passes through to the wrapped generator.
func (g *Gate) Forget(ctx context.Context, prompt string) error {
	return Forget(ctx, g.next, prompt)
}

var (
	_ Generator = (*Gate)(nil)
	_ Forgetter = (*Gate)(nil)
)
