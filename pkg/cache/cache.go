// Package cache provides a small key/value cache with pluggable backends.
//
// The generation pipeline caches two things: raw generative responses
// (keyed by model, temperature and prompt) and rasterized images (keyed by
// the checksum of the source document and the target size). Both are
// optional; [NullCache] disables caching entirely.
//
// Backends:
//
//   - [FileCache]: sharded JSON files under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP server and
//     multi-process batches
//   - [NullCache]: never stores anything
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
//
// Get reports a miss with (nil, false, nil); an error is reserved for
// backend failures. A ttl of zero means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys. Implementations must be deterministic.
type Keyer interface {
	// GenerationKey identifies one generative call.
	GenerationKey(model string, temperature float32, prompt string) string
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// GenerationKey hashes the model parameters together with the prompt so that
// a changed prompt or temperature never reuses a stale response.
func (DefaultKeyer) GenerationKey(model string, temperature float32, prompt string) string {
	return hashKey("gen", model, temperature, prompt)
}
