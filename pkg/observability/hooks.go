// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about chart generation, generative calls,
// cache operations, batch jobs and raster conversions.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The Prometheus implementation lives in internal/metrics and is installed
// by the serve command.
//
// # Usage
//
//	observability.SetPipelineHooks(myHooks)
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnStageComplete(ctx, "render", elapsed, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the single-request generation pipeline.
type PipelineHooks interface {
	// OnStageComplete fires after each stage: select, data, instructions, render.
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)

	// OnRequestComplete fires once per request. source is "ai" or "fallback"
	// and empty when the request failed before instructions were produced.
	OnRequestComplete(ctx context.Context, family, source string, duration time.Duration, err error)
}

// =============================================================================
// Generative Hooks
// =============================================================================

// GenerativeHooks receives events from the generative service boundary.
type GenerativeHooks interface {
	// OnCall records one call to the generative service.
	OnCall(ctx context.Context, model string, duration time.Duration, err error)

	// OnFallback records that the deterministic template replaced AI output.
	OnFallback(ctx context.Context, family, reason string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit. keyType is "gen" or "png".
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Batch Hooks
// =============================================================================

// BatchHooks receives events from the batch coordinator.
type BatchHooks interface {
	// OnJobComplete records a terminal job. status is succeeded, failed or skipped.
	OnJobComplete(ctx context.Context, family, theme, status string, duration time.Duration)
}

// =============================================================================
// Raster Hooks
// =============================================================================

// RasterHooks receives events from the raster converter.
type RasterHooks interface {
	// OnTaskComplete records a terminal conversion task. state is written,
	// failed or skipped.
	OnTaskComplete(ctx context.Context, state string, attempts int, duration time.Duration)

	// OnRetry records a retried browser launch or crash.
	OnRetry(ctx context.Context, attempt int, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error) {}
func (NoopPipelineHooks) OnRequestComplete(context.Context, string, string, time.Duration, error) {
}

// NoopGenerativeHooks is a no-op implementation of GenerativeHooks.
type NoopGenerativeHooks struct{}

func (NoopGenerativeHooks) OnCall(context.Context, string, time.Duration, error) {}
func (NoopGenerativeHooks) OnFallback(context.Context, string, string)           {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopBatchHooks is a no-op implementation of BatchHooks.
type NoopBatchHooks struct{}

func (NoopBatchHooks) OnJobComplete(context.Context, string, string, string, time.Duration) {}

// NoopRasterHooks is a no-op implementation of RasterHooks.
type NoopRasterHooks struct{}

func (NoopRasterHooks) OnTaskComplete(context.Context, string, int, time.Duration) {}
func (NoopRasterHooks) OnRetry(context.Context, int, error)                        {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks   PipelineHooks   = NoopPipelineHooks{}
	generativeHooks GenerativeHooks = NoopGenerativeHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	batchHooks      BatchHooks      = NoopBatchHooks{}
	rasterHooks     RasterHooks     = NoopRasterHooks{}
	hooksMu         sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks. Nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetGenerativeHooks registers custom generative hooks. Nil is ignored.
func SetGenerativeHooks(h GenerativeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		generativeHooks = h
	}
}

// SetCacheHooks registers custom cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetBatchHooks registers custom batch hooks. Nil is ignored.
func SetBatchHooks(h BatchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		batchHooks = h
	}
}

// SetRasterHooks registers custom raster hooks. Nil is ignored.
func SetRasterHooks(h RasterHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		rasterHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Generative returns the registered generative hooks.
func Generative() GenerativeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return generativeHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Batch returns the registered batch hooks.
func Batch() BatchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return batchHooks
}

// Raster returns the registered raster hooks.
func Raster() RasterHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return rasterHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	generativeHooks = NoopGenerativeHooks{}
	cacheHooks = NoopCacheHooks{}
	batchHooks = NoopBatchHooks{}
	rasterHooks = NoopRasterHooks{}
}
