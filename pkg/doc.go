// Package pkg holds the chartforge libraries.
//
// A request flows through four stages:
//
//	description (+ optional family, theme, rows)
//	         ↓
//	    [catalog] selector: family, dataset shape, scripts
//	         ↓
//	    [dataset] synthesizer: seeded records of that shape
//	         ↓
//	    [instructions] synthesizer: generative model, or template fallback
//	         ↓
//	    [render]: self-contained HTML document (+ JSON sidecar)
//
// [pipeline] wires the stages for one request; [batch] runs the pipeline
// over families × themes × variations; [raster] turns documents into PNGs
// with a headless browser.
//
// Supporting packages: [config] (viper + .env), [cache] (file, Redis),
// [generative] (genai client, cache and concurrency decorators), [errors]
// (coded errors), [retry], [fsutil] (atomic writes), [observability] (hook
// registry) and [buildinfo].
package pkg
