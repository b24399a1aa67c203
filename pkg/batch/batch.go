// Package batch drives the pipeline over a Cartesian product of chart
// families, themes and variations.
//
// Every combination becomes one [Job] with a precomputed, collision-free
// output path and a seed derived from the combination, so reruns produce
// the same datasets. Jobs run on a bounded worker pool. A failing or
// panicking job is recorded in the [Summary] and never stops its siblings;
// cancelling the context stops scheduling and marks the remaining jobs as
// skipped.
package batch

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/instructions"
	"github.com/matzehuels/chartforge/pkg/observability"
	"github.com/matzehuels/chartforge/pkg/pipeline"
)

// Defaults for [Options].
const (
	DefaultVariations  = 4
	DefaultParallelism = 4
	DefaultOutputDir   = pipeline.DefaultDocumentsRoot
)

// DefaultTopics seed the descriptions of batch jobs.
var DefaultTopics = []string{
	"monthly revenue",
	"website traffic",
	"energy consumption",
	"customer satisfaction",
	"regional sales",
	"server response times",
	"inventory levels",
	"marketing spend",
	"support tickets",
	"rainfall",
	"stock performance",
	"team velocity",
}

// Executor runs one request. *pipeline.Runner implements it.
type Executor interface {
	Execute(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Options selects the combinations to generate.
type Options struct {
	// Families to generate; empty means the whole catalog.
	Families []string
	// Themes to apply; empty means every catalog theme.
	Themes []string
	// Variations per (family, theme); 0 means [DefaultVariations].
	Variations int
	// OutputDir is the batch root.
	OutputDir string
	// Parallelism bounds concurrent jobs.
	Parallelism int
	// Topics seed job descriptions; empty means [DefaultTopics].
	Topics []string
	// Rows per dataset; 0 uses each family default.
	Rows int
}

// Job is one (family, theme, variation) combination.
type Job struct {
	Family    string `json:"family"`
	Theme     string `json:"theme"`
	Variation int    `json:"variation"`
	Output    string `json:"output"`
	Seed      int64  `json:"seed"`
	Topic     string `json:"topic"`
}

// Status is the outcome of a job.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// JobResult records what happened to a job.
type JobResult struct {
	Job
	Status   Status              `json:"status"`
	Artifact string              `json:"artifact,omitempty"`
	Source   instructions.Source `json:"source,omitempty"`
	Err      error               `json:"-"`
	Error    string              `json:"error,omitempty"`
	Duration time.Duration       `json:"duration"`
}

// Coordinator runs batches through an [Executor].
type Coordinator struct {
	exec    Executor
	catalog *catalog.Catalog
	logger  *log.Logger
}

// NewCoordinator returns a coordinator. A nil catalog means the embedded
// one; a nil logger discards output.
func NewCoordinator(exec Executor, c *catalog.Catalog, logger *log.Logger) *Coordinator {
	if c == nil {
		c = catalog.Default()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Coordinator{exec: exec, catalog: c, logger: logger}
}

// Plan validates opts and enumerates the jobs in family, theme, variation
// order. Unknown family or theme names are INVALID_INPUT.
func (c *Coordinator) Plan(opts Options) ([]Job, error) {
	opts = c.withDefaults(opts)

	families, err := c.resolve(opts.Families, c.catalog.FamilyNames(), func(n string) (string, bool) {
		f, ok := c.catalog.Family(n)
		return f.Name, ok
	}, "family")
	if err != nil {
		return nil, err
	}
	themes, err := c.resolve(opts.Themes, c.catalog.ThemeNames(), func(n string) (string, bool) {
		t, ok := c.catalog.Theme(n)
		return t.Name, ok
	}, "theme")
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(families)*len(themes)*opts.Variations)
	for _, f := range families {
		for _, t := range themes {
			for v := 1; v <= opts.Variations; v++ {
				seed := Seed(f, t, v)
				jobs = append(jobs, Job{
					Family:    f,
					Theme:     t,
					Variation: v,
					Output:    OutputPath(opts.OutputDir, f, t, v),
					Seed:      seed,
					Topic:     opts.Topics[int(uint64(seed)%uint64(len(opts.Topics)))],
				})
			}
		}
	}
	return jobs, nil
}

func (c *Coordinator) withDefaults(opts Options) Options {
	if opts.Variations <= 0 {
		opts.Variations = DefaultVariations
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if len(opts.Topics) == 0 {
		opts.Topics = DefaultTopics
	}
	return opts
}

// resolve canonicalizes names through lookup, dropping duplicates. An empty
// list selects all.
func (c *Coordinator) resolve(names, all []string, lookup func(string) (string, bool), kind string) ([]string, error) {
	if len(names) == 0 {
		return all, nil
	}
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		canon, ok := lookup(n)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown %s %q", kind, n)
		}
		if !slices.Contains(out, canon) {
			out = append(out, canon)
		}
	}
	if len(out) == 0 {
		return all, nil
	}
	return out, nil
}

// OutputPath is <dir>/<Family>/<family>_<theme>_<NN>.html. Family and
// theme names are unique in the catalog, so paths never collide.
func OutputPath(dir, family, theme string, variation int) string {
	name := fmt.Sprintf("%s_%s_%02d.html", strings.ToLower(family), theme, variation)
	return filepath.Join(dir, family, name)
}

// Seed derives a stable, positive dataset seed from a combination.
func Seed(family, theme string, variation int) int64 {
	h := fnv.New64a()
	h.Write([]byte(family))
	h.Write([]byte{0})
	h.Write([]byte(theme))
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(variation))
	h.Write(v[:])
	return int64(h.Sum64()>>1) | 1
}

// Run executes every planned job and returns the summary. The only error is
// an invalid plan; job failures are recorded in the summary.
func (c *Coordinator) Run(ctx context.Context, opts Options) (*Summary, error) {
	jobs, err := c.Plan(opts)
	if err != nil {
		return nil, err
	}
	opts = c.withDefaults(opts)

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		OutputDir: opts.OutputDir,
	}
	logger := c.logger.With("run", summary.RunID)
	logger.Info("starting batch",
		"jobs", len(jobs),
		"parallelism", opts.Parallelism)

	results := make([]JobResult, len(jobs))
	var mu sync.Mutex
	done := 0

	g := new(errgroup.Group)
	g.SetLimit(opts.Parallelism)
	for i, job := range jobs {
		if ctx.Err() != nil {
			results[i] = skipped(job)
			continue
		}
		g.Go(func() error {
			res := c.runJob(ctx, job, opts.Rows)
			results[i] = res
			c.notify(ctx, logger, res)

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			c.logJob(logger, res, n, len(jobs))
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(summary.StartedAt)
	summary.add(results)

	logger.Info("batch finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"fallbacks", summary.Fallbacks,
		"duration", summary.Duration)
	return summary, nil
}

// runJob executes one job. Panics become failures.
func (c *Coordinator) runJob(ctx context.Context, job Job, rows int) (res JobResult) {
	if ctx.Err() != nil {
		return skipped(job)
	}

	start := time.Now()
	res = JobResult{Job: job}
	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Err = errors.New(errors.ErrCodeInternal, "panic: %v", r)
			res.Error = res.Err.Error()
		}
		res.Duration = time.Since(start)
	}()

	out, err := c.exec.Execute(ctx, pipeline.Request{
		Description: fmt.Sprintf("%s shown as a %s chart", job.Topic, job.Family),
		ChartType:   job.Family,
		Theme:       job.Theme,
		Rows:        rows,
		Seed:        job.Seed,
		Output:      job.Output,
		Title:       titleCase(job.Topic),
		ID:          fmt.Sprintf("%s-%s-%02d", strings.ToLower(job.Family), job.Theme, job.Variation),
	})
	switch {
	case err != nil:
		res.Status = StatusFailed
		res.Err = err
		res.Error = err.Error()
	case out == nil:
		res.Status = StatusFailed
		res.Err = errors.New(errors.ErrCodeInternal, "executor returned no result")
		res.Error = res.Err.Error()
	default:
		res.Status = StatusSucceeded
		res.Artifact = out.Artifact.Path
		res.Source = out.Source
	}
	return res
}

// notify reports a finished job to the batch hooks. A panicking hook is
// logged and leaves the job result and the other workers alone.
func (c *Coordinator) notify(ctx context.Context, logger *log.Logger, res JobResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("batch hook panicked", "family", res.Family, "theme", res.Theme, "panic", r)
		}
	}()
	observability.Batch().OnJobComplete(ctx, res.Family, res.Theme, string(res.Status), res.Duration)
}

func (c *Coordinator) logJob(logger *log.Logger, res JobResult, n, total int) {
	progress := fmt.Sprintf("%d/%d", n, total)
	switch res.Status {
	case StatusFailed:
		logger.Error("job failed",
			"progress", progress,
			"family", res.Family,
			"theme", res.Theme,
			"variation", res.Variation,
			"error", res.Err)
	case StatusSucceeded:
		logger.Debug("job done",
			"progress", progress,
			"family", res.Family,
			"theme", res.Theme,
			"variation", res.Variation,
			"source", res.Source,
			"duration", res.Duration)
	}
}

func skipped(job Job) JobResult {
	return JobResult{Job: job, Status: StatusSkipped, Error: "batch cancelled"}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
