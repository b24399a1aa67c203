package raster

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/fsutil"
	"github.com/matzehuels/chartforge/pkg/observability"
	"github.com/matzehuels/chartforge/pkg/retry"
)

// readyMarker identifies documents that signal readiness themselves.
var readyMarker = []byte(`<meta name="generator" content="chartforge">`)

// sniffLen is how much of a document pre-flight inspects.
const sniffLen = 4096

// Options configures a [Converter]. Zero values select the defaults.
type Options struct {
	Width        int
	Height       int
	Timeout      time.Duration
	ReadyTimeout time.Duration
	Settle       time.Duration
	Attempts     int
	Backoff      time.Duration
	Parallelism  int
	Logger       *log.Logger
}

func (o *Options) setDefaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = DefaultReadyTimeout
	}
	if o.Settle <= 0 {
		o.Settle = DefaultSettle
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.Parallelism <= 0 {
		o.Parallelism = DefaultParallelism
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// Converter turns documents into images.
type Converter struct {
	launcher Launcher
	opts     Options
}

// NewConverter returns a converter that starts one session per task from l.
func NewConverter(l Launcher, opts Options) *Converter {
	opts.setDefaults()
	return &Converter{launcher: l, opts: opts}
}

// Plan lists the tasks for input: every *.html below a directory, or the
// single file otherwise. Outputs are <outDir>/<relative dir>/<stem>.png.
// A single input that does not exist still yields a task, which pre-flight
// then fails.
func (c *Converter) Plan(input, outDir string) ([]Task, error) {
	info, err := os.Stat(input)
	if err != nil || !info.IsDir() {
		return []Task{c.task(input, filepath.Join(outDir, stem(input)+".png"))}, nil
	}

	var tasks []Task
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isHTML(path) {
			return nil
		}
		rel, err := filepath.Rel(input, path)
		if err != nil {
			return err
		}
		out := filepath.Join(outDir, filepath.Dir(rel), stem(path)+".png")
		tasks = append(tasks, c.task(path, out))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "scan %s", input)
	}
	slices.SortFunc(tasks, func(a, b Task) int { return strings.Compare(a.Input, b.Input) })
	return tasks, nil
}

func (c *Converter) task(input, output string) Task {
	return Task{Input: input, Output: output, Width: c.opts.Width, Height: c.opts.Height, State: StatePending}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// Convert plans and runs every task for input. It returns an error only when
// a directory cannot be scanned; task failures are in the report.
func (c *Converter) Convert(ctx context.Context, input, outDir string) (*Report, error) {
	tasks, err := c.Plan(input, outDir)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, tasks), nil
}

// Run executes tasks on a pool of Options.Parallelism workers. Tasks not
// started before ctx ends are skipped.
func (c *Converter) Run(ctx context.Context, tasks []Task) *Report {
	start := time.Now()
	out := make([]Task, len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(c.opts.Parallelism)
	for i, t := range tasks {
		if ctx.Err() != nil {
			t.State = StateSkipped
			out[i] = t
			continue
		}
		g.Go(func() error {
			out[i] = c.ConvertTask(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Tasks: out, Duration: time.Since(start)}
	for _, t := range out {
		switch t.State {
		case StateWritten:
			report.Written++
		case StateFailed:
			report.Failed++
		case StateSkipped:
			report.Skipped++
		}
	}
	return report
}

// ConvertTask runs one task to a terminal state.
func (c *Converter) ConvertTask(ctx context.Context, in Task) (t Task) {
	t = in
	start := time.Now()
	logger := c.opts.Logger.With("input", t.Input)
	if t.Width <= 0 || t.Height <= 0 {
		t.Width, t.Height = c.opts.Width, c.opts.Height
	}
	if ctx.Err() != nil {
		t.State = StateSkipped
		return t
	}

	defer func() {
		t.Duration = time.Since(start)
		observability.Raster().OnTaskComplete(ctx, string(t.State), t.Attempts, t.Duration)
	}()

	ours, err := preflight(t.Input)
	if err != nil {
		t.fail(err)
		logger.Warn("skipping document", "error", err)
		return t
	}

	fileURL := (&url.URL{Scheme: "file", Path: absPath(t.Input)}).String()
	policy := retry.Policy{
		Attempts: c.opts.Attempts,
		Delay:    c.opts.Backoff,
		Retryable: func(err error) bool {
			return errors.Has(err, errors.ErrCodeConversionCrash) || errors.Has(err, errors.ErrCodeConversionTimeout)
		},
		OnRetry: func(attempt int, err error, wait time.Duration) {
			observability.Raster().OnRetry(ctx, attempt, err)
			logger.Debug("conversion attempt failed", "attempt", attempt, "wait", wait, "error", err)
		},
	}
	attempts, err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		return c.attempt(ctx, &t, fileURL, ours)
	})
	t.Attempts = attempts
	if err != nil {
		t.fail(err)
		logger.Error("conversion failed", "attempts", attempts, "error", err)
		return t
	}
	logger.Debug("converted", "output", t.Output, "attempts", attempts, "rescaled", t.Rescaled)
	return t
}

// attempt walks the state machine once with a fresh session.
func (c *Converter) attempt(ctx context.Context, t *Task, fileURL string, ours bool) (err error) {
	t.State = StatePending
	budget := c.opts.Timeout + c.opts.ReadyTimeout + c.opts.Settle
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	sess, err := c.launcher.Launch(ctx, Viewport{Width: t.Width, Height: t.Height})
	if err != nil {
		return classify(ctx, err, "launch browser")
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			c.opts.Logger.Debug("closing browser session", "error", cerr)
		}
	}()
	t.State = StateLaunched

	err = sess.Load(ctx, fileURL, LoadOptions{
		Timeout:      c.opts.Timeout,
		WaitReady:    ours,
		ReadyTimeout: c.opts.ReadyTimeout,
		Settle:       c.opts.Settle,
	})
	if err != nil {
		return classify(ctx, err, "load %s", t.Input)
	}
	t.State = StateLoaded

	shot, err := sess.Capture(ctx)
	if err != nil {
		return classify(ctx, err, "capture %s", t.Input)
	}
	t.State = StateCaptured

	img, rescaled, err := ExactPNG(shot, t.Width, t.Height)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConversionCrash, err, "decode capture of %s", t.Input)
	}
	if err := fsutil.WriteFileAtomic(t.Output, img, 0o644); err != nil {
		// Disk errors are not retried.
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", t.Output)
	}
	t.Rescaled = rescaled
	t.State = StateWritten
	return nil
}

// classify maps session errors to CONVERSION_TIMEOUT or CONVERSION_CRASH.
func classify(ctx context.Context, err error, format string, args ...any) error {
	if errors.GetCode(err) == errors.ErrCodeConversionTimeout || errors.GetCode(err) == errors.ErrCodeConversionCrash {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeConversionTimeout, err, format, args...)
	}
	return errors.Wrap(errors.ErrCodeConversionCrash, err, format, args...)
}

// preflight rejects missing, empty and non-HTML documents before any
// browser starts. It reports whether the document is chartforge output.
func preflight(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, errors.New(errors.ErrCodeFileNotFound, "document not found: %s", path)
		}
		return false, errors.Wrap(errors.ErrCodeInvalidPath, err, "stat %s", path)
	}
	if info.IsDir() {
		return false, errors.New(errors.ErrCodeInvalidPath, "%s is a directory", path)
	}
	if info.Size() == 0 {
		return false, errors.New(errors.ErrCodeInvalidInput, "document is empty: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !stderrors.Is(err, io.ErrUnexpectedEOF) {
		return false, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	head = head[:n]

	lower := bytes.ToLower(head)
	if !bytes.Contains(lower, []byte("<html")) && !bytes.Contains(lower, []byte("<!doctype html")) {
		return false, errors.New(errors.ErrCodeInvalidInput, "not an HTML document: %s", path)
	}
	return bytes.Contains(head, readyMarker), nil
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(abs)
}
