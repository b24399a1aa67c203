// Package raster converts chart documents to fixed-size PNG images through a
// headless browser.
//
// # Overview
//
// Each document becomes one [Task] that walks a small state machine:
//
//	pending → browser-launched → loaded → captured → written
//
// Any transition may instead end in failed. A task owns its browser
// [Session] exclusively and releases it on every exit path. Launch failures,
// crashes and timeouts are retried a bounded number of times; after that the
// task is recorded as failed and its siblings carry on.
//
// Output is exact: the decoded screenshot must measure width × height, and a
// HiDPI capture is rescaled before writing. Images are written through a
// temp file and a rename, so a failed task never leaves a partial PNG.
//
// # Browsers
//
// [Launcher] and [Session] hide the browser. [RodLauncher] drives Chrome with
// github.com/go-rod/rod; tests substitute a fake.
package raster

import (
	"context"
	"time"
)

// Defaults for [Options].
const (
	DefaultWidth        = 1280
	DefaultHeight       = 720
	DefaultTimeout      = 30 * time.Second
	DefaultReadyTimeout = 10 * time.Second
	DefaultSettle       = 2 * time.Second
	DefaultAttempts     = 3
	DefaultBackoff      = time.Second
	DefaultParallelism  = 1
)

// Viewport is the browser window size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// LoadOptions control how a session decides a page is ready.
type LoadOptions struct {
	// Timeout bounds navigation.
	Timeout time.Duration
	// WaitReady waits for window.__chartReady. Otherwise the session
	// sleeps for Settle after the load event.
	WaitReady    bool
	ReadyTimeout time.Duration
	Settle       time.Duration
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context, vp Viewport) (Session, error)
}

// Session is one browser with one page. It is never shared between tasks.
type Session interface {
	// Load navigates to url and waits until the page is ready.
	Load(ctx context.Context, url string, opts LoadOptions) error
	// Capture returns a PNG of the viewport.
	Capture(ctx context.Context) ([]byte, error)
	// Close releases the browser. It is safe to call more than once.
	Close() error
}

// State is the position of a task in its lifecycle.
type State string

const (
	StatePending  State = "pending"
	StateLaunched State = "browser-launched"
	StateLoaded   State = "loaded"
	StateCaptured State = "captured"
	StateWritten  State = "written"
	StateFailed   State = "failed"
	StateSkipped  State = "skipped"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateWritten || s == StateFailed || s == StateSkipped
}

// Task is one document to convert.
type Task struct {
	Input    string        `json:"input"`
	Output   string        `json:"output"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	State    State         `json:"state"`
	Attempts int           `json:"attempts"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	// Rescaled is set when the capture did not match the requested size.
	Rescaled bool `json:"rescaled,omitempty"`
}

func (t *Task) fail(err error) {
	t.State = StateFailed
	t.Err = err
	t.Error = err.Error()
}

// Report summarizes a conversion run.
type Report struct {
	Tasks    []Task        `json:"tasks"`
	Written  int           `json:"written"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Failures returns the failed tasks.
func (r *Report) Failures() []Task {
	var out []Task
	for _, t := range r.Tasks {
		if t.State == StateFailed {
			out = append(out, t)
		}
	}
	return out
}
