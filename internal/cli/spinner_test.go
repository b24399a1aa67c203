package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func quietSpinner(ctx context.Context, msg string) (*Spinner, *syncBuffer) {
	out := &syncBuffer{}
	s := newSpinnerWithContext(ctx, msg)
	s.out = out
	return s, out
}

func TestSpinnerDraws(t *testing.T) {
	s, out := quietSpinner(context.Background(), "Generating chart...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if out.Len() == 0 {
		t.Error("spinner wrote nothing")
	}
	if s.Cancelled() {
		t.Error("a stopped spinner is not cancelled")
	}
}

func TestSpinnerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, _ := quietSpinner(ctx, "Converting...")
	s.Start()

	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should report cancellation")
	}
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "Testing...")
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerSetMessage(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "first")
	s.Start()
	s.SetMessage("second")
	s.Stop()

	if s.message != "second" {
		t.Errorf("message = %q", s.message)
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "never started")

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a spinner that never started")
	}

	s.Start()
	if s.running {
		t.Error("Start after Stop launched the animation")
	}
}
