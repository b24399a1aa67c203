package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		retryable bool
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{"succeeds first try", 0, true, 3, 1, false},
		{"succeeds after retries", 2, true, 3, 3, false},
		{"budget exhausted", 5, true, 3, 3, true},
		{"non-retryable stops", 5, false, 3, 1, true},
		{"zero attempts means one", 5, true, 0, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.attempts, time.Millisecond, func() error {
				calls++
				if calls <= tt.failures {
					if tt.retryable {
						return &RetryableError{Err: errors.New("transient")}
					}
					return errors.New("permanent")
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestPolicyClassifier(t *testing.T) {
	transient := errors.New("transient")
	p := Policy{
		Attempts:  4,
		Delay:     time.Millisecond,
		Retryable: func(err error) bool { return errors.Is(err, transient) },
	}

	var retries []int
	p.OnRetry = func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) }

	n, err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		if attempt < 3 {
			return transient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", retries)
	}
}

func TestPolicyBackoffCap(t *testing.T) {
	var waits []time.Duration
	p := Policy{
		Attempts: 5,
		Delay:    time.Millisecond,
		MaxDelay: 2 * time.Millisecond,
		OnRetry:  func(_ int, _ error, d time.Duration) { waits = append(waits, d) },
	}
	_, _ = p.Do(context.Background(), func(context.Context, int) error { return errors.New("x") })

	want := []time.Duration{time.Millisecond, 2 * time.Millisecond, 2 * time.Millisecond, 2 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("waits[%d] = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestPolicyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 10, Delay: time.Hour}

	calls := 0
	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = p.Do(ctx, func(context.Context, int) error {
			calls++
			return errors.New("fail")
		})
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
	if err == nil {
		t.Error("Do() error = nil, want error")
	}
	if calls > 1 {
		t.Errorf("calls = %d, want at most 1", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(errors.New("x")) {
		t.Error("IsRetryable(plain) = true")
	}
	if !IsRetryable(&RetryableError{Err: errors.New("x")}) {
		t.Error("IsRetryable(RetryableError) = false")
	}
}
