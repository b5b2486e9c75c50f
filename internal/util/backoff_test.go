package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	b := Backoff{MaxAttempts: 3}
	err := b.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestBackoffDoReturnsLastError(t *testing.T) {
	want := errors.New("still broken")
	b := Backoff{MaxAttempts: 2}
	calls := 0
	err := b.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestBackoffDoStopsOnPermanent(t *testing.T) {
	want := errors.New("bad query")
	b := Backoff{MaxAttempts: 5}
	calls := 0
	err := b.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(want)
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if calls != 1 {
		t.Fatalf("permanent error should not be retried, got %d calls", calls)
	}
}

func TestBackoffDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := Backoff{MaxAttempts: 3, Delay: time.Millisecond}
	err := b.Do(ctx, func(ctx context.Context) error {
		return errors.New("never reached")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoffDoCancelsMidSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := Backoff{MaxAttempts: 2, Delay: time.Minute}

	done := make(chan error, 1)
	go func() {
		done <- b.Do(ctx, func(ctx context.Context) error {
			return errors.New("transient")
		})
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}
