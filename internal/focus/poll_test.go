package focus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollUntilDone(t *testing.T) {
	calls := 0
	err := pollUntil(context.Background(), time.Second, defaultBackoff, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPollUntilTimeout(t *testing.T) {
	start := time.Now()
	err := pollUntil(context.Background(), 30*time.Millisecond, defaultBackoff, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, errPollTimeout) {
		t.Fatalf("expected errPollTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("poll ran for %v", elapsed)
	}
}

func TestPollUntilParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pollUntil(ctx, time.Second, defaultBackoff, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPollUntilConditionError(t *testing.T) {
	boom := errors.New("boom")
	err := pollUntil(context.Background(), time.Second, defaultBackoff, func(context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestBackoffNext(t *testing.T) {
	b := backoff{Initial: 10 * time.Millisecond, Max: 25 * time.Millisecond, Multiplier: 2}
	if got := b.next(10 * time.Millisecond); got != 20*time.Millisecond {
		t.Errorf("next(10ms) = %v", got)
	}
	if got := b.next(20 * time.Millisecond); got != 25*time.Millisecond {
		t.Errorf("next(20ms) = %v, want cap", got)
	}
	flat := backoff{Initial: 5 * time.Millisecond}
	if got := flat.next(5 * time.Millisecond); got != 5*time.Millisecond {
		t.Errorf("flat next = %v", got)
	}
}
