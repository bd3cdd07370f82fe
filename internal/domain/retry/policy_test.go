package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"jan-server/services/claims-api/internal/domain/retry"
)

func TestPolicy_CalculateDelay(t *testing.T) {
	tests := []struct {
		name    string
		policy  retry.Policy
		attempt int
		want    time.Duration
	}{
		{
			name:    "zero attempt has no delay",
			policy:  retry.Policy{BackoffStrategy: retry.BackoffExponential, InitialDelay: 100 * time.Millisecond},
			attempt: 0,
			want:    0,
		},
		{
			name:    "fixed",
			policy:  retry.Policy{BackoffStrategy: retry.BackoffFixed, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second},
			attempt: 4,
			want:    100 * time.Millisecond,
		},
		{
			name:    "linear",
			policy:  retry.Policy{BackoffStrategy: retry.BackoffLinear, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second},
			attempt: 3,
			want:    300 * time.Millisecond,
		},
		{
			name:    "exponential",
			policy:  retry.Policy{BackoffStrategy: retry.BackoffExponential, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second},
			attempt: 3,
			want:    400 * time.Millisecond,
		},
		{
			name:    "exponential capped",
			policy:  retry.Policy{BackoffStrategy: retry.BackoffExponential, InitialDelay: 100 * time.Millisecond, MaxDelay: 200 * time.Millisecond},
			attempt: 10,
			want:    200 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.CalculateDelay(tt.attempt); got != tt.want {
				t.Errorf("CalculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestStreamOpenPolicy(t *testing.T) {
	if got := retry.StreamOpenPolicy(-1).MaxRetries; got != 0 {
		t.Errorf("negative retries should clamp to 0, got %d", got)
	}
	if got := retry.StreamOpenPolicy(2).BackoffStrategy; got != retry.BackoffExponential {
		t.Errorf("BackoffStrategy = %v, want exponential", got)
	}
}

func TestDeliveryPolicy(t *testing.T) {
	policy := retry.DeliveryPolicy(5)
	policy.JitterFactor = 0
	if got := policy.CalculateDelay(1); got != 10*time.Second {
		t.Errorf("first redelivery delay = %v, want 10s", got)
	}
	if got := policy.CalculateDelay(20); got != 10*time.Minute {
		t.Errorf("delay should cap at 10m, got %v", got)
	}
}

func TestExecuteWithResult(t *testing.T) {
	fast := retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, BackoffStrategy: retry.BackoffFixed}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		got, err := retry.ExecuteWithResult(context.Background(), fast, func(ctx context.Context, attempt int) (string, error) {
			calls++
			if attempt < 2 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "ok" || calls != 3 {
			t.Errorf("got %q after %d calls, want ok after 3", got, calls)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := retry.ExecuteWithResult(context.Background(), fast, func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, errors.New("still down")
		})
		if err == nil || err.Error() != "still down" {
			t.Fatalf("err = %v, want still down", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		sentinel := errors.New("bad request")
		calls := 0
		_, err := retry.ExecuteWithResult(context.Background(), fast, func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, retry.Permanent(sentinel)
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("err = %v, want sentinel", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := retry.ExecuteWithResult(ctx, fast, func(ctx context.Context, attempt int) (int, error) {
			t.Fatal("fn must not run on a cancelled context")
			return 0, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestExecute(t *testing.T) {
	calls := 0
	err := retry.Execute(context.Background(), retry.NoRetryPolicy(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
