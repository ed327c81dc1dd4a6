package circuitbreaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opskpi/backend/pkg/circuitbreaker"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := circuitbreaker.New("test", circuitbreaker.Config{
		FailureThreshold: 3,
		Timeout:          time.Minute,
	})

	boom := errors.New("down")
	for i := 0; i < 3; i++ {
		if err := cb.Execute(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: expected the operation error, got %v", i, err)
		}
	}

	if cb.State() != circuitbreaker.StateOpen {
		t.Fatalf("expected open state, got %v", cb.State())
	}

	err := cb.Execute(context.Background(), func() error {
		t.Fatal("operation must not run while open")
		return nil
	})
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := circuitbreaker.New("test", circuitbreaker.Config{
		MaxRequests:      2,
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Millisecond,
	})

	_ = cb.Execute(context.Background(), func() error { return errors.New("down") })
	if cb.State() != circuitbreaker.StateOpen {
		t.Fatalf("expected open, got %v", cb.State())
	}

	time.Sleep(20 * time.Millisecond)
	if cb.State() != circuitbreaker.StateHalfOpen {
		t.Fatalf("expected half-open after timeout, got %v", cb.State())
	}

	for i := 0; i < 2; i++ {
		if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
			t.Fatalf("probe %d failed: %v", i, err)
		}
	}

	if cb.State() != circuitbreaker.StateClosed {
		t.Fatalf("expected closed after successful probes, got %v", cb.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := circuitbreaker.New("test", circuitbreaker.Config{
		FailureThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})

	_ = cb.Execute(context.Background(), func() error { return errors.New("down") })
	time.Sleep(20 * time.Millisecond)

	_ = cb.Execute(context.Background(), func() error { return errors.New("still down") })
	if cb.State() != circuitbreaker.StateOpen {
		t.Fatalf("expected re-open after failed probe, got %v", cb.State())
	}
}
