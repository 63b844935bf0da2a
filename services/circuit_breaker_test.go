package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestRegistry() *CircuitBreakerRegistry {
	return NewCircuitBreakerRegistry(CircuitBreakerConfig{
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     50 * time.Millisecond,
	})
}

func TestExecutePassesThroughSuccess(t *testing.T) {
	registry := newTestRegistry()

	result, err := registry.Execute(context.Background(), BreakerMarketData, func() (any, error) {
		return "quote", nil
	})

	if err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
	if result != "quote" {
		t.Errorf("expected result to pass through, got %v", result)
	}
}

func TestExecutePassesThroughFailure(t *testing.T) {
	registry := newTestRegistry()
	sentinel := errors.New("quote endpoint returned 500")

	_, err := registry.Execute(context.Background(), BreakerMarketData, func() (any, error) {
		return nil, sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("expected the underlying error, got: %v", err)
	}
}

func TestExecuteRespectsCancelledContext(t *testing.T) {
	registry := newTestRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := registry.Execute(ctx, BreakerMarketData, func() (any, error) {
		called = true
		return nil, nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context error, got: %v", err)
	}
	if called {
		t.Error("function should not run once the context is cancelled")
	}
}

func TestBreakerTripsAfterRepeatedFailures(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	for i := 0; i < tripMinRequests; i++ {
		_, _ = registry.Execute(ctx, BreakerFundamentals, func() (any, error) {
			return nil, errors.New("upstream down")
		})
	}

	status := registry.Status()[BreakerFundamentals]
	if status.State != "open" {
		t.Fatalf("expected breaker open after %d failures, got state %q", tripMinRequests, status.State)
	}

	_, err := registry.Execute(ctx, BreakerFundamentals, func() (any, error) {
		t.Error("function must not run while the breaker is open")
		return nil, nil
	})
	if err == nil || !strings.Contains(err.Error(), "circuit breaker open") {
		t.Errorf("expected an open-breaker rejection, got: %v", err)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	for i := 0; i < tripMinRequests; i++ {
		_, _ = registry.Execute(ctx, BreakerOpenAI, func() (any, error) {
			return nil, errors.New("model overloaded")
		})
	}
	if registry.Status()[BreakerOpenAI].State != "open" {
		t.Fatal("breaker should be open before recovery")
	}

	// Wait out the open period, then succeed enough to close again.
	time.Sleep(70 * time.Millisecond)
	for i := 0; i < 2; i++ {
		if _, err := registry.Execute(ctx, BreakerOpenAI, func() (any, error) {
			return "ok", nil
		}); err != nil {
			t.Fatalf("half-open request %d failed: %v", i, err)
		}
	}

	if state := registry.Status()[BreakerOpenAI].State; state != "closed" {
		t.Errorf("expected breaker closed after successful half-open requests, got %q", state)
	}
}

func TestBreakerStaysClosedBelowMinRequests(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	for i := 0; i < tripMinRequests-1; i++ {
		_, _ = registry.Execute(ctx, BreakerBedrock, func() (any, error) {
			return nil, errors.New("throttled")
		})
	}

	if state := registry.Status()[BreakerBedrock].State; state != "closed" {
		t.Errorf("breaker must not trip below the request floor, got %q", state)
	}
}

func TestStatusCountsPerBreaker(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	_, _ = registry.Execute(ctx, BreakerMarketData, func() (any, error) { return nil, nil })
	_, _ = registry.Execute(ctx, BreakerMarketData, func() (any, error) { return nil, errors.New("boom") })
	_, _ = registry.Execute(ctx, BreakerFundamentals, func() (any, error) { return nil, nil })

	status := registry.Status()
	if len(status) != 2 {
		t.Fatalf("expected 2 breakers in status, got %d", len(status))
	}

	md := status[BreakerMarketData]
	if md.Requests != 2 || md.TotalSuccesses != 1 || md.TotalFailures != 1 {
		t.Errorf("unexpected marketdata counts: %+v", md)
	}
	if fd := status[BreakerFundamentals]; fd.TotalSuccesses != 1 {
		t.Errorf("unexpected fundamentals counts: %+v", fd)
	}
}

func TestGetBreakerIsConcurrencySafe(t *testing.T) {
	registry := newTestRegistry()

	var wg sync.WaitGroup
	breakers := make([]any, 16)
	for i := range breakers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			breakers[i] = registry.GetBreaker(BreakerMarketData)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(breakers); i++ {
		if breakers[i] != breakers[0] {
			t.Fatal("concurrent GetBreaker calls must return the same instance")
		}
	}
}

func TestGetGlobalRegistryNeverNil(t *testing.T) {
	prev := GetGlobalRegistry()
	defer SetGlobalRegistry(prev)

	SetGlobalRegistry(nil)
	registry := GetGlobalRegistry()
	if registry == nil {
		t.Fatal("GetGlobalRegistry must recreate the registry after a nil override")
	}

	got, err := WithCircuitBreaker(context.Background(), BreakerMarketData, func() (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Errorf("expected call through recreated registry to succeed, got %q, %v", got, err)
	}
}

func TestWithCircuitBreakerReturnsTypedResult(t *testing.T) {
	prev := GetGlobalRegistry()
	SetGlobalRegistry(newTestRegistry())
	defer SetGlobalRegistry(prev)

	got, err := WithCircuitBreaker(context.Background(), BreakerMarketData, func() (int64, error) {
		return 4_250_000, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got != 4_250_000 {
		t.Errorf("expected typed result 4250000, got %d", got)
	}

	sentinel := errors.New("no quote")
	zero, err := WithCircuitBreaker(context.Background(), BreakerMarketData, func() (int64, error) {
		return 99, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected the underlying error, got: %v", err)
	}
	if zero != 0 {
		t.Errorf("expected zero value on error, got %d", zero)
	}
}
