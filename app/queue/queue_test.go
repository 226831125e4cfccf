package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSubmitRespectsMinDelay(t *testing.T) {
	q := New()
	defer q.Stop()

	q.Configure("allevents", Limits{
		MinDelay:      100 * time.Millisecond,
		MaxConcurrent: 1,
		MaxRetries:    1,
		RetryDelay:    10 * time.Millisecond,
	})

	var mu sync.Mutex
	var dispatches []time.Time

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Submit(context.Background(), "allevents", func(ctx context.Context) error {
				mu.Lock()
				dispatches = append(dispatches, time.Now())
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("Expected success, got: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(dispatches) != 5 {
		t.Fatalf("Expected 5 dispatches, got %d", len(dispatches))
	}
	for i := 1; i < len(dispatches); i++ {
		gap := dispatches[i].Sub(dispatches[i-1])
		if gap < 95*time.Millisecond {
			t.Errorf("Dispatch %d only %v after previous, expected at least ~100ms", i, gap)
		}
	}
}

func TestSubmitRetriesWithBackoff(t *testing.T) {
	q := New()
	defer q.Stop()

	q.Configure("insider", Limits{
		MinDelay:      time.Millisecond,
		MaxConcurrent: 1,
		MaxRetries:    3,
		RetryDelay:    20 * time.Millisecond,
	})

	var mu sync.Mutex
	var attempts []time.Time

	err := q.Submit(context.Background(), "insider", func(ctx context.Context) error {
		mu.Lock()
		attempts = append(attempts, time.Now())
		mu.Unlock()
		return errors.New("transient failure")
	})

	if err == nil {
		t.Fatal("Expected rejection after max retries")
	}
	if len(attempts) != 3 {
		t.Fatalf("Expected 3 attempts, got %d", len(attempts))
	}

	// Delays double per attempt: retryDelay, then 2x retryDelay.
	first := attempts[1].Sub(attempts[0])
	second := attempts[2].Sub(attempts[1])
	if first < 18*time.Millisecond {
		t.Errorf("First retry after %v, expected at least ~20ms", first)
	}
	if second < 36*time.Millisecond {
		t.Errorf("Second retry after %v, expected at least ~40ms", second)
	}
}

func TestSubmitSucceedsAfterTransientFailure(t *testing.T) {
	q := New()
	defer q.Stop()

	q.Configure("insider", Limits{
		MinDelay:      time.Millisecond,
		MaxConcurrent: 1,
		MaxRetries:    3,
		RetryDelay:    5 * time.Millisecond,
	})

	calls := 0
	err := q.Submit(context.Background(), "insider", func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient failure")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected eventual success, got: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", calls)
	}
}

func TestRetryTakesPriorityOverNewWork(t *testing.T) {
	q := New()
	defer q.Stop()

	q.Configure("allevents", Limits{
		MinDelay:      time.Millisecond,
		MaxConcurrent: 1,
		MaxRetries:    2,
		RetryDelay:    10 * time.Millisecond,
	})

	var mu sync.Mutex
	var order []string

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		failedOnce := false
		q.Submit(context.Background(), "allevents", func(ctx context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			if !failedOnce {
				failedOnce = true
				return errors.New("transient failure")
			}
			return nil
		})
	}()

	// Enqueue a second request while the first is likely in flight or
	// waiting on its retry backoff.
	time.Sleep(2 * time.Millisecond)
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Submit(context.Background(), "allevents", func(ctx context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
	}()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("Expected 3 executions, got %d: %v", len(order), order)
	}
	if order[0] != "first" || order[1] != "first" || order[2] != "second" {
		t.Errorf("Expected the retried request to run before newer work, got %v", order)
	}
}

func TestPlatformsAreIndependent(t *testing.T) {
	q := New()
	defer q.Stop()

	q.Configure("slow", Limits{
		MinDelay:      time.Second,
		MaxConcurrent: 1,
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
	})
	q.Configure("fast", Limits{
		MinDelay:      time.Millisecond,
		MaxConcurrent: 2,
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
	})

	// Saturate the slow platform.
	go q.Submit(context.Background(), "slow", func(ctx context.Context) error {
		time.Sleep(500 * time.Millisecond)
		return nil
	})
	time.Sleep(5 * time.Millisecond)

	start := time.Now()
	err := q.Submit(context.Background(), "fast", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success on the fast platform, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Fast platform was delayed %v by the slow platform", elapsed)
	}
}

func TestSubmitHonorsCallerCancellation(t *testing.T) {
	q := New()
	defer q.Stop()

	q.Configure("allevents", Limits{
		MinDelay:      time.Hour,
		MaxConcurrent: 1,
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
	})

	// Occupy the dispatch slot so the second request sits in the queue.
	go q.Submit(context.Background(), "allevents", func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Submit(ctx, "allevents", func(ctx context.Context) error {
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got: %v", err)
	}
}

func TestStopRejectsPendingWork(t *testing.T) {
	q := New()

	q.Configure("allevents", Limits{
		MinDelay:      time.Hour,
		MaxConcurrent: 1,
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
	})

	go q.Submit(context.Background(), "allevents", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	time.Sleep(5 * time.Millisecond)

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Submit(context.Background(), "allevents", func(ctx context.Context) error {
			return nil
		})
	}()
	time.Sleep(5 * time.Millisecond)

	q.Stop()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("Expected pending request to be rejected on shutdown")
		}
	case <-time.After(time.Second):
		t.Error("Pending request was not resolved on shutdown")
	}
}
