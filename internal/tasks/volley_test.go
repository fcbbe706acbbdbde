package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ivo-run/ivo/pkg/models"
)

func TestComputeBackoffLinearAndExponential(t *testing.T) {
	base := 500 * time.Millisecond
	if got := computeBackoff(BackoffLinear, base, 0); got != base {
		t.Fatalf("linear attempt 0: got %v, want %v", got, base)
	}
	if got := computeBackoff(BackoffLinear, base, 2); got != 3*base {
		t.Fatalf("linear attempt 2: got %v, want %v", got, 3*base)
	}
	if got := computeBackoff(BackoffExponential, base, 0); got != base {
		t.Fatalf("exponential attempt 0: got %v, want %v", got, base)
	}
	if got := computeBackoff(BackoffExponential, base, 3); got != 8*base {
		t.Fatalf("exponential attempt 3: got %v, want %v", got, 8*base)
	}
}

func TestVolleyRunReturnsResultsInInputOrder(t *testing.T) {
	tasks := []string{"a", "b", "c", "d"}
	v := New(Config{MaxConcurrent: 2})

	execute := func(ctx context.Context, task string, index, attempt int) (models.TaskResult, error) {
		return models.TaskResult{Result: task + "-done"}, nil
	}

	results := v.Run(context.Background(), tasks, execute, nil)
	if len(results) != len(tasks) {
		t.Fatalf("expected %d results, got %d", len(tasks), len(results))
	}
	for i, task := range tasks {
		if results[i].Status != models.TaskResultSuccess || results[i].Result != task+"-done" {
			t.Fatalf("unexpected result at %d: %+v", i, results[i])
		}
	}
}

func TestVolleyRunRespectsConcurrencyCap(t *testing.T) {
	tasks := make([]string, 10)
	for i := range tasks {
		tasks[i] = "t"
	}
	v := New(Config{MaxConcurrent: 3})

	var inFlight int32
	var maxObserved int32
	execute := func(ctx context.Context, task string, index, attempt int) (models.TaskResult, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxObserved)
			if cur <= max || atomic.CompareAndSwapInt32(&maxObserved, max, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return models.TaskResult{}, nil
	}

	v.Run(context.Background(), tasks, execute, nil)
	if maxObserved > 3 {
		t.Fatalf("observed %d concurrent tasks, cap was 3", maxObserved)
	}
}

func TestVolleyRunRetriesRetryableFailures(t *testing.T) {
	tasks := []string{"flaky"}
	v := New(Config{MaxConcurrent: 1, RetryAttempts: 2, RetryBackoff: BackoffLinear, BackoffBase: time.Millisecond})

	var attempts int32
	execute := func(ctx context.Context, task string, index, attempt int) (models.TaskResult, error) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return models.TaskResult{}, NewTaskError(errors.New("transient"), true)
		}
		return models.TaskResult{Result: "ok"}, nil
	}

	var events []models.SchedulerEvent
	var mu sync.Mutex
	results := v.Run(context.Background(), tasks, execute, func(e models.SchedulerEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	if results[0].Status != models.TaskResultSuccess || results[0].Result != "ok" {
		t.Fatalf("expected eventual success, got %+v", results[0])
	}

	var retryEvents int
	for _, e := range events {
		if e.Type == models.SchedulerEventTaskRetry {
			retryEvents++
		}
	}
	if retryEvents != 2 {
		t.Fatalf("expected 2 retry events, got %d", retryEvents)
	}
}

func TestVolleyRunRetryResumeRespectsConcurrencyCap(t *testing.T) {
	tasks := []string{"flaky", "slow"}
	v := New(Config{MaxConcurrent: 1, RetryAttempts: 1, BackoffBase: time.Millisecond})

	var inFlight int32
	var maxObserved int32
	var flakyAttempts int32

	execute := func(ctx context.Context, task string, index, attempt int) (models.TaskResult, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxObserved)
			if cur <= max || atomic.CompareAndSwapInt32(&maxObserved, max, cur) {
				break
			}
		}

		if task == "flaky" && atomic.AddInt32(&flakyAttempts, 1) == 1 {
			atomic.AddInt32(&inFlight, -1)
			return models.TaskResult{}, NewTaskError(errors.New("transient"), true)
		}

		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return models.TaskResult{Result: "ok"}, nil
	}

	results := v.Run(context.Background(), tasks, execute, nil)
	if maxObserved > 1 {
		t.Fatalf("observed %d concurrent tasks with MaxConcurrent 1, a retry resumed outside the cap", maxObserved)
	}
	for i, r := range results {
		if r.Status != models.TaskResultSuccess {
			t.Fatalf("task %d: expected success, got %+v", i, r)
		}
	}
}

func TestVolleyRunFailsAfterExhaustingRetries(t *testing.T) {
	tasks := []string{"always-fails"}
	v := New(Config{MaxConcurrent: 1, RetryAttempts: 1, BackoffBase: time.Millisecond})

	execute := func(ctx context.Context, task string, index, attempt int) (models.TaskResult, error) {
		return models.TaskResult{}, NewTaskError(errors.New("boom"), true)
	}

	results := v.Run(context.Background(), tasks, execute, nil)
	if results[0].Status != models.TaskResultError {
		t.Fatalf("expected a terminal error result, got %+v", results[0])
	}
}

func TestVolleyRunNonRetryableFailsImmediately(t *testing.T) {
	tasks := []string{"bad-input"}
	v := New(Config{MaxConcurrent: 1, RetryAttempts: 5})

	var attempts int32
	execute := func(ctx context.Context, task string, index, attempt int) (models.TaskResult, error) {
		atomic.AddInt32(&attempts, 1)
		return models.TaskResult{}, NewTaskError(errors.New("validation failed"), false)
	}

	results := v.Run(context.Background(), tasks, execute, nil)
	if results[0].Status != models.TaskResultError {
		t.Fatalf("expected error result, got %+v", results[0])
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-retryable error, got %d", attempts)
	}
}
