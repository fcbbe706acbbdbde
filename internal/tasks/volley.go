// Package tasks implements the volley scheduler (C5): running a batch
// of caller-supplied agent tasks under a concurrency cap, with
// per-task timeout and retry+backoff, emitting a structured event
// stream as it goes.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/ivo-run/ivo/pkg/models"
)

// BackoffStrategy selects the retry delay formula.
type BackoffStrategy string

const (
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// Config configures a volley run.
type Config struct {
	// MaxConcurrent caps the number of tasks running at once. Defaults to 3.
	MaxConcurrent int

	// RetryAttempts is the number of retries allowed per task on a
	// retryable failure (0 means no retries).
	RetryAttempts int

	// RetryBackoff selects the backoff formula. Defaults to exponential.
	RetryBackoff BackoffStrategy

	// BackoffBase is the base duration the backoff formula scales from.
	// Defaults to 500ms.
	BackoffBase time.Duration

	// Timeout bounds a single task attempt; zero means no timeout.
	Timeout time.Duration
}

func sanitizeConfig(c Config) Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	if c.RetryBackoff == "" {
		c.RetryBackoff = BackoffExponential
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	return c
}

// ExecuteFunc runs a single task attempt. index is the task's position
// in the input slice; attempt is 0 on the first try. An error wrapped
// with NewTaskError carries its own retryable flag; any other error
// defaults to retryable only when it stems from the per-task timeout.
type ExecuteFunc func(ctx context.Context, task string, index, attempt int) (models.TaskResult, error)

// Volley runs a batch of tasks under a concurrency cap.
type Volley struct {
	config Config
}

// New constructs a Volley scheduler.
func New(config Config) *Volley {
	return &Volley{config: sanitizeConfig(config)}
}

type outcome struct {
	index, attempt int
	result         models.TaskResult
	err            error
}

type readyTask struct {
	index, attempt int
}

// Run executes tasks to completion and returns their results in input
// order. sink, if non-nil, receives the scheduler's event stream;
// events from concurrent tasks may interleave but preserve per-task
// causal order.
func (v *Volley) Run(ctx context.Context, tasks []string, execute ExecuteFunc, sink func(models.SchedulerEvent)) []models.TaskResult {
	if sink == nil {
		sink = func(models.SchedulerEvent) {}
	}

	n := len(tasks)
	results := make([]models.TaskResult, n)
	if n == 0 {
		return results
	}

	outcomes := make(chan outcome, n)
	ready := make(chan readyTask, n)

	start := func(index, attempt int) {
		sink(models.SchedulerEvent{Type: models.SchedulerEventTaskStart, TaskIndex: index, Attempt: attempt, Time: time.Now()})

		taskCtx := ctx
		var cancel context.CancelFunc
		if v.config.Timeout > 0 {
			taskCtx, cancel = context.WithTimeout(ctx, v.config.Timeout)
		}

		go func() {
			if cancel != nil {
				defer cancel()
			}
			begin := time.Now()
			done := make(chan outcome, 1)
			go func() {
				res, err := execute(taskCtx, tasks[index], index, attempt)
				done <- outcome{result: res, err: err}
			}()
			var o outcome
			select {
			case o = <-done:
			case <-taskCtx.Done():
				o.err = taskCtx.Err()
			}
			var te *TaskError
			if taskCtx.Err() == context.DeadlineExceeded && !errors.As(o.err, &te) {
				o.err = NewTaskError(errTimeout, true)
			}
			if o.result.DurationMs == 0 {
				o.result.DurationMs = time.Since(begin).Milliseconds()
			}
			outcomes <- outcome{index: index, attempt: attempt, result: o.result, err: o.err}
		}()
	}

	pending := 0
	inFlight := 0
	completed := 0
	var retryQueue []readyTask

	// admit starts work up to the concurrency cap, preferring
	// backoff-expired retries over fresh tasks so a retry doesn't wait
	// behind the whole remaining batch.
	admit := func() {
		for inFlight < v.config.MaxConcurrent {
			if len(retryQueue) > 0 {
				rt := retryQueue[0]
				retryQueue = retryQueue[1:]
				start(rt.index, rt.attempt)
				inFlight++
				continue
			}
			if pending < n {
				start(pending, 0)
				pending++
				inFlight++
				continue
			}
			break
		}
	}
	admit()

	for completed < n {
		select {
		case o := <-outcomes:
			inFlight--
			switch {
			case o.err == nil:
				o.result.Task = tasks[o.index]
				o.result.Status = models.TaskResultSuccess
				results[o.index] = o.result
				sink(models.SchedulerEvent{Type: models.SchedulerEventTaskComplete, TaskIndex: o.index, Time: time.Now(), Result: &o.result})
				completed++

			case o.attempt < v.config.RetryAttempts && isRetryable(o.err):
				next := o.attempt + 1
				delay := computeBackoff(v.config.RetryBackoff, v.config.BackoffBase, o.attempt)
				sink(models.SchedulerEvent{Type: models.SchedulerEventTaskRetry, TaskIndex: o.index, Attempt: next, Time: time.Now(), Err: o.err.Error(), Retryable: true})
				go func(idx, att int, wait time.Duration) {
					timer := time.NewTimer(wait)
					defer timer.Stop()
					select {
					case <-timer.C:
						ready <- readyTask{index: idx, attempt: att}
					case <-ctx.Done():
					}
				}(o.index, next, delay)

			default:
				o.result.Task = tasks[o.index]
				o.result.Status = models.TaskResultError
				o.result.Err = o.err.Error()
				results[o.index] = o.result
				sink(models.SchedulerEvent{Type: models.SchedulerEventTaskError, TaskIndex: o.index, Time: time.Now(), Err: o.err.Error()})
				completed++
			}

		case rt := <-ready:
			// Route back through admission instead of starting
			// directly: a freed slot may already be claimed by a
			// fresh pending task, and starting unconditionally here
			// would push inFlight past MaxConcurrent.
			retryQueue = append(retryQueue, rt)

		case <-ctx.Done():
			for i := range results {
				if results[i].Status == "" {
					results[i] = models.TaskResult{Task: tasks[i], Status: models.TaskResultError, Err: ctx.Err().Error()}
				}
			}
			return results
		}

		admit()
	}

	return results
}
