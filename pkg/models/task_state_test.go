package models

import (
	"testing"
	"time"
)

func TestApplyEventLifecycle(t *testing.T) {
	state := InitState([]string{"do a", "do b"})
	if len(state.Tasks) != 2 || state.Tasks[0].Status != TaskQueued {
		t.Fatalf("unexpected initial state: %+v", state.Tasks)
	}

	now := time.Now()
	ApplyEvent(state, SchedulerEvent{Type: SchedulerEventTaskStart, TaskIndex: 0, Time: now})
	if state.Tasks[0].Status != TaskRunning || state.Tasks[0].StartedAt == nil {
		t.Fatalf("expected task 0 running, got %+v", state.Tasks[0])
	}

	ApplyEvent(state, SchedulerEvent{Type: SchedulerEventToolStart, TaskIndex: 0, Tool: "read", Time: now})
	if len(state.Tasks[0].Tools) != 1 || state.Tasks[0].Tools[0].EndedAt != nil {
		t.Fatalf("expected one running tool invocation, got %+v", state.Tasks[0].Tools)
	}

	ApplyEvent(state, SchedulerEvent{Type: SchedulerEventToolEnd, TaskIndex: 0, Tool: "read", Time: now.Add(time.Millisecond)})
	if state.Tasks[0].Tools[0].EndedAt == nil {
		t.Fatalf("expected tool invocation closed, got %+v", state.Tasks[0].Tools[0])
	}

	ApplyEvent(state, SchedulerEvent{
		Type: SchedulerEventTaskComplete, TaskIndex: 0, Time: now.Add(2 * time.Millisecond),
		Result: &TaskResult{Task: "do a", Status: TaskResultSuccess, Result: "ok"},
	})
	if state.Tasks[0].Status != TaskDone || state.Tasks[0].Result.Result != "ok" {
		t.Fatalf("expected task 0 done with result, got %+v", state.Tasks[0])
	}
}

func TestApplyEventToolEndWithoutStart(t *testing.T) {
	state := InitState([]string{"solo"})
	ApplyEvent(state, SchedulerEvent{Type: SchedulerEventToolEnd, TaskIndex: 0, Tool: "ghost", Time: time.Now()})
	if len(state.Tasks[0].Tools) != 1 || state.Tasks[0].Tools[0].EndedAt == nil {
		t.Fatalf("expected a synthetic completed invocation, got %+v", state.Tasks[0].Tools)
	}
}

func TestApplyEventRetryClearsTools(t *testing.T) {
	state := InitState([]string{"flaky"})
	now := time.Now()
	ApplyEvent(state, SchedulerEvent{Type: SchedulerEventTaskStart, TaskIndex: 0, Time: now})
	ApplyEvent(state, SchedulerEvent{Type: SchedulerEventToolStart, TaskIndex: 0, Tool: "bash", Time: now})
	ApplyEvent(state, SchedulerEvent{Type: SchedulerEventTaskRetry, TaskIndex: 0, Attempt: 1, Err: "timeout", Time: now})

	task := state.Tasks[0]
	if task.Status != TaskQueued || task.Retries != 1 || len(task.Tools) != 0 || task.Err != "timeout" {
		t.Fatalf("unexpected retry state: %+v", task)
	}
	if task.StartedAt != nil || task.EndedAt != nil {
		t.Fatalf("expected cleared timestamps, got %+v", task)
	}
}

func TestApplyEventOutOfRangeIndexIgnored(t *testing.T) {
	state := InitState([]string{"only"})
	ApplyEvent(state, SchedulerEvent{Type: SchedulerEventTaskStart, TaskIndex: 5, Time: time.Now()})
	if state.Tasks[0].Status != TaskQueued {
		t.Fatalf("expected no mutation from out-of-range index, got %+v", state.Tasks[0])
	}
}

func TestApplyEventTaskError(t *testing.T) {
	state := InitState([]string{"fails"})
	ApplyEvent(state, SchedulerEvent{Type: SchedulerEventTaskError, TaskIndex: 0, Err: "boom", Time: time.Now()})
	if state.Tasks[0].Status != TaskError || state.Tasks[0].Err != "boom" || state.Tasks[0].EndedAt == nil {
		t.Fatalf("unexpected error state: %+v", state.Tasks[0])
	}
}
