package models

import "time"

// TaskStatus is the lifecycle state of one slot in a volley.
type TaskStatus string

const (
	TaskQueued  TaskStatus = "queued"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskError   TaskStatus = "error"
)

// ToolInvocation records one tool call observed through the scheduler's
// event stream for a task.
type ToolInvocation struct {
	Name      string     `json:"name"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	IsError   bool       `json:"is_error,omitempty"`
}

// TaskState is one row of the volley's shared task-state table, mutated
// in place by ApplyEvent. Terminal states are Done and Error.
type TaskState struct {
	Index     int              `json:"index"`
	Prompt    string           `json:"prompt"`
	Status    TaskStatus       `json:"status"`
	StartedAt *time.Time       `json:"started_at,omitempty"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
	Retries   int              `json:"retries"`
	Tools     []ToolInvocation `json:"tools,omitempty"`
	Result    *TaskResult      `json:"result,omitempty"`
	Err       string           `json:"error,omitempty"`
}

// VolleyState is the full state of a scheduler run: a start time and
// one TaskState per task, indexed by task index.
type VolleyState struct {
	StartTime time.Time   `json:"start_time"`
	Tasks     []TaskState `json:"tasks"`
}

// InitState constructs the initial reducer state for a batch of prompts.
func InitState(prompts []string) *VolleyState {
	tasks := make([]TaskState, len(prompts))
	for i, p := range prompts {
		tasks[i] = TaskState{Index: i, Prompt: p, Status: TaskQueued}
	}
	return &VolleyState{StartTime: time.Now(), Tasks: tasks}
}

// ApplyEvent mutates state in place according to event. It is pure with
// respect to the event: the same (state, event) pair always produces
// the same resulting state, independent of wall-clock time beyond what
// the event itself carries.
func ApplyEvent(state *VolleyState, event SchedulerEvent) {
	if event.TaskIndex < 0 || event.TaskIndex >= len(state.Tasks) {
		return
	}
	t := &state.Tasks[event.TaskIndex]
	now := event.Time

	switch event.Type {
	case SchedulerEventTaskStart:
		t.Status = TaskRunning
		t.StartedAt = &now
		t.Err = ""

	case SchedulerEventToolStart:
		t.Tools = append(t.Tools, ToolInvocation{Name: event.Tool, StartedAt: now})

	case SchedulerEventToolEnd:
		for i := len(t.Tools) - 1; i >= 0; i-- {
			if t.Tools[i].Name == event.Tool && t.Tools[i].EndedAt == nil {
				end := now
				t.Tools[i].EndedAt = &end
				t.Tools[i].IsError = event.ToolError
				return
			}
		}
		end := now
		t.Tools = append(t.Tools, ToolInvocation{Name: event.Tool, StartedAt: now, EndedAt: &end, IsError: event.ToolError})

	case SchedulerEventTaskComplete:
		t.Status = TaskDone
		t.EndedAt = &now
		t.Result = event.Result
		t.Err = ""

	case SchedulerEventTaskError:
		t.Status = TaskError
		t.EndedAt = &now
		t.Err = event.Err

	case SchedulerEventTaskRetry:
		t.Status = TaskQueued
		t.Retries = event.Attempt
		t.Tools = nil
		t.Err = event.Err
		t.StartedAt = nil
		t.EndedAt = nil
	}
}
