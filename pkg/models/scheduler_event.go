package models

import "time"

// SchedulerEvent is emitted by the volley scheduler (and forwarded
// per-task events from the agent loop it drives). Each event carries
// TaskIndex and a monotonic timestamp so callers with no cross-task
// ordering guarantee can still reconstruct a single task's history.
type SchedulerEvent struct {
	Type      SchedulerEventType `json:"type"`
	TaskIndex int                `json:"task_index"`
	Time      time.Time          `json:"time"`

	Attempt   int         `json:"attempt,omitempty"`
	Tool      string      `json:"tool,omitempty"`
	ToolError bool        `json:"tool_error,omitempty"`
	Result    *TaskResult `json:"result,omitempty"`
	Err       string      `json:"error,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
}

// SchedulerEventType enumerates the volley scheduler's event stream.
type SchedulerEventType string

const (
	SchedulerEventTaskStart    SchedulerEventType = "task_start"
	SchedulerEventToolStart    SchedulerEventType = "tool_start"
	SchedulerEventToolEnd      SchedulerEventType = "tool_end"
	SchedulerEventTaskComplete SchedulerEventType = "task_complete"
	SchedulerEventTaskError    SchedulerEventType = "task_error"
	SchedulerEventTaskRetry    SchedulerEventType = "task_retry"
)

// TaskResultStatus is the terminal status of one task execution.
type TaskResultStatus string

const (
	TaskResultSuccess TaskResultStatus = "success"
	TaskResultError   TaskResultStatus = "error"
)

// TaskResult is the user-visible outcome of running one task through
// the volley scheduler.
type TaskResult struct {
	Task       string           `json:"task"`
	Status     TaskResultStatus `json:"status"`
	Result     string           `json:"result,omitempty"`
	Err        string           `json:"error,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	ToolsUsed  []string         `json:"tools_used,omitempty"`
	Tokens     *TokenUsage      `json:"tokens,omitempty"`
}
