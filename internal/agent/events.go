package agent

import (
	"sync/atomic"
	"time"

	"github.com/ivo-run/ivo/pkg/models"
)

// Emitter builds and dispatches AgentEvents with a monotonic sequence
// number, mirroring the emitter/sink split used elsewhere in this module
// for the provider-facing event stream.
type Emitter struct {
	runID    string
	sequence uint64
	turn     int
	sink     func(models.AgentEvent)
}

// NewEmitter creates an emitter for a single agent run. sink receives every
// event in emission order; it must not block indefinitely.
func NewEmitter(runID string, sink func(models.AgentEvent)) *Emitter {
	if sink == nil {
		sink = func(models.AgentEvent) {}
	}
	return &Emitter{runID: runID, sink: sink}
}

// SetTurn updates the turn index attached to subsequent events.
func (e *Emitter) SetTurn(turn int) {
	e.turn = turn
}

func (e *Emitter) base(kind models.AgentEventType) models.AgentEvent {
	return models.AgentEvent{
		Version:  1,
		Type:     kind,
		Time:     time.Now(),
		Sequence: atomic.AddUint64(&e.sequence, 1),
		RunID:    e.runID,
		Turn:     e.turn,
	}
}

func (e *Emitter) emit(event models.AgentEvent) {
	e.sink(event)
}

// StreamStart emits stream_start.
func (e *Emitter) StreamStart() {
	e.emit(e.base(models.AgentEventStreamStart))
}

// TextDelta emits a text_delta carrying both the delta and the running total.
func (e *Emitter) TextDelta(delta, full string) {
	event := e.base(models.AgentEventTextDelta)
	event.Text = &models.TextEventPayload{Delta: delta, Full: full}
	e.emit(event)
}

// TextEnd emits text_end with the final accumulated text.
func (e *Emitter) TextEnd(full string) {
	event := e.base(models.AgentEventTextEnd)
	event.Text = &models.TextEventPayload{Full: full}
	e.emit(event)
}

// ThinkingDelta emits a thinking_delta.
func (e *Emitter) ThinkingDelta(delta, full string) {
	event := e.base(models.AgentEventThinkingDelta)
	event.Text = &models.TextEventPayload{Delta: delta, Full: full}
	e.emit(event)
}

// ThinkingEnd emits thinking_end with the final accumulated thinking text.
func (e *Emitter) ThinkingEnd(full string) {
	event := e.base(models.AgentEventThinkingEnd)
	event.Text = &models.TextEventPayload{Full: full}
	e.emit(event)
}

// ToolCallStart emits tool_call_start.
func (e *Emitter) ToolCallStart(callID, name string) {
	event := e.base(models.AgentEventToolCallStart)
	event.Tool = &models.ToolEventPayload{CallID: callID, Name: name}
	e.emit(event)
}

// ToolCallEnd emits tool_call_end.
func (e *Emitter) ToolCallEnd(callID, name string) {
	event := e.base(models.AgentEventToolCallEnd)
	event.Tool = &models.ToolEventPayload{CallID: callID, Name: name}
	e.emit(event)
}

// ToolExecutionStart emits tool_execution_start.
func (e *Emitter) ToolExecutionStart(callID, name string) {
	event := e.base(models.AgentEventToolExecutionStart)
	event.Tool = &models.ToolEventPayload{CallID: callID, Name: name}
	e.emit(event)
}

// ToolExecutionEnd emits tool_execution_end with the tool's result.
func (e *Emitter) ToolExecutionEnd(callID, name string, result *models.ToolResult) {
	event := e.base(models.AgentEventToolExecutionEnd)
	event.Tool = &models.ToolEventPayload{CallID: callID, Name: name, Result: result}
	e.emit(event)
}

// MessageEnd emits message_end with the completed assistant message and
// per-turn token usage.
func (e *Emitter) MessageEnd(message models.Message, usage models.TokenUsage) {
	event := e.base(models.AgentEventMessageEnd)
	event.Message = &models.MessageEventPayload{Message: message, Usage: usage}
	e.emit(event)
}

// TurnEnd emits turn_end with the accumulated usage across the whole run
// and the final assistant message (the one that ended the loop).
func (e *Emitter) TurnEnd(message models.Message, usage models.TokenUsage) {
	event := e.base(models.AgentEventTurnEnd)
	event.Message = &models.MessageEventPayload{Message: message, Usage: usage}
	event.Usage = &usage
	e.emit(event)
}

// Error emits an error event.
func (e *Emitter) Error(err error, retryable bool) {
	event := e.base(models.AgentEventError)
	event.Error = &models.ErrorEventPayload{Message: err.Error(), Retryable: retryable}
	e.emit(event)
}
