package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ivo-run/ivo/internal/providers"
	"github.com/ivo-run/ivo/internal/tools"
	"github.com/ivo-run/ivo/pkg/models"
)

// RunConfig configures a single agent run. Zero-value fields fall back
// to DefaultRunConfig's defaults via sanitizeRunConfig.
type RunConfig struct {
	Model            string
	MaxTokens        int
	Temperature      *float64
	PromptCaching    bool
	ExtendedThinking bool
	ThinkingBudget   int
	APIKey           string
	BaseURL          string

	// MaxToolRounds caps the number of tool-calling rounds in a single
	// run before it's failed to prevent an infinite loop.
	MaxToolRounds int

	// CallRingCapacity is the number of consecutive identical tool
	// calls (name + canonical argument hash) that trip the
	// repetitive-call guard.
	CallRingCapacity int
}

// DefaultRunConfig returns the baseline configuration: 50 tool rounds,
// a 3-entry repetitive-call ring.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		MaxToolRounds:    50,
		CallRingCapacity: 3,
	}
}

func sanitizeRunConfig(c *RunConfig) *RunConfig {
	if c == nil {
		return DefaultRunConfig()
	}
	out := *c
	if out.MaxToolRounds <= 0 {
		out.MaxToolRounds = 50
	}
	if out.CallRingCapacity <= 0 {
		out.CallRingCapacity = 3
	}
	return &out
}

// Run drives a single agent conversation to completion: stream a turn,
// dispatch any tool calls the model requests, and repeat until the
// model stops requesting tools (or a limit is hit). It holds no
// cross-run state; callers construct a fresh Run per conversation.
type Run struct {
	id       string
	provider providers.Stream
	registry *tools.Registry
	config   *RunConfig
}

// NewRun constructs a Run. provider is the wire-format client selected
// by the caller (OpenAI-compatible or Anthropic-native); registry
// supplies the tool definitions advertised to the model and dispatches
// tool calls.
func NewRun(provider providers.Stream, registry *tools.Registry, config *RunConfig) *Run {
	return &Run{
		id:       uuid.NewString(),
		provider: provider,
		registry: registry,
		config:   sanitizeRunConfig(config),
	}
}

// Execute runs the conversation to completion, emitting AgentEvents to
// sink as it goes, and returns the final assistant message and the
// usage accumulated across the whole run. sink may be nil.
func (r *Run) Execute(ctx context.Context, system, userMessage string, sink func(models.AgentEvent)) (models.Message, models.TokenUsage, error) {
	emitter := NewEmitter(r.id, sink)

	messages := []models.Message{{Role: models.RoleUser, Content: userMessage}}
	ring := newCallRing(r.config.CallRingCapacity)

	var totalUsage models.TokenUsage
	toolDefs := r.registry.Definitions()

	turn := 0
	toolRound := 0

	for {
		select {
		case <-ctx.Done():
			return models.Message{}, totalUsage, NewRunError(fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err()))
		default:
		}

		if toolRound >= r.config.MaxToolRounds {
			err := fmt.Errorf("%w: %s", ErrToolRoundLimit, toolRoundLimitMessage(r.config.MaxToolRounds))
			emitter.Error(err, false)
			return models.Message{}, totalUsage, NewRunError(err)
		}

		emitter.SetTurn(turn)
		emitter.StreamStart()

		opts := providers.Options{
			Model:            r.config.Model,
			MaxTokens:        r.config.MaxTokens,
			Temperature:      r.config.Temperature,
			PromptCaching:    r.config.PromptCaching,
			ExtendedThinking: r.config.ExtendedThinking,
			ThinkingBudget:   r.config.ThinkingBudget,
			APIKey:           r.config.APIKey,
			BaseURL:          r.config.BaseURL,
		}

		ch := make(chan providers.StreamChunk, 64)
		streamErrCh := make(chan error, 1)
		go func() {
			streamErrCh <- r.provider.Stream(ctx, messages, system, toolDefs, opts, ch)
		}()

		var text, thinking string
		var toolCalls []models.ToolCall
		var turnUsage models.TokenUsage
		var streamErr error

		for chunk := range ch {
			switch chunk.Kind {
			case providers.ChunkTextDelta:
				text += chunk.Text
				emitter.TextDelta(chunk.Text, text)
			case providers.ChunkThinkingDelta:
				thinking += chunk.Thinking
				emitter.ThinkingDelta(chunk.Thinking, thinking)
			case providers.ChunkToolCall:
				if chunk.ToolCall != nil {
					toolCalls = append(toolCalls, *chunk.ToolCall)
				}
			case providers.ChunkUsage:
				if chunk.Usage != nil {
					turnUsage = *chunk.Usage
				}
			case providers.ChunkError:
				streamErr = chunk.Err
			}
		}

		if err := <-streamErrCh; err != nil {
			emitter.Error(err, false)
			return models.Message{}, totalUsage, NewRunError(err)
		}
		if streamErr != nil {
			emitter.Error(streamErr, false)
			return models.Message{}, totalUsage, NewRunError(streamErr)
		}

		if thinking != "" {
			emitter.ThinkingEnd(thinking)
		}
		if text != "" || len(toolCalls) == 0 {
			emitter.TextEnd(text)
		}

		totalUsage.Add(turnUsage)

		assistant := assistantMessage(text, toolCalls)
		messages = append(messages, assistant)
		emitter.MessageEnd(assistant, turnUsage)

		if len(toolCalls) == 0 {
			emitter.TurnEnd(assistant, totalUsage)
			return assistant, totalUsage, nil
		}

		toolRound++

		for _, call := range toolCalls {
			def, ok := r.registry.Lookup(call.Name)
			if !ok {
				messages = append(messages, toolNotFoundMessage(call))
				continue
			}

			descriptor := hashToolCall(call.Name, call.ArgumentsJSON)
			if ring.push(descriptor) {
				err := fmt.Errorf("%w: %s", ErrRepetitiveToolCall, repetitiveCallMessage(call.Name))
				emitter.Error(err, false)
				return models.Message{}, totalUsage, NewRunError(err)
			}

			emitter.ToolCallStart(call.ID, call.Name)
			emitter.ToolExecutionStart(call.ID, call.Name)

			result, execErr := r.registry.Execute(ctx, call.ID, def.Name, []byte(call.ArgumentsJSON))
			if execErr != nil {
				result = models.ErrorResult(execErr.Error())
			}

			emitter.ToolExecutionEnd(call.ID, call.Name, result)
			emitter.ToolCallEnd(call.ID, call.Name)

			messages = append(messages, toolResultMessage(call, result))
		}

		turn++
	}
}
