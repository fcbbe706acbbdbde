// Package providers implements the dual-wire-format streaming client: an
// OpenAI-compatible chat/completions SSE client and an Anthropic-native
// /v1/messages SSE client, both hand-rolled against net/http rather than a
// vendored SDK so that the exact wire deviations each API requires (tool
// schema sanitization, OAuth bearer detection, prompt-cache block limits)
// stay visible and testable at this layer.
package providers

import (
	"context"

	"github.com/ivo-run/ivo/pkg/models"
)

// ChunkKind discriminates a streamed chunk.
type ChunkKind string

const (
	ChunkTextDelta     ChunkKind = "text_delta"
	ChunkThinkingDelta ChunkKind = "thinking_delta"
	ChunkToolCall      ChunkKind = "tool_call"
	ChunkUsage         ChunkKind = "usage"
	ChunkError         ChunkKind = "error"
)

// StreamChunk is one unit produced by a provider's stream. Exactly one of
// the payload fields is meaningful, selected by Kind.
type StreamChunk struct {
	Kind     ChunkKind
	Text     string
	Thinking string
	ToolCall *models.ToolCall
	Usage    *models.TokenUsage
	Err      error
}

// Options configures a single stream request. Fields not relevant to a
// given wire format are ignored by that provider.
type Options struct {
	Model              string
	MaxTokens          int
	Temperature        *float64
	PromptCaching      bool
	ExtendedThinking   bool
	ThinkingBudget      int
	APIKey             string
	BaseURL            string
}

// Kind identifies which wire format a provider speaks.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
)

// Stream is the contract both wire-format clients satisfy: stream a single
// turn's worth of chunks onto ch, closing it when the response ends or the
// context is cancelled. The returned error is non-nil only when the request
// body cannot be built; HTTP, transport and provider-reported errors are
// delivered as ChunkError chunks, and ctx cancellation surfaces either as a
// ChunkError or as the end of the stream.
type Stream interface {
	Stream(ctx context.Context, messages []models.Message, system string, tools []models.ToolDefinition, opts Options, ch chan<- StreamChunk) error
}
