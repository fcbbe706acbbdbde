package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ivo-run/ivo/pkg/models"
)

func TestAnthropicStreamTextAndUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"type":"message_start","message":{"usage":{"input_tokens":10}}}`,
			`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hi"}}`,
			`{"type":"content_block_stop","index":0}`,
			`{"type":"message_delta","usage":{"output_tokens":3}}`,
			`{"type":"message_stop"}`,
		}
		for _, e := range events {
			w.Write([]byte("data: " + e + "\n\n"))
		}
	}))
	defer srv.Close()

	p := NewAnthropic()
	ch := make(chan StreamChunk, 16)
	err := p.Stream(context.Background(), nil, "be concise", nil, Options{BaseURL: srv.URL, APIKey: "sk-test", Model: "claude"}, ch)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	var text strings.Builder
	var usage *models.TokenUsage
	for chunk := range ch {
		switch chunk.Kind {
		case ChunkTextDelta:
			text.WriteString(chunk.Text)
		case ChunkUsage:
			usage = chunk.Usage
		case ChunkError:
			t.Fatalf("unexpected error: %v", chunk.Err)
		}
	}
	if text.String() != "hi" {
		t.Fatalf("unexpected text: %q", text.String())
	}
	if usage == nil || usage.InputTokens != 10 || usage.OutputTokens != 3 || usage.TotalTokens != 13 {
		t.Fatalf("unexpected usage: %+v", usage)
	}
}

func TestAnthropicStreamToolUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"read"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"path\":"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"\"a.txt\"}"}}`,
			`{"type":"content_block_stop","index":0}`,
			`{"type":"message_stop"}`,
		}
		for _, e := range events {
			w.Write([]byte("data: " + e + "\n\n"))
		}
	}))
	defer srv.Close()

	p := NewAnthropic()
	ch := make(chan StreamChunk, 16)
	if err := p.Stream(context.Background(), nil, "", nil, Options{BaseURL: srv.URL, APIKey: "sk-test"}, ch); err != nil {
		t.Fatalf("stream: %v", err)
	}

	var calls []*models.ToolCall
	for chunk := range ch {
		if chunk.Kind == ChunkToolCall {
			calls = append(calls, chunk.ToolCall)
		}
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(calls))
	}
	if calls[0].ArgumentsJSON != `{"path":"a.txt"}` {
		t.Fatalf("unexpected arguments: %q", calls[0].ArgumentsJSON)
	}
}

func TestAnthropicOAuthTokenUsesBearerAndBetaHeader(t *testing.T) {
	var gotAuth, gotBeta string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBeta = r.Header.Get("anthropic-beta")
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"type":"message_stop"}` + "\n\n"))
	}))
	defer srv.Close()

	p := NewAnthropic()
	ch := make(chan StreamChunk, 4)
	if err := p.Stream(context.Background(), nil, "", nil, Options{BaseURL: srv.URL, APIKey: "sk-ant-oat-abc", PromptCaching: true}, ch); err != nil {
		t.Fatalf("stream: %v", err)
	}
	for range ch {
	}
	if gotAuth != "Bearer sk-ant-oat-abc" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if !strings.Contains(gotBeta, "oauth-2025-04-20") || !strings.Contains(gotBeta, "prompt-caching-2024-07-31") {
		t.Fatalf("unexpected beta header: %q", gotBeta)
	}
}

func TestAnthropicAPIKeyUsesHeaderAuth(t *testing.T) {
	var gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"type":"message_stop"}` + "\n\n"))
	}))
	defer srv.Close()

	p := NewAnthropic()
	ch := make(chan StreamChunk, 4)
	if err := p.Stream(context.Background(), nil, "", nil, Options{BaseURL: srv.URL, APIKey: "sk-normal"}, ch); err != nil {
		t.Fatalf("stream: %v", err)
	}
	for range ch {
	}
	if gotKey != "sk-normal" {
		t.Fatalf("unexpected x-api-key: %q", gotKey)
	}
	if gotAuth != "" {
		t.Fatalf("expected no Authorization header, got %q", gotAuth)
	}
}

func TestConvertToAnthropicMessagesMergesConsecutiveToolResults(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{{ID: "t1", Name: "read", ArgumentsJSON: `{}`}}},
		{Role: models.RoleTool, ToolCallID: "t1", Content: "result 1"},
		{Role: models.RoleTool, ToolCallID: "t2", Content: "result 2"},
	}
	out := convertToAnthropicMessages(messages)
	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
	if out[1].Role != "user" || len(out[1].Content) != 2 {
		t.Fatalf("expected merged user message with 2 tool_result blocks, got %+v", out[1])
	}
}

func TestBuildAnthropicSystemWithCaching(t *testing.T) {
	blocks, ok := buildAnthropicSystem("be terse", true).([]anthropicSystemBlock)
	if !ok || len(blocks) != 1 || blocks[0].CacheControl == nil {
		t.Fatalf("expected a single cached system block, got %#v", blocks)
	}

	plain, ok := buildAnthropicSystem("be terse", false).(string)
	if !ok || plain != "be terse" {
		t.Fatalf("expected plain string system, got %#v", plain)
	}
}
