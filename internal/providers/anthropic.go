package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ivo-run/ivo/pkg/models"
)

// Anthropic speaks the Anthropic-native /v1/messages wire format, including
// OAuth bearer auth, prompt caching, and extended thinking.
type Anthropic struct {
	base
	client *http.Client
}

// NewAnthropic builds a client for the Anthropic /v1/messages API.
func NewAnthropic() *Anthropic {
	return &Anthropic{
		base:   newBase("anthropic", 3, time.Second),
		client: &http.Client{},
	}
}

type anthropicSystemBlock struct {
	Type         string               `json:"type"`
	Text         string               `json:"text"`
	CacheControl *anthropicCacheControl `json:"cache_control,omitempty"`
}

type anthropicCacheControl struct {
	Type string `json:"type"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type         string                  `json:"type"`
	Text         string                  `json:"text,omitempty"`
	ID           string                  `json:"id,omitempty"`
	Name         string                  `json:"name,omitempty"`
	Input        json.RawMessage         `json:"input,omitempty"`
	ToolUseID    string                  `json:"tool_use_id,omitempty"`
	Content      string                  `json:"content,omitempty"`
	IsError      bool                    `json:"is_error,omitempty"`
	CacheControl *anthropicCacheControl `json:"cache_control,omitempty"`
}

type anthropicTool struct {
	Name         string                  `json:"name"`
	Description  string                  `json:"description"`
	InputSchema  json.RawMessage         `json:"input_schema"`
	CacheControl *anthropicCacheControl `json:"cache_control,omitempty"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicRequest struct {
	Model     string                  `json:"model"`
	Messages  []anthropicMessage      `json:"messages"`
	System    interface{}             `json:"system,omitempty"`
	Tools     []anthropicTool         `json:"tools,omitempty"`
	MaxTokens int                     `json:"max_tokens"`
	Stream    bool                    `json:"stream"`
	Thinking  *anthropicThinking      `json:"thinking,omitempty"`
}

// Stream implements the Stream interface for the Anthropic-native format.
func (p *Anthropic) Stream(ctx context.Context, messages []models.Message, system string, tools []models.ToolDefinition, opts Options, ch chan<- StreamChunk) error {
	defer close(ch)

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	req := anthropicRequest{
		Model:     opts.Model,
		Messages:  convertToAnthropicMessages(messages),
		System:    buildAnthropicSystem(system, opts.PromptCaching),
		Tools:     convertToAnthropicTools(tools, opts.PromptCaching),
		MaxTokens: maxTokens,
		Stream:    true,
	}
	if opts.ExtendedThinking {
		budget := opts.ThinkingBudget
		if budget < 1024 {
			budget = 1024
		}
		req.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: budget}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var resp *http.Response
	retryErr := p.retry(ctx, func(err error) bool {
		statusErr, ok := err.(*httpStatusError)
		return ok && isRetryableHTTPStatus(statusErr.status)
	}, func() error {
		url := strings.TrimRight(opts.BaseURL, "/") + "/v1/messages"
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("anthropic-version", "2023-06-01")

		var betas []string
		if strings.HasPrefix(opts.APIKey, "sk-ant-oat") {
			httpReq.Header.Set("Authorization", "Bearer "+opts.APIKey)
			betas = append(betas, "oauth-2025-04-20")
		} else {
			httpReq.Header.Set("x-api-key", opts.APIKey)
		}
		if opts.PromptCaching {
			betas = append(betas, "prompt-caching-2024-07-31")
		}
		if len(betas) > 0 {
			httpReq.Header.Set("anthropic-beta", strings.Join(betas, ","))
		}

		r, err := p.client.Do(httpReq)
		if err != nil {
			return err
		}
		if r.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(r.Body)
			r.Body.Close()
			return &httpStatusError{status: r.StatusCode, body: string(body)}
		}
		resp = r
		return nil
	})
	if retryErr != nil {
		ch <- StreamChunk{Kind: ChunkError, Err: parseAnthropicError(retryErr)}
		return nil
	}
	defer resp.Body.Close()

	streamAnthropicSSE(ctx, resp.Body, ch)
	return nil
}

func buildAnthropicSystem(system string, promptCaching bool) interface{} {
	if system == "" {
		return nil
	}
	if !promptCaching {
		return system
	}
	return []anthropicSystemBlock{{
		Type:         "text",
		Text:         system,
		CacheControl: &anthropicCacheControl{Type: "ephemeral"},
	}}
}

func convertToAnthropicTools(tools []models.ToolDefinition, promptCaching bool) []anthropicTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropicTool, len(tools))
	for i, tool := range tools {
		out[i] = anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: sanitizeSchema(tool.ParameterSchema),
		}
	}
	// Anthropic's block-count limit on cache_control is four; attach it to
	// the last tool only.
	if promptCaching && len(out) > 0 {
		out[len(out)-1].CacheControl = &anthropicCacheControl{Type: "ephemeral"}
	}
	return out
}

func convertToAnthropicMessages(messages []models.Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(messages))
	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		switch msg.Role {
		case models.RoleAssistant:
			blocks := []anthropicContentBlock{}
			if msg.Content != "" {
				blocks = append(blocks, anthropicContentBlock{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				input := json.RawMessage(tc.ArgumentsJSON)
				if !json.Valid(input) {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropicContentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: input,
				})
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: blocks})
		case models.RoleTool:
			// Consecutive tool results merge into a single user message.
			blocks := []anthropicContentBlock{{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   msg.Content,
			}}
			for i+1 < len(messages) && messages[i+1].Role == models.RoleTool {
				i++
				blocks = append(blocks, anthropicContentBlock{
					Type:      "tool_result",
					ToolUseID: messages[i].ToolCallID,
					Content:   messages[i].Content,
				})
			}
			out = append(out, anthropicMessage{Role: "user", Content: blocks})
		default:
			out = append(out, anthropicMessage{
				Role:    string(msg.Role),
				Content: []anthropicContentBlock{{Type: "text", Text: msg.Content}},
			})
		}
	}
	return out
}

type anthropicSSEEvent struct {
	Type         string                 `json:"type"`
	Index        int                    `json:"index"`
	Message      *anthropicSSEMessage   `json:"message,omitempty"`
	ContentBlock *anthropicContentBlock `json:"content_block,omitempty"`
	Delta        *anthropicSSEDelta     `json:"delta,omitempty"`
	Usage        *anthropicSSEUsage     `json:"usage,omitempty"`
}

type anthropicSSEMessage struct {
	Usage *anthropicSSEUsage `json:"usage"`
}

type anthropicSSEDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Thinking    string `json:"thinking"`
	PartialJSON string `json:"partial_json"`
}

type anthropicSSEUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func streamAnthropicSSE(ctx context.Context, body io.Reader, ch chan<- StreamChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)

	blocks := map[int]string{}          // index -> block type
	toolCalls := map[int]*models.ToolCall{}
	toolInputs := map[int]*strings.Builder{}

	var inputTokens, outputTokens int

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
		if strings.TrimSpace(data) == "" {
			continue
		}

		var event anthropicSSEEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil && event.Message.Usage != nil {
				inputTokens = event.Message.Usage.InputTokens
			}
		case "content_block_start":
			if event.ContentBlock == nil {
				continue
			}
			blocks[event.Index] = event.ContentBlock.Type
			if event.ContentBlock.Type == "tool_use" {
				toolCalls[event.Index] = &models.ToolCall{
					ID:   event.ContentBlock.ID,
					Name: event.ContentBlock.Name,
				}
				toolInputs[event.Index] = &strings.Builder{}
			}
		case "content_block_delta":
			if event.Delta == nil {
				continue
			}
			switch event.Delta.Type {
			case "text_delta":
				select {
				case ch <- StreamChunk{Kind: ChunkTextDelta, Text: event.Delta.Text}:
				case <-ctx.Done():
					return
				}
			case "thinking_delta":
				select {
				case ch <- StreamChunk{Kind: ChunkThinkingDelta, Thinking: event.Delta.Thinking}:
				case <-ctx.Done():
					return
				}
			case "input_json_delta":
				if builder, ok := toolInputs[event.Index]; ok {
					builder.WriteString(event.Delta.PartialJSON)
				}
			}
		case "content_block_stop":
			if blocks[event.Index] == "tool_use" {
				tc := toolCalls[event.Index]
				args := "{}"
				if builder, ok := toolInputs[event.Index]; ok && builder.Len() > 0 {
					args = builder.String()
				}
				if !json.Valid([]byte(args)) {
					args = "{}"
				}
				tc.ArgumentsJSON = args
				select {
				case ch <- StreamChunk{Kind: ChunkToolCall, ToolCall: tc}:
				case <-ctx.Done():
					return
				}
			}
		case "message_delta":
			if event.Usage != nil {
				outputTokens = event.Usage.OutputTokens
			}
		case "message_stop":
			select {
			case ch <- StreamChunk{Kind: ChunkUsage, Usage: &models.TokenUsage{
				InputTokens:  inputTokens,
				OutputTokens: outputTokens,
				TotalTokens:  inputTokens + outputTokens,
			}}:
			case <-ctx.Done():
			}
		}
	}
}

func parseAnthropicError(err error) error {
	statusErr, ok := err.(*httpStatusError)
	if !ok {
		return err
	}
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if jsonErr := json.Unmarshal([]byte(statusErr.body), &parsed); jsonErr == nil && parsed.Error.Message != "" {
		return fmt.Errorf("%s", parsed.Error.Message)
	}
	body := statusErr.body
	if len(body) > 500 {
		body = body[:500]
	}
	return fmt.Errorf("http %d: %s", statusErr.status, body)
}
