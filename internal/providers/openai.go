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

// OpenAI speaks the OpenAI-compatible chat/completions wire format.
type OpenAI struct {
	base
	client *http.Client
}

// NewOpenAI builds a client for any OpenAI-compatible chat/completions API.
func NewOpenAI() *OpenAI {
	return &OpenAI{
		base:   newBase("openai", 3, time.Second),
		client: &http.Client{},
	}
}

type openaiMessage struct {
	Role       string              `json:"role"`
	Content    interface{}         `json:"content"`
	ToolCalls  []openaiToolCallReq `json:"tool_calls,omitempty"`
	ToolCallID string              `json:"tool_call_id,omitempty"`
	Name       string              `json:"name,omitempty"`
}

type openaiToolCallReq struct {
	ID       string              `json:"id"`
	Type     string              `json:"type"`
	Function openaiFunctionCall  `json:"function"`
}

type openaiFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openaiTool struct {
	Type     string         `json:"type"`
	Function openaiFunction `json:"function"`
}

type openaiFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type openaiRequest struct {
	Model         string          `json:"model"`
	Messages      []openaiMessage `json:"messages"`
	Tools         []openaiTool    `json:"tools,omitempty"`
	Stream        bool            `json:"stream"`
	StreamOptions *struct {
		IncludeUsage bool `json:"include_usage"`
	} `json:"stream_options,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type openaiChunk struct {
	Choices []openaiChoice `json:"choices"`
	Usage   *openaiUsage   `json:"usage"`
}

type openaiChoice struct {
	Delta        openaiDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type openaiDelta struct {
	Content   string                  `json:"content"`
	ToolCalls []openaiToolCallDelta   `json:"tool_calls"`
}

type openaiToolCallDelta struct {
	Index    int                `json:"index"`
	ID       string             `json:"id"`
	Function openaiFunctionCall `json:"function"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Stream implements the Stream interface for the OpenAI-compatible format.
func (p *OpenAI) Stream(ctx context.Context, messages []models.Message, system string, tools []models.ToolDefinition, opts Options, ch chan<- StreamChunk) error {
	defer close(ch)

	req := openaiRequest{
		Model:         opts.Model,
		Messages:      convertToOpenAIMessages(messages, system),
		Tools:         convertToOpenAITools(tools),
		Stream:        true,
		StreamOptions: &struct {
			IncludeUsage bool `json:"include_usage"`
		}{IncludeUsage: true},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
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
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(opts.BaseURL, "/")+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if opts.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+opts.APIKey)
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
		ch <- StreamChunk{Kind: ChunkError, Err: parseOpenAIError(retryErr)}
		return nil
	}
	defer resp.Body.Close()

	streamOpenAISSE(ctx, resp.Body, ch)
	return nil
}

func streamOpenAISSE(ctx context.Context, body io.Reader, ch chan<- StreamChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)

	type partial struct {
		id   string
		name string
		args strings.Builder
	}
	toolCalls := map[int]*partial{}
	order := []int{}

	flush := func() {
		for _, idx := range order {
			tc := toolCalls[idx]
			if tc == nil || tc.id == "" || tc.name == "" {
				continue
			}
			args := tc.args.String()
			if args == "" {
				args = "{}"
			}
			select {
			case ch <- StreamChunk{Kind: ChunkToolCall, ToolCall: &models.ToolCall{ID: tc.id, Name: tc.name, ArgumentsJSON: args}}:
			case <-ctx.Done():
			}
		}
		toolCalls = map[int]*partial{}
		order = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
		if data == "[DONE]" {
			break
		}

		var chunk openaiChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		if chunk.Usage != nil {
			select {
			case ch <- StreamChunk{Kind: ChunkUsage, Usage: &models.TokenUsage{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
				TotalTokens:  chunk.Usage.TotalTokens,
			}}:
			case <-ctx.Done():
				return
			}
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			select {
			case ch <- StreamChunk{Kind: ChunkTextDelta, Text: choice.Delta.Content}:
			case <-ctx.Done():
				return
			}
		}

		for _, tc := range choice.Delta.ToolCalls {
			if _, ok := toolCalls[tc.Index]; !ok {
				toolCalls[tc.Index] = &partial{}
				order = append(order, tc.Index)
			}
			entry := toolCalls[tc.Index]
			if tc.ID != "" {
				entry.id = tc.ID
			}
			if tc.Function.Name != "" {
				entry.name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				entry.args.WriteString(tc.Function.Arguments)
			}
		}

		if choice.FinishReason == "tool_calls" || choice.FinishReason == "stop" {
			flush()
		}
	}
}

func convertToOpenAIMessages(messages []models.Message, system string) []openaiMessage {
	out := make([]openaiMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openaiMessage{Role: "system", Content: system})
	}
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleAssistant:
			m := openaiMessage{Role: "assistant"}
			if len(msg.ToolCalls) > 0 {
				m.Content = nil
				m.ToolCalls = make([]openaiToolCallReq, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					m.ToolCalls[i] = openaiToolCallReq{
						ID:   tc.ID,
						Type: "function",
						Function: openaiFunctionCall{
							Name:      tc.Name,
							Arguments: tc.ArgumentsJSON,
						},
					}
				}
			} else {
				m.Content = msg.Content
			}
			out = append(out, m)
		case models.RoleTool:
			out = append(out, openaiMessage{
				Role:       "tool",
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		default:
			out = append(out, openaiMessage{Role: string(msg.Role), Content: msg.Content})
		}
	}
	return out
}

func convertToOpenAITools(tools []models.ToolDefinition) []openaiTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openaiTool, len(tools))
	for i, tool := range tools {
		out[i] = openaiTool{
			Type: "function",
			Function: openaiFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  sanitizeSchema(tool.ParameterSchema),
			},
		}
	}
	return out
}

// sanitizeSchema strips keys the OpenAI-compatible endpoint rejects or
// ignores: patternProperties, additionalProperties, $schema, $id. It walks
// nested objects and arrays recursively.
func sanitizeSchema(raw json.RawMessage) json.RawMessage {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	cleaned := stripSchemaKeys(value)
	out, err := json.Marshal(cleaned)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return out
}

var schemaKeysToStrip = map[string]bool{
	"patternProperties":   true,
	"additionalProperties": true,
	"$schema":             true,
	"$id":                 true,
}

func stripSchemaKeys(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			if schemaKeysToStrip[k] {
				continue
			}
			out[k] = stripSchemaKeys(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = stripSchemaKeys(val)
		}
		return out
	default:
		return v
	}
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.status, e.body)
}

func parseOpenAIError(err error) error {
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
