package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ivo-run/ivo/pkg/models"
)

// NewReadTool builds the read tool definition, scoped to the workspace.
func NewReadTool(cfg Config) models.ToolDefinition {
	limit := cfg.MaxReadBytes
	if limit <= 0 {
		limit = 200000
	}
	resolver := Resolver{Root: cfg.Workspace}

	schema := mustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file (relative to workspace).",
			},
			"offset": map[string]interface{}{
				"type":        "integer",
				"description": "Byte offset to start reading from (default: 0).",
				"minimum":     0,
			},
			"max_bytes": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum bytes to read (capped by tool default).",
				"minimum":     0,
			},
		},
		"required": []string{"path"},
	})

	return models.ToolDefinition{
		Name:            "read",
		Description:     "Read a file from the workspace with optional offset and byte limit.",
		ParameterSchema: schema,
		Execute: func(ctx context.Context, callID string, params json.RawMessage) (*models.ToolResult, error) {
			return executeRead(resolver, limit, params)
		},
	}
}

func executeRead(resolver Resolver, limit int, params json.RawMessage) (*models.ToolResult, error) {
	var input struct {
		Path     string `json:"path"`
		Offset   int64  `json:"offset"`
		MaxBytes int    `json:"max_bytes"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return models.ErrorResult(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return models.ErrorResult("path is required"), nil
	}
	if input.Offset < 0 {
		return models.ErrorResult("offset must be >= 0"), nil
	}

	resolved, err := resolver.Resolve(input.Path)
	if err != nil {
		return models.ErrorResult(err.Error()), nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("open file: %v", err)), nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("stat file: %v", err)), nil
	}

	if input.Offset > 0 {
		if _, err := file.Seek(input.Offset, io.SeekStart); err != nil {
			return models.ErrorResult(fmt.Sprintf("seek file: %v", err)), nil
		}
	}

	readLimit := limit
	if input.MaxBytes > 0 && input.MaxBytes < readLimit {
		readLimit = input.MaxBytes
	}

	remaining := int64(readLimit)
	if size := info.Size(); size > 0 {
		remaining = size - input.Offset
		if remaining < 0 {
			remaining = 0
		}
		if remaining > int64(readLimit) {
			remaining = int64(readLimit)
		}
	}

	buf, err := io.ReadAll(io.LimitReader(file, remaining))
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("read file: %v", err)), nil
	}

	truncated := info.Size() > 0 && input.Offset+int64(len(buf)) < info.Size()

	result := map[string]interface{}{
		"path":      input.Path,
		"content":   string(buf),
		"offset":    input.Offset,
		"bytes":     len(buf),
		"truncated": truncated,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("encode result: %v", err)), nil
	}
	return models.TextResult(string(payload)), nil
}

func mustSchema(schema map[string]interface{}) json.RawMessage {
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}
