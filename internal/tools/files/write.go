package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivo-run/ivo/pkg/models"
)

// NewWriteTool builds the write tool definition, scoped to the workspace.
func NewWriteTool(cfg Config) models.ToolDefinition {
	resolver := Resolver{Root: cfg.Workspace}

	schema := mustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to write (relative to workspace).",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "File contents to write.",
			},
			"append": map[string]interface{}{
				"type":        "boolean",
				"description": "Append instead of overwrite (default: false).",
			},
		},
		"required": []string{"path", "content"},
	})

	return models.ToolDefinition{
		Name:            "write",
		Description:     "Write content to a file in the workspace (overwrites by default).",
		ParameterSchema: schema,
		Execute: func(ctx context.Context, callID string, params json.RawMessage) (*models.ToolResult, error) {
			return executeWrite(resolver, params)
		},
	}
}

func executeWrite(resolver Resolver, params json.RawMessage) (*models.ToolResult, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Append  bool   `json:"append"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return models.ErrorResult(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return models.ErrorResult("path is required"), nil
	}

	resolved, err := resolver.Resolve(input.Path)
	if err != nil {
		return models.ErrorResult(err.Error()), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return models.ErrorResult(fmt.Sprintf("create directory: %v", err)), nil
	}

	flags := os.O_CREATE | os.O_WRONLY
	if input.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("open file: %v", err)), nil
	}
	defer file.Close()

	n, err := file.WriteString(input.Content)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("write file: %v", err)), nil
	}

	result := map[string]interface{}{
		"path":          input.Path,
		"bytes_written": n,
		"append":        input.Append,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("encode result: %v", err)), nil
	}
	return models.TextResult(string(payload)), nil
}
