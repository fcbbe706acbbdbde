package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ivo-run/ivo/pkg/models"
)

// NewEditTool builds the edit tool definition, scoped to the workspace.
func NewEditTool(cfg Config) models.ToolDefinition {
	resolver := Resolver{Root: cfg.Workspace}

	schema := mustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to edit (relative to workspace).",
			},
			"edits": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"old_text": map[string]interface{}{
							"type":        "string",
							"description": "Text to replace.",
						},
						"new_text": map[string]interface{}{
							"type":        "string",
							"description": "Replacement text.",
						},
						"replace_all": map[string]interface{}{
							"type":        "boolean",
							"description": "Replace all occurrences (default: false).",
						},
					},
					"required": []string{"old_text", "new_text"},
				},
			},
		},
		"required": []string{"path", "edits"},
	})

	return models.ToolDefinition{
		Name:            "edit",
		Description:     "Apply one or more find/replace edits to a file in the workspace.",
		ParameterSchema: schema,
		Execute: func(ctx context.Context, callID string, params json.RawMessage) (*models.ToolResult, error) {
			return executeEdit(resolver, params)
		},
	}
}

func executeEdit(resolver Resolver, params json.RawMessage) (*models.ToolResult, error) {
	var input struct {
		Path  string `json:"path"`
		Edits []struct {
			OldText    string `json:"old_text"`
			NewText    string `json:"new_text"`
			ReplaceAll bool   `json:"replace_all"`
		} `json:"edits"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return models.ErrorResult(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return models.ErrorResult("path is required"), nil
	}
	if len(input.Edits) == 0 {
		return models.ErrorResult("edits are required"), nil
	}

	resolved, err := resolver.Resolve(input.Path)
	if err != nil {
		return models.ErrorResult(err.Error()), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("read file: %v", err)), nil
	}

	content := string(data)
	replacements := 0
	for _, edit := range input.Edits {
		if edit.OldText == "" {
			return models.ErrorResult("old_text is required"), nil
		}
		if !strings.Contains(content, edit.OldText) {
			return models.ErrorResult("old_text not found"), nil
		}
		if edit.ReplaceAll {
			count := strings.Count(content, edit.OldText)
			content = strings.ReplaceAll(content, edit.OldText, edit.NewText)
			replacements += count
		} else {
			content = strings.Replace(content, edit.OldText, edit.NewText, 1)
			replacements++
		}
	}

	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return models.ErrorResult(fmt.Sprintf("write file: %v", err)), nil
	}

	result := map[string]interface{}{
		"path":         input.Path,
		"replacements": replacements,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("encode result: %v", err)), nil
	}
	return models.TextResult(string(payload)), nil
}
