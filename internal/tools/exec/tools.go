package exec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ivo-run/ivo/pkg/models"
)

// NewBashTool builds the bash tool definition: runs a shell command
// synchronously or, with background:true, detached and tracked by the
// manager for later inspection via the process tool.
func NewBashTool(name string, manager *Manager) models.ToolDefinition {
	if strings.TrimSpace(name) == "" {
		name = "bash"
	}

	schema := mustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "Shell command to execute.",
			},
			"cwd": map[string]interface{}{
				"type":        "string",
				"description": "Working directory (relative to workspace).",
			},
			"env": map[string]interface{}{
				"type":        "object",
				"description": "Environment overrides (string values).",
			},
			"input": map[string]interface{}{
				"type":        "string",
				"description": "Stdin content to pass to the command.",
			},
			"timeout_seconds": map[string]interface{}{
				"type":        "integer",
				"description": "Timeout in seconds (0 = no timeout).",
				"minimum":     0,
			},
			"background": map[string]interface{}{
				"type":        "boolean",
				"description": "Run in background and return a process id.",
			},
		},
		"required": []string{"command"},
	})

	return models.ToolDefinition{
		Name:            name,
		Description:     "Run a shell command in the workspace (supports optional background execution).",
		ParameterSchema: schema,
		Execute: func(ctx context.Context, callID string, params json.RawMessage) (*models.ToolResult, error) {
			return executeBash(ctx, manager, params)
		},
	}
}

func executeBash(ctx context.Context, manager *Manager, params json.RawMessage) (*models.ToolResult, error) {
	if manager == nil {
		return models.ErrorResult("exec manager unavailable"), nil
	}
	var input struct {
		Command        string            `json:"command"`
		Cwd            string            `json:"cwd"`
		Env            map[string]string `json:"env"`
		Input          string            `json:"input"`
		TimeoutSeconds int               `json:"timeout_seconds"`
		Background     bool              `json:"background"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return models.ErrorResult(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	command := strings.TrimSpace(input.Command)
	if command == "" {
		return models.ErrorResult("command is required"), nil
	}

	timeout := time.Duration(input.TimeoutSeconds) * time.Second

	if input.Background {
		proc, err := manager.startBackground(ctx, command, input.Cwd, input.Env, input.Input, timeout)
		if err != nil {
			return models.ErrorResult(err.Error()), nil
		}
		payload, _ := json.MarshalIndent(map[string]interface{}{
			"status":     "running",
			"process_id": proc.id,
		}, "", "  ")
		return models.TextResult(string(payload)), nil
	}

	result, err := manager.runSync(ctx, command, input.Cwd, input.Env, input.Input, timeout)
	if err != nil {
		return models.ErrorResult(err.Error()), nil
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("encode result: %v", err)), nil
	}
	return models.TextResult(string(payload)), nil
}

// NewProcessTool builds the process tool definition: inspects and
// manages background processes started by the bash tool.
func NewProcessTool(manager *Manager) models.ToolDefinition {
	schema := mustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"description": "Action: list, status, log, write, kill, remove.",
			},
			"process_id": map[string]interface{}{
				"type":        "string",
				"description": "Process id for actions that target a process.",
			},
			"input": map[string]interface{}{
				"type":        "string",
				"description": "Input for write action.",
			},
		},
		"required": []string{"action"},
	})

	return models.ToolDefinition{
		Name:            "process",
		Description:     "Manage background exec processes (list, status, log, write, kill, remove).",
		ParameterSchema: schema,
		Execute: func(ctx context.Context, callID string, params json.RawMessage) (*models.ToolResult, error) {
			return executeProcess(manager, params)
		},
	}
}

func executeProcess(manager *Manager, params json.RawMessage) (*models.ToolResult, error) {
	if manager == nil {
		return models.ErrorResult("process manager unavailable"), nil
	}
	var input struct {
		Action    string `json:"action"`
		ProcessID string `json:"process_id"`
		Input     string `json:"input"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return models.ErrorResult(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	action := strings.ToLower(strings.TrimSpace(input.Action))
	if action == "" {
		return models.ErrorResult("action is required"), nil
	}

	switch action {
	case "list":
		payload, _ := json.MarshalIndent(map[string]interface{}{"processes": manager.list()}, "", "  ")
		return models.TextResult(string(payload)), nil
	case "status", "log", "write", "kill", "remove":
		if strings.TrimSpace(input.ProcessID) == "" {
			return models.ErrorResult("process_id is required"), nil
		}
		proc, ok := manager.get(strings.TrimSpace(input.ProcessID))
		if !ok {
			return models.ErrorResult("process not found"), nil
		}
		switch action {
		case "status":
			payload, _ := json.MarshalIndent(proc.info(), "", "  ")
			return models.TextResult(string(payload)), nil
		case "log":
			payload, _ := json.MarshalIndent(map[string]interface{}{
				"stdout": proc.stdout.String(),
				"stderr": proc.stderr.String(),
				"status": proc.status(),
			}, "", "  ")
			return models.TextResult(string(payload)), nil
		case "write":
			if proc.stdin == nil {
				return models.ErrorResult("process stdin unavailable"), nil
			}
			if input.Input == "" {
				return models.ErrorResult("input is required"), nil
			}
			if _, err := proc.stdin.Write([]byte(input.Input)); err != nil {
				return models.ErrorResult(fmt.Sprintf("write stdin: %v", err)), nil
			}
			return models.TextResult(`{"status":"written"}`), nil
		case "kill":
			if proc.cmd.Process == nil {
				return models.ErrorResult("process not running"), nil
			}
			if err := proc.cmd.Process.Kill(); err != nil {
				return models.ErrorResult(fmt.Sprintf("kill process: %v", err)), nil
			}
			return models.TextResult(`{"status":"killed"}`), nil
		case "remove":
			if proc.status() == "running" {
				return models.ErrorResult("process still running"), nil
			}
			if !manager.remove(proc.id) {
				return models.ErrorResult("remove failed"), nil
			}
			return models.TextResult(`{"status":"removed"}`), nil
		}
	}
	return models.ErrorResult("unsupported action"), nil
}

func mustSchema(schema map[string]interface{}) json.RawMessage {
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}
