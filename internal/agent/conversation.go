package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ivo-run/ivo/pkg/models"
)

// callDescriptor is a canonicalized tool invocation used to detect
// repetitive calls: same name, same argument hash.
type callDescriptor struct {
	name string
	hash string
}

// callRing is a fixed-capacity ring buffer of recent tool call
// descriptors. It reports when the last three pushes are identical,
// per the loop's repetitive-call guard.
type callRing struct {
	capacity int
	entries  []callDescriptor
}

func newCallRing(capacity int) *callRing {
	return &callRing{capacity: capacity}
}

// push records d and reports whether the ring now holds `capacity`
// consecutive identical descriptors.
func (r *callRing) push(d callDescriptor) bool {
	r.entries = append(r.entries, d)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
	if len(r.entries) < r.capacity {
		return false
	}
	first := r.entries[0]
	for _, e := range r.entries[1:] {
		if e != first {
			return false
		}
	}
	return true
}

// hashToolCall canonicalizes a tool call's arguments (sorted object
// keys, stable formatting) and hashes name+canonical args so that
// argument-order differences don't defeat repetitive-call detection.
func hashToolCall(name, argumentsJSON string) callDescriptor {
	canon := canonicalJSON(argumentsJSON)
	sum := sha256.Sum256([]byte(name + "\x00" + canon))
	return callDescriptor{name: name, hash: hex.EncodeToString(sum[:])}
}

// canonicalJSON re-serializes a JSON fragment with map keys sorted, so
// that semantically identical arguments hash identically regardless of
// key order. Malformed input is returned unchanged.
func canonicalJSON(raw string) string {
	if raw == "" {
		return ""
	}
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	out, err := marshalCanonical(value)
	if err != nil {
		return raw
	}
	return string(out)
}

func marshalCanonical(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf []byte
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := marshalCanonical(v[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	case []interface{}:
		var buf []byte
		buf = append(buf, '[')
		for i, item := range v {
			if i > 0 {
				buf = append(buf, ',')
			}
			ib, err := marshalCanonical(item)
			if err != nil {
				return nil, err
			}
			buf = append(buf, ib...)
		}
		buf = append(buf, ']')
		return buf, nil
	default:
		return json.Marshal(v)
	}
}

// toolNotFoundMessage builds the tool-role message appended when a
// call resolves to no registered tool.
func toolNotFoundMessage(call models.ToolCall) models.Message {
	return models.Message{
		Role:       models.RoleTool,
		ToolCallID: call.ID,
		Name:       call.Name,
		Content:    fmt.Sprintf("Error: Tool %q not found", call.Name),
	}
}

// toolResultMessage builds the tool-role message appended after a tool
// executes, folding its text blocks back into the transcript.
func toolResultMessage(call models.ToolCall, result *models.ToolResult) models.Message {
	return models.Message{
		Role:       models.RoleTool,
		ToolCallID: call.ID,
		Name:       call.Name,
		Content:    result.Text(),
	}
}

// repetitiveCallMessage is the terminal error raised when the same
// tool call is issued three times in a row.
func repetitiveCallMessage(toolName string) string {
	return fmt.Sprintf("Tried running %s with the same arguments 3 times in a row. There is probably something wrong.", toolName)
}

// toolRoundLimitMessage is the terminal error raised when a turn would
// start a tool round beyond maxToolRounds.
func toolRoundLimitMessage(maxToolRounds int) string {
	return fmt.Sprintf("Stopped after %d tool rounds to prevent infinite loop", maxToolRounds)
}

// assistantMessage builds the assistant message appended after a
// stream ends. Per the wire invariant, text is empty when tool calls
// are present.
func assistantMessage(text string, toolCalls []models.ToolCall) models.Message {
	msg := models.Message{Role: models.RoleAssistant}
	if len(toolCalls) > 0 {
		msg.ToolCalls = toolCalls
		return msg
	}
	msg.Content = text
	return msg
}
