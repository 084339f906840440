package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/harun/vtool/pkg/toolexecutor"
	"github.com/kaptinlin/jsonrepair"
)

// ReplyKind classifies a collaborator reply.
type ReplyKind string

const (
	ReplyListTools    ReplyKind = "list_tools"
	ReplyDescribeTool ReplyKind = "describe_tool"
	ReplyToolCall     ReplyKind = "tool_call"
	ReplyFinalAnswer  ReplyKind = "final_answer"
	ReplyUnrecognized ReplyKind = "unrecognized"
)

// FinalAnswer is the collaborator's stated result.
type FinalAnswer struct {
	Value     float64
	FinalStep *int
}

// Reply is one classified collaborator turn.
type Reply struct {
	Kind     ReplyKind
	ToolName string                        // ReplyDescribeTool
	Call     *toolexecutor.ToolCallRequest // ReplyToolCall
	Final    *FinalAnswer                  // ReplyFinalAnswer
	Problem  string                        // ReplyUnrecognized: why classification failed
	Content  string                        // raw text content
	Native   *ToolCall                     // the native call this reply came from, if any
	Usage    *TokenUsage
	Provider string
}

// Transcript returns the messages to append to history for this reply and
// the driver's response to it.
func (r Reply) Transcript(response string) []AgentMessage {
	if r.Native != nil {
		return []AgentMessage{
			{Role: "assistant", Content: r.Content, ToolCalls: []ToolCall{*r.Native}},
			{Role: "tool", Content: response, ToolCallID: r.Native.ID},
		}
	}
	return []AgentMessage{
		{Role: "assistant", Content: r.Content},
		{Role: "user", Content: response},
	}
}

// ClassifyResponse turns a provider response into a Reply. Native tool calls
// take precedence over text.
func ClassifyResponse(resp *LLMResponse) Reply {
	if resp == nil {
		return Reply{Kind: ReplyUnrecognized, Problem: "empty response"}
	}

	var reply Reply
	if len(resp.ToolCalls) > 0 {
		call := resp.ToolCalls[0]
		if call.ArgumentsError != "" {
			reply = Reply{Kind: ReplyUnrecognized, Problem: call.ArgumentsError}
		} else {
			reply = classifyAction(call.Name, call.Parameters)
		}
		reply.Native = &call
	} else {
		reply = ClassifyText(resp.Content)
	}
	reply.Content = resp.Content
	reply.Usage = resp.Usage
	return reply
}

var (
	fencePattern    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	describePattern = regexp.MustCompile(`(?i)tell me about the tool named\s+['"\x60]?([A-Za-z_]+)`)
)

// ClassifyText classifies a plain-text reply: a JSON object with an "action"
// field (repaired if malformed), or one of the discovery phrases.
func ClassifyText(content string) Reply {
	text := strings.TrimSpace(content)

	if obj, ok := extractJSONObject(text); ok {
		if action, _ := obj["action"].(string); action != "" {
			reply := classifyAction(action, obj)
			reply.Content = content
			return reply
		}
	}

	lower := strings.ToLower(text)
	if m := describePattern.FindStringSubmatch(text); m != nil {
		return Reply{Kind: ReplyDescribeTool, ToolName: m[1], Content: content}
	}
	if strings.Contains(lower, "which tools exist") {
		return Reply{Kind: ReplyListTools, Content: content}
	}

	return Reply{Kind: ReplyUnrecognized, Problem: "no tool request or final answer found", Content: content}
}

func extractJSONObject(text string) (map[string]interface{}, bool) {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	if start < 0 {
		return nil, false
	}
	end := strings.LastIndex(text, "}")
	if end > start {
		text = text[start : end+1]
	} else {
		text = text[start:]
	}

	if obj, err := decodeObject(text); err == nil {
		return obj, true
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, false
	}
	obj, err := decodeObject(repaired)
	if err != nil {
		return nil, false
	}
	return obj, true
}

// nativeToolCall builds a ToolCall from a provider's raw argument JSON,
// repairing it if needed. Undecodable arguments are recorded on the call so
// the reply classifies as unrecognized rather than failing the request.
func nativeToolCall(id, name, raw string) ToolCall {
	call := ToolCall{ID: id, Name: name, Parameters: map[string]interface{}{}}
	if strings.TrimSpace(raw) == "" {
		return call
	}

	params, err := decodeObject(raw)
	if err != nil {
		repaired, rerr := jsonrepair.JSONRepair(raw)
		if rerr == nil {
			params, err = decodeObject(repaired)
		}
	}
	if err != nil {
		call.ArgumentsError = fmt.Sprintf("malformed tool arguments for %s: %v", name, err)
		return call
	}
	if params != nil {
		call.Parameters = params
	}
	return call
}

func decodeObject(s string) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func classifyAction(action string, params map[string]interface{}) Reply {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionListTools:
		return Reply{Kind: ReplyListTools}

	case ActionDescribeTool:
		name, _ := params["name"].(string)
		if strings.TrimSpace(name) == "" {
			return Reply{Kind: ReplyUnrecognized, Problem: "describe_tool requires a name"}
		}
		return Reply{Kind: ReplyDescribeTool, ToolName: name}

	case ActionCallTool:
		tool, _ := params["tool"].(string)
		if strings.TrimSpace(tool) == "" {
			return Reply{Kind: ReplyUnrecognized, Problem: "call_tool requires a tool name"}
		}
		var args []interface{}
		switch a := params["args"].(type) {
		case []interface{}:
			args = a
		case nil:
			args = []interface{}{}
		default:
			args = []interface{}{a}
		}
		return Reply{Kind: ReplyToolCall, Call: &toolexecutor.ToolCallRequest{ToolName: tool, Arguments: args}}

	case ActionFinalAnswer:
		value, err := toNumber(params["value"])
		if err != nil {
			return Reply{Kind: ReplyUnrecognized, Problem: fmt.Sprintf("final_answer value: %v", err)}
		}
		final := &FinalAnswer{Value: value}
		if raw, ok := params["final_step"]; ok && raw != nil {
			idx, err := toNumber(raw)
			if err != nil || idx != math.Trunc(idx) {
				return Reply{Kind: ReplyUnrecognized, Problem: "final_answer final_step must be an integer"}
			}
			i := int(idx)
			final.FinalStep = &i
		}
		return Reply{Kind: ReplyFinalAnswer, Final: final}

	default:
		return Reply{Kind: ReplyUnrecognized, Problem: fmt.Sprintf("unknown action %q", action)}
	}
}

func toNumber(v interface{}) (float64, error) {
	f, err := parseNumber(v)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("not a finite number: %v", v)
	}
	return f, nil
}

func parseNumber(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	case nil:
		return 0, fmt.Errorf("missing")
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
