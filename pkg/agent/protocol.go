package agent

import "fmt"

// Native function names offered to the model.
const (
	ActionListTools    = "list_tools"
	ActionDescribeTool = "describe_tool"
	ActionCallTool     = "call_tool"
	ActionFinalAnswer  = "final_answer"
)

// NudgeText is sent back when a reply cannot be classified.
const NudgeText = "If you need more tool docs, ask specifically. Otherwise, call a tool or give the final answer."

// SystemPrompt returns the instructions sent on every turn. It names how many
// tools exist but never lists them.
func SystemPrompt(toolCount int) string {
	return fmt.Sprintf(`You are a planner that answers math questions using tools. You do NOT know which tools exist.
There are %d tools. Discover them one by one:
- call list_tools (or say "Which tools exist?") to get their names,
- call describe_tool with a name (or say "Tell me about the tool named 'XYZ'") to read one tool's documentation.
Run a computation with call_tool {"tool": NAME, "args": [numbers]}. Each call_tool that succeeds becomes the next step of your plan; step indexes start at 0.
Arguments are literal numbers; copy earlier results into later calls yourself.
When done, call final_answer {"value": number, "final_step": index} where final_step is the step whose result is the answer (default: the last step).
If you cannot use function calls, reply with a single JSON object containing "action" and the same fields.`, toolCount)
}

// ProtocolTools returns the function definitions for the conversation protocol.
func ProtocolTools() []ToolSpec {
	return []ToolSpec{
		{
			Name:        ActionListTools,
			Description: "List the names of the available tools.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        ActionDescribeTool,
			Description: "Get the documentation of one tool by name.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{"type": "string", "description": "Tool name"},
				},
				"required": []string{"name"},
			},
		},
		{
			Name:        ActionCallTool,
			Description: "Invoke a tool with positional numeric arguments.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tool": map[string]interface{}{"type": "string", "description": "Tool name"},
					"args": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "number"},
						"description": "Positional arguments",
					},
				},
				"required": []string{"tool", "args"},
			},
		},
		{
			Name:        ActionFinalAnswer,
			Description: "Give the final numeric answer and the index of the plan step that produced it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"value":      map[string]interface{}{"type": "number"},
					"final_step": map[string]interface{}{"type": "integer", "description": "0-based step index, defaults to the last step"},
				},
				"required": []string{"value"},
			},
		},
	}
}
