package agent

import (
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
)

func TestSystemPromptDoesNotListTools(t *testing.T) {
	prompt := SystemPrompt(7)

	assert.Contains(t, prompt, "There are 7 tools")
	for _, name := range []string{"SUM", "PRODUCT", "DELTA", "QUOTIENT", "MODULO", "POWER", "ABS"} {
		assert.NotContains(t, prompt, name)
	}
}

func TestProtocolTools(t *testing.T) {
	tools := ProtocolTools()

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema["type"])
	}
	assert.Equal(t, []string{ActionListTools, ActionDescribeTool, ActionCallTool, ActionFinalAnswer}, names)
	assert.Equal(t, []string{"tool", "args"}, requiredFields(tools[2].InputSchema))
	assert.Nil(t, requiredFields(tools[0].InputSchema))
}

func TestRequiredFieldsFromDecodedJSON(t *testing.T) {
	schema := map[string]interface{}{"required": []interface{}{"a", 1, "b"}}
	assert.Equal(t, []string{"a", "b"}, requiredFields(schema))
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(errors.New("429 Too Many Requests")))
	assert.True(t, IsRetryableError(errors.New("read: connection reset by peer")))
	assert.True(t, IsRetryableError(errors.New("upstream returned 503")))
	assert.False(t, IsRetryableError(errors.New("401 unauthorized")))
	assert.False(t, IsRetryableError(errors.New("invalid request")))

	assert.True(t, IsRetryableError(&openai.Error{StatusCode: 500}))
	assert.False(t, IsRetryableError(&openai.Error{StatusCode: 400}))
}

func TestProviderFactory(t *testing.T) {
	f := &ProviderFactory{}

	p, err := f.NewProvider(AuthProfile{Provider: "openai", APIKey: "sk-x"})
	assert.NoError(t, err)
	assert.Equal(t, "openai", p.Provider())

	p, err = f.NewProvider(AuthProfile{Provider: "anthropic", APIKey: "sk-ant-x"})
	assert.NoError(t, err)
	assert.Equal(t, "anthropic", p.Provider())

	_, err = f.NewProvider(AuthProfile{Provider: "gemini"})
	assert.Error(t, err)
}

func TestAnthropicMessagesMergesRoles(t *testing.T) {
	call := ToolCall{ID: "t1", Name: ActionListTools, Parameters: map[string]interface{}{}}
	history := []AgentMessage{
		UserMessage("What is 2 plus 3?"),
		{Role: "assistant", ToolCalls: []ToolCall{call}},
		{Role: "tool", ToolCallID: "t1", Content: "SUM"},
		{Role: "assistant", Content: "hmm"},
		UserMessage("nudge"),
		UserMessage("again"),
	}

	msgs := anthropicMessages(history)
	assert.Len(t, msgs, 5)
	assert.Len(t, msgs[4].Content, 2)
}
