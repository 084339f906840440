package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harun/vtool/internal/config"
	"github.com/harun/vtool/pkg/agent"
	"github.com/harun/vtool/pkg/catalog"
	"github.com/harun/vtool/pkg/planner"
	"github.com/harun/vtool/pkg/toolexecutor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writeConfig writes a config without faults or profiles into a temp dir.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	path := filepath.Join(dir, "vtool.json")
	data, err := json.Marshal(map[string]interface{}{
		"data_dir": dir,
		"executor": map[string]interface{}{"attempt_budget": 3, "fault_rate": 0},
		"logging":  map[string]interface{}{"level": "error", "audit_file": filepath.Join(dir, "audit.log")},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// sumThenFinal calls SUM(2, 3) on the first turn and answers 5 afterwards.
func sumThenFinal(_ context.Context, req agent.Request) (agent.Reply, error) {
	if len(req.History) == 1 {
		return agent.Reply{
			Kind: agent.ReplyToolCall,
			Call: &toolexecutor.ToolCallRequest{ToolName: "SUM", Arguments: []interface{}{2.0, 3.0}},
		}, nil
	}
	return agent.Reply{Kind: agent.ReplyFinalAnswer, Final: &agent.FinalAnswer{Value: 5}}, nil
}

func useCollaborator(t *testing.T, fn agent.CollaboratorFunc) {
	t.Helper()
	orig := newCollaborator
	newCollaborator = func(*config.Config, zerolog.Logger) (agent.Collaborator, error) { return fn, nil }
	t.Cleanup(func() { newCollaborator = orig })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := GetRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAskCommand(t *testing.T) {
	cfgPath := writeConfig(t)
	useCollaborator(t, sumThenFinal)

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "ask", "--config", cfgPath, "--output", "json", "What is 2 plus 3?")
		require.NoError(t, err)

		var res askResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.NotNil(t, res.Value)
		assert.Equal(t, 5.0, *res.Value)
		assert.Equal(t, planner.OriginFreshPlan, res.Origin)
		assert.Equal(t, "what is 2 plus 3?", res.Signature)
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "ask", "--config", cfgPath, "--output", "yaml", "What", "is", "2", "plus", "3?")
		require.NoError(t, err)

		var res map[string]interface{}
		require.NoError(t, yaml.Unmarshal([]byte(out), &res))
		assert.Equal(t, "What is 2 plus 3?", res["question"])
		assert.Equal(t, "FRESH_PLAN", res["origin"])
	})

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "ask", "--config", cfgPath, "--output", "text", "What is 2 plus 3?")
		require.NoError(t, err)
		assert.Contains(t, out, "=> 5 via FRESH_PLAN")
	})

	t.Run("bad output format", func(t *testing.T) {
		_, err := execute(t, "ask", "--config", cfgPath, "--output", "xml", "What is 2 plus 3?")
		assert.Error(t, err)
	})
}

func TestAskCommandFailure(t *testing.T) {
	cfgPath := writeConfig(t)
	useCollaborator(t, func(context.Context, agent.Request) (agent.Reply, error) {
		return agent.Reply{Kind: agent.ReplyFinalAnswer, Final: &agent.FinalAnswer{Value: 5}}, nil
	})

	out, err := execute(t, "ask", "--config", cfgPath, "--output", "json", "What is 2 plus 3?")
	require.Error(t, err)

	var res askResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Nil(t, res.Value)
	assert.Equal(t, "FinalAnswerInconsistent", res.Kind)
}

func TestAskCommandRequiresProfile(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := execute(t, "ask", "--config", cfgPath, "--output", "text", "What is 2 plus 3?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collaborator")
}

func TestDemoCommandPromotes(t *testing.T) {
	cfgPath := writeConfig(t)
	useCollaborator(t, sumThenFinal)

	orig := demoQuestions
	demoQuestions = []string{"q", "q", "q", "q"}
	t.Cleanup(func() { demoQuestions = orig })

	out, err := execute(t, "demo", "--config", cfgPath, "--output", "json")
	require.NoError(t, err)

	var results []askResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 4)
	for _, r := range results[:3] {
		assert.Equal(t, planner.OriginFreshPlan, r.Origin)
	}
	assert.Equal(t, planner.OriginVirtualTool, results[3].Origin)
}

func TestToolsCommand(t *testing.T) {
	cfgPath := writeConfig(t)

	t.Run("list", func(t *testing.T) {
		out, err := execute(t, "tools", "--config", cfgPath, "--output", "text")
		require.NoError(t, err)
		assert.Equal(t, strings.Join(catalog.Default().ListNames(), "\n")+"\n", out)
	})

	t.Run("describe yaml", func(t *testing.T) {
		out, err := execute(t, "tools", "--config", cfgPath, "--output", "yaml", "sum")
		require.NoError(t, err)

		var descs []catalog.ToolDescriptor
		require.NoError(t, yaml.Unmarshal([]byte(out), &descs))
		require.Len(t, descs, 1)
		assert.Equal(t, "SUM", descs[0].Name)
		assert.Equal(t, catalog.Unreliable, descs[0].Reliability)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := execute(t, "tools", "--config", cfgPath, "--output", "text", "SQRT")
		assert.ErrorIs(t, err, catalog.ErrUnknownTool)
	})
}
