package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/harun/vtool/pkg/orchestrator"
	"github.com/harun/vtool/pkg/planner"
	"github.com/spf13/cobra"
)

var askOutput string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question",
	Long: `Answer one arithmetic question. The virtual tool store lives only for the
duration of the process, so a single ask always runs a fresh conversation;
use serve or demo to see plans promoted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askOutput, "output", "o", outputText, "output format (text, json, yaml)")
	rootCmd.AddCommand(askCmd)
}

// askResult is the rendered outcome of one ask
type askResult struct {
	Question  string         `json:"question" yaml:"question"`
	Value     *float64       `json:"value,omitempty" yaml:"value,omitempty"`
	Origin    planner.Origin `json:"origin,omitempty" yaml:"origin,omitempty"`
	Plan      *planner.Plan  `json:"plan,omitempty" yaml:"plan,omitempty"`
	Signature string         `json:"signature,omitempty" yaml:"signature,omitempty"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
	Kind      string         `json:"kind,omitempty" yaml:"kind,omitempty"`
}

func newAskResult(question string, answer planner.Answer, err error) askResult {
	res := askResult{Question: question, Origin: answer.Origin, Signature: answer.Signature}
	if err != nil {
		res.Error = err.Error()
		res.Kind = orchestrator.ErrorKind(err)
		return res
	}
	value := answer.Value
	plan := answer.Plan
	res.Value = &value
	res.Plan = &plan
	return res
}

func (r askResult) writeText(w io.Writer) error {
	if r.Error != "" {
		_, err := fmt.Fprintf(w, "%s => failed (%s): %s\n", r.Question, r.Kind, r.Error)
		return err
	}
	_, err := fmt.Fprintf(w, "%s => %s via %s %s\n", r.Question, formatNumber(*r.Value), r.Origin, r.Plan)
	return err
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := validateOutput(askOutput); err != nil {
		return err
	}

	rt, err := buildRuntime(cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer rt.Close()

	question := strings.Join(args, " ")
	answer, askErr := rt.orchestrator.Ask(cmd.Context(), question)

	res := newAskResult(question, answer, askErr)
	if err := render(cmd.OutOrStdout(), askOutput, res, res.writeText); err != nil {
		return err
	}
	if askErr != nil {
		return fmt.Errorf("ask failed: %w", askErr)
	}
	return nil
}
