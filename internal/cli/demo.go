package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// demoQuestions repeat so that plans get promoted and replayed.
var demoQuestions = []string{
	"John has 3 apples, Mary has 5. Combine them, then multiply the total by 2.",
	"Compute the difference of 10 and 3, then do product with 4.",
	"Compute the difference of 10 and 3, then do product with 4.",
	"John has 3 apples, Mary has 5. Combine them, then multiply the total by 2.",
	"Compute the difference of 10 and 3, then do product with 4.",
	"Absolute of -6, then sum 4 to that result.",
}

var demoOutput string

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the demo question list",
	Long: `Ask a fixed list of questions in one process. Repeated questions show plans
being recorded and, once the promotion threshold is reached, replayed as
virtual tools.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringVarP(&demoOutput, "output", "o", outputText, "output format (text, json, yaml)")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, _ []string) error {
	if err := validateOutput(demoOutput); err != nil {
		return err
	}

	rt, err := buildRuntime(cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer rt.Close()

	results := make([]askResult, 0, len(demoQuestions))
	failures := 0
	for _, q := range demoQuestions {
		answer, askErr := rt.orchestrator.Ask(cmd.Context(), q)
		if askErr != nil {
			failures++
		}
		results = append(results, newAskResult(q, answer, askErr))
	}

	err = render(cmd.OutOrStdout(), demoOutput, results, func(w io.Writer) error {
		for _, r := range results {
			if err := r.writeText(w); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "\n%d questions, %d failed, %d virtual tools active\n", len(results), failures, rt.store.ActiveCount())
		return err
	})
	if err != nil {
		return err
	}
	if failures == len(results) {
		return fmt.Errorf("all %d demo questions failed", failures)
	}
	return nil
}
