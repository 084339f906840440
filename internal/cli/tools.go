package cli

import (
	"fmt"
	"io"

	"github.com/harun/vtool/pkg/catalog"
	"github.com/spf13/cobra"
)

var toolsOutput string

var toolsCmd = &cobra.Command{
	Use:   "tools [name...]",
	Short: "List tools or describe the named ones",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().StringVarP(&toolsOutput, "output", "o", outputText, "output format (text, json, yaml)")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	if err := validateOutput(toolsOutput); err != nil {
		return err
	}

	rt, err := buildRuntime(nil, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		names := rt.catalog.ListNames()
		return render(out, toolsOutput, map[string][]string{"tools": names}, func(w io.Writer) error {
			for _, n := range names {
				if _, err := fmt.Fprintln(w, n); err != nil {
					return err
				}
			}
			return nil
		})
	}

	descs := make([]catalog.ToolDescriptor, 0, len(args))
	for _, name := range args {
		d, err := rt.catalog.Describe(name)
		if err != nil {
			return err
		}
		descs = append(descs, d)
	}
	return render(out, toolsOutput, descs, func(w io.Writer) error {
		for _, d := range descs {
			if _, err := fmt.Fprintln(w, d.Text()); err != nil {
				return err
			}
		}
		return nil
	})
}
