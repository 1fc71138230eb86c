package cmd

import (
	"github.com/spf13/cobra"

	"nessie.dev/pkg/nessie/internal/domain"
	m "nessie.dev/pkg/nessie/internal/model"
)

// diffCmd represents the diff command.
var diffCmd = newDiffCmd()

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <trace> <trace>",
		Short: "Compare two execution traces",
		Long: `Compare two saved execution traces record by record, print their unified
diff and classify the first divergence.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := getWorkflow(cmd)
			if err != nil {
				return err
			}

			_, err = wf.Diff(cmd.Context(), domain.DiffArgs{Left: m.Path(args[0]), Right: m.Path(args[1])})

			return err
		},
	}
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
