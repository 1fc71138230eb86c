package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nessie.dev/pkg/nessie/internal/domain"
	m "nessie.dev/pkg/nessie/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View the report of a previous run",
		Long:  "View the report of a previous run from an output directory.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			wf, err := getWorkflow(cmd)
			if err != nil {
				return err
			}

			return wf.View(cmd.Context(), domain.ViewArgs{Output: m.Path(viper.GetString(outputConfigKey))})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
