package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nessie.dev/pkg/nessie/internal/domain"
	m "nessie.dev/pkg/nessie/internal/model"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the known functions of a library",
		Long:  listLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wf, err := getWorkflow(cmd)
			if err != nil {
				return err
			}

			return wf.List(cmd.Context(), domain.ListArgs{
				Lib:      viper.GetString(libNameKey),
				APISpec:  m.Path(viper.GetString(libAPISpecKey)),
				Registry: m.Path(viper.GetString(libRegistryKey)),
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
