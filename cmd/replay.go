package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nessie.dev/pkg/nessie/internal/domain"
	m "nessie.dev/pkg/nessie/internal/model"
)

var replayParallelFlag int

// replayCmd represents the replay command.
var replayCmd = newReplayCmd()

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-execute generated tests",
		Long: `Re-execute every generated test of the test directory and report which
still run without error markers. Fresh traces are saved under the output
directory so they can be compared with "nessie diff".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wf, err := getWorkflow(cmd)
			if err != nil {
				return err
			}

			results, err := wf.Replay(cmd.Context(), domain.ReplayArgs{
				TestDir:    testDir(),
				TestPrefix: viper.GetString(runTestPrefixKey),
				Parallel:   viper.GetInt(runParallelConfigKey),
				Output:     m.Path(viper.GetString(outputConfigKey)),
			})
			if err != nil {
				return err
			}

			failed := 0

			for _, result := range results {
				if !result.Passed {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d tests did not pass", failed, len(results))
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&replayParallelFlag, runParallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of tests run in parallel")
	bindFlagToConfig(cmd.Flags().Lookup(runParallelFlagName), runParallelConfigKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
