package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nessie.dev/pkg/nessie/internal/domain"
	m "nessie.dev/pkg/nessie/internal/model"
)

var (
	runNumTestsFlag    int
	runSeedFlag        uint64
	runMaxAttemptsFlag int
	runSrcDirFlag      string
	runImportCodeFlag  string
	runNestingFlag     string
	runCallsFlag       string
	runMochaSuiteFlag  bool
	runFreshTestFlag   bool
)

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate tests for a library",
		Long:  runLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wf, err := getWorkflow(cmd)
			if err != nil {
				return err
			}

			_, err = wf.Run(cmd.Context(), runArgsFromViper())

			return err
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runArgsFromViper() domain.RunArgs {
	return domain.RunArgs{
		Lib:          viper.GetString(libNameKey),
		APISpec:      m.Path(viper.GetString(libAPISpecKey)),
		Registry:     m.Path(viper.GetString(libRegistryKey)),
		NestingPairs: m.Path(viper.GetString(minedNestingKey)),
		APICalls:     m.Path(viper.GetString(minedCallsKey)),
		NumTests:     viper.GetInt(runNumTestsKey),
		Seed:         viper.GetUint64(runSeedKey),
		MaxAttempts:  viper.GetInt(runMaxAttemptsKey),
		TestDir:      testDir(),
		TestPrefix:   viper.GetString(runTestPrefixKey),
		Output:       m.Path(viper.GetString(outputConfigKey)),
		MochaSuite:   viper.GetBool(runMochaSuiteKey),
		Gen:          genConfigFromViper(),
	}
}

func configureRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.IntVarP(&runNumTestsFlag, numTestsFlagName, "n", viper.GetInt(runNumTestsKey), "number of tests to generate")
	bindFlagToConfig(flags.Lookup(numTestsFlagName), runNumTestsKey)

	flags.Uint64Var(&runSeedFlag, seedFlagName, viper.GetUint64(runSeedKey), "random seed (0 picks one from the clock)")
	bindFlagToConfig(flags.Lookup(seedFlagName), runSeedKey)

	flags.IntVar(&runMaxAttemptsFlag, maxAttemptsFlagName, viper.GetInt(runMaxAttemptsKey), "failed attempts allowed per test (0 is unbounded)")
	bindFlagToConfig(flags.Lookup(maxAttemptsFlagName), runMaxAttemptsKey)

	flags.StringVar(&runSrcDirFlag, srcDirFlagName, viper.GetString(libSrcDirKey), "require the library from this directory instead of by name")
	bindFlagToConfig(flags.Lookup(srcDirFlagName), libSrcDirKey)

	flags.StringVar(&runImportCodeFlag, importCodeFlagName, viper.GetString(libImportCodeKey), "custom import statement of the library")
	bindFlagToConfig(flags.Lookup(importCodeFlagName), libImportCodeKey)

	flags.StringVar(&runNestingFlag, nestingFlagName, viper.GetString(minedNestingKey), "mined nesting pairs (JSON)")
	bindFlagToConfig(flags.Lookup(nestingFlagName), minedNestingKey)

	flags.StringVar(&runCallsFlag, callsFlagName, viper.GetString(minedCallsKey), "mined API call signatures (JSON)")
	bindFlagToConfig(flags.Lookup(callsFlagName), minedCallsKey)

	flags.BoolVar(&runMochaSuiteFlag, mochaSuiteFlagName, viper.GetBool(runMochaSuiteKey), "also write the tests as a mocha suite")
	bindFlagToConfig(flags.Lookup(mochaSuiteFlagName), runMochaSuiteKey)

	flags.BoolVar(&runFreshTestFlag, freshTestFlagName, viper.GetBool(runFreshTestKey), "start a fresh test when a nested extension has no callback")
	bindFlagToConfig(flags.Lookup(freshTestFlagName), runFreshTestKey)
}
