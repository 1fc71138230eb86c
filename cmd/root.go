// Package cmd provides the root command and CLI setup for nessie.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"nessie.dev/pkg/nessie/internal/adapter"
	"nessie.dev/pkg/nessie/internal/controller"
	"nessie.dev/pkg/nessie/internal/domain"
	m "nessie.dev/pkg/nessie/internal/model"
)

// workflow is built from the configuration on first use; tests replace it.
var workflow domain.Workflow

var (
	outputDirFlag string
	verboseFlag   bool
	logFileFlag   string
	libFlag       string
	apiSpecFlag   string
	registryFlag  string

	timeoutFlag    string
	runtimeFlag    string
	testingDirFlag string
	testDirFlag    string
	testPrefixFlag string
)

const rootLongDescription = `Nessie is a feedback-directed test generator for JavaScript libraries.

It synthesizes calls to a library's API, runs them under Node.js, and uses
what it observes (argument types, return values, which callbacks fire and
when) to steer the next calls toward unexplored API usage, nesting calls
inside callbacks that actually run.`

const runLongDescription = `Generate tests for a library.

Each test extends an earlier one, either after one of its calls or inside a
callback that was observed to fire. Tests are written to the test directory,
executed, and diagnosed; the run report, registry dump, traces and metrics go
to the output directory.`

const listLongDescription = `List the functions known for a library, from an API spec or from the
registry dump of a previous run.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nessie",
		Short: "Feedback-directed test generator for JavaScript libraries",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVarP(&outputDirFlag, outputFlagName, "o", viper.GetString(outputConfigKey), "output directory for reports, traces and registry dumps")
	bindFlagToConfig(flags.Lookup(outputFlagName), outputConfigKey)

	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(flags.Lookup(verboseFlagName), logVerboseKey)

	flags.StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file")
	bindFlagToConfig(flags.Lookup(logFileFlagName), logFilenameKey)

	flags.StringVarP(&libFlag, libFlagName, "l", viper.GetString(libNameKey), "name of the library under test")
	bindFlagToConfig(flags.Lookup(libFlagName), libNameKey)

	flags.StringVar(&apiSpecFlag, apiSpecFlagName, viper.GetString(libAPISpecKey), "API spec of the library (JSON or YAML)")
	bindFlagToConfig(flags.Lookup(apiSpecFlagName), libAPISpecKey)

	flags.StringVar(&registryFlag, registryFlagName, viper.GetString(libRegistryKey), "registry dump of a previous run, used instead of the API spec")
	bindFlagToConfig(flags.Lookup(registryFlagName), libRegistryKey)

	flags.StringVar(&timeoutFlag, timeoutFlagName, viper.GetDuration(runTimeoutKey).String(), "timeout of one test execution")
	bindFlagToConfig(flags.Lookup(timeoutFlagName), runTimeoutKey)

	flags.StringVar(&runtimeFlag, runtimeFlagName, viper.GetString(runRuntimeKey), "runtime executing the tests")
	bindFlagToConfig(flags.Lookup(runtimeFlagName), runRuntimeKey)

	flags.StringVar(&testingDirFlag, testingDirFlagName, viper.GetString(runTestingDirKey), "directory holding the test directory")
	bindFlagToConfig(flags.Lookup(testingDirFlagName), runTestingDirKey)

	flags.StringVar(&testDirFlag, testDirFlagName, viper.GetString(runTestDirKey), "directory, inside the testing directory, holding the tests")
	bindFlagToConfig(flags.Lookup(testDirFlagName), runTestDirKey)

	flags.StringVar(&testPrefixFlag, testPrefixFlagName, viper.GetString(runTestPrefixKey), "file name prefix of generated tests")
	bindFlagToConfig(flags.Lookup(testPrefixFlagName), runTestPrefixKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// getWorkflow returns the workflow, wiring the adapters from the
// configuration the first time.
func getWorkflow(cmd *cobra.Command) (domain.Workflow, error) {
	if workflow != nil {
		return workflow, nil
	}

	srcDir := viper.GetString(libSrcDirKey)
	if srcDir != "" {
		abs, err := filepath.Abs(srcDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve source directory: %w", err)
		}

		srcDir = abs
	}

	fsAdapter := adapter.NewLocalTestFSAdapter()
	renderer := adapter.NewJSRenderer(
		adapter.WithSourceDir(srcDir),
		adapter.WithImportCode(viper.GetString(libImportCodeKey)),
	)
	testAdapter := adapter.NewLocalTestRunnerAdapter(
		viper.GetString(runRuntimeKey),
		adapter.WithTimeout(viper.GetDuration(runTimeoutKey)),
	)
	orchestrator := domain.NewOrchestrator(fsAdapter, testAdapter, renderer, nil)
	ui := controller.NewUI(cmd, controller.IsTTY(os.Stdout))

	workflow = domain.NewWorkflow(
		fsAdapter,
		adapter.NewLocalSpecStore(),
		adapter.NewLocalReportStore(),
		renderer,
		testAdapter,
		ui,
		orchestrator,
	)

	return workflow, nil
}

// testDir returns the directory generated tests live in.
func testDir() m.Path {
	return m.Path(filepath.Join(viper.GetString(runTestingDirKey), viper.GetString(runTestDirKey)))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
