package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"nessie.dev/pkg/nessie/internal/domain"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "nessie"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	envPrefix = "NESSIE"

	outputFlagName      = "output"
	verboseFlagName     = "verbose"
	logFileFlagName     = "log-file"
	libFlagName         = "lib"
	apiSpecFlagName     = "api-spec"
	registryFlagName    = "registry"
	numTestsFlagName    = "num-tests"
	seedFlagName        = "seed"
	timeoutFlagName     = "timeout"
	runtimeFlagName     = "runtime"
	maxAttemptsFlagName = "max-attempts"
	testingDirFlagName  = "testing-dir"
	testDirFlagName     = "test-dir"
	testPrefixFlagName  = "test-prefix"
	srcDirFlagName      = "src-dir"
	importCodeFlagName  = "import-code"
	nestingFlagName     = "nesting"
	callsFlagName       = "calls"
	mochaSuiteFlagName  = "mocha-suite"
	freshTestFlagName   = "fresh-test"
	runParallelFlagName = "parallel"

	outputConfigKey      = "output"
	runNumTestsKey       = "run.num_tests"
	runTimeoutKey        = "run.timeout"
	runRuntimeKey        = "run.runtime"
	runTestingDirKey     = "run.testing_dir"
	runTestDirKey        = "run.test_dir"
	runTestPrefixKey     = "run.test_prefix"
	runSeedKey           = "run.seed"
	runFreshTestKey      = "run.fresh_test_if_cant_extend"
	runMaxAttemptsKey    = "run.max_attempts"
	runParallelConfigKey = "run.parallel"
	runMochaSuiteKey     = "run.mocha_suite"

	libNameKey       = "lib.name"
	libSrcDirKey     = "lib.src_dir"
	libImportCodeKey = "lib.import_code"
	libAPISpecKey    = "lib.api_spec"
	libRegistryKey   = "lib.registry"
	minedNestingKey  = "mined.nesting"
	minedCallsKey    = "mined.calls"

	genChooseNewSigKey    = "gen.choose_new_sig_pct"
	genRechooseFctKey     = "gen.rechoose_fct_factor"
	genRechooseSigKey     = "gen.rechoose_sig_factor"
	genUseMinedNestingKey = "gen.use_mined_nesting"
	genUseMinedCallKey    = "gen.use_mined_call"
	genMaxNumKey          = "gen.max_num"
	genMaxArrayLenKey     = "gen.max_array_len"
	genMaxObjLenKey       = "gen.max_obj_len"
	genMaxStringLenKey    = "gen.max_string_len"
	genMaxArgsKey         = "gen.max_args"
	genAllowAnyKey        = "gen.allow_any"
	genAllowMultipleCbKey = "gen.allow_multiple_callbacks"

	defaultOutputDir   = ".nessie"
	defaultNumTests    = 10
	defaultTestTimeout = 30 * time.Second
	defaultRuntime     = "node"
	defaultTestingDir  = "."
	defaultTestDir     = "test"
	defaultTestPrefix  = "test"
	defaultRunParallel = 1

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".nessie.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func setDefaults() {
	gen := domain.DefaultGenConfig()

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputConfigKey, defaultOutputDir)

	viper.SetDefault(runNumTestsKey, defaultNumTests)
	viper.SetDefault(runTimeoutKey, defaultTestTimeout)
	viper.SetDefault(runRuntimeKey, defaultRuntime)
	viper.SetDefault(runTestingDirKey, defaultTestingDir)
	viper.SetDefault(runTestDirKey, defaultTestDir)
	viper.SetDefault(runTestPrefixKey, defaultTestPrefix)
	viper.SetDefault(runSeedKey, 0)
	viper.SetDefault(runFreshTestKey, gen.FreshTestIfCantExtend)
	viper.SetDefault(runMaxAttemptsKey, 0)
	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(runMochaSuiteKey, false)

	viper.SetDefault(libNameKey, "")
	viper.SetDefault(libSrcDirKey, "")
	viper.SetDefault(libImportCodeKey, "")
	viper.SetDefault(libAPISpecKey, "")
	viper.SetDefault(libRegistryKey, "")
	viper.SetDefault(minedNestingKey, "")
	viper.SetDefault(minedCallsKey, "")

	viper.SetDefault(genChooseNewSigKey, gen.ChooseNewSigPct)
	viper.SetDefault(genRechooseFctKey, gen.RechooseFctFactor)
	viper.SetDefault(genRechooseSigKey, gen.RechooseSigFactor)
	viper.SetDefault(genUseMinedNestingKey, gen.UseMinedNesting)
	viper.SetDefault(genUseMinedCallKey, gen.UseMinedCall)
	viper.SetDefault(genMaxNumKey, gen.MaxNum)
	viper.SetDefault(genMaxArrayLenKey, gen.MaxArrayLen)
	viper.SetDefault(genMaxObjLenKey, gen.MaxObjLen)
	viper.SetDefault(genMaxStringLenKey, gen.MaxStringLen)
	viper.SetDefault(genMaxArgsKey, gen.MaxArgs)
	viper.SetDefault(genAllowAnyKey, gen.AllowAny)
	viper.SetDefault(genAllowMultipleCbKey, gen.AllowMultipleCallbacks)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

// genConfigFromViper reads the generator tuning.
func genConfigFromViper() domain.GenConfig {
	return domain.GenConfig{
		ChooseNewSigPct:        viper.GetFloat64(genChooseNewSigKey),
		RechooseFctFactor:      viper.GetFloat64(genRechooseFctKey),
		RechooseSigFactor:      viper.GetFloat64(genRechooseSigKey),
		UseMinedNesting:        viper.GetFloat64(genUseMinedNestingKey),
		UseMinedCall:           viper.GetFloat64(genUseMinedCallKey),
		MaxNum:                 viper.GetInt(genMaxNumKey),
		MaxArrayLen:            viper.GetInt(genMaxArrayLenKey),
		MaxObjLen:              viper.GetInt(genMaxObjLenKey),
		MaxStringLen:           viper.GetInt(genMaxStringLenKey),
		MaxArgs:                viper.GetInt(genMaxArgsKey),
		AllowAny:               viper.GetBool(genAllowAnyKey),
		AllowMultipleCallbacks: viper.GetBool(genAllowMultipleCbKey),
		FreshTestIfCantExtend:  viper.GetBool(runFreshTestKey),
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
