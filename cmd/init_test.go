package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// runInitIn executes `nessie init` with dir as the working directory.
func runInitIn(t *testing.T, dir string) error {
	t.Helper()

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(originalWD)) })

	cmd := newRootCmd()
	cmd.AddCommand(newInitCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", "--log-file", filepath.Join(dir, "nessie.log")})

	return cmd.Execute()
}

func TestInitCmd_WritesConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, runInitIn(t, tempDir))

	contents, err := os.ReadFile(filepath.Join(tempDir, configFileName))
	require.NoError(t, err)

	var cfg struct {
		Output string `yaml:"output"`
		Run    struct {
			NumTests int    `yaml:"num_tests"`
			Runtime  string `yaml:"runtime"`
		} `yaml:"run"`
		Gen map[string]any `yaml:"gen"`
	}
	require.NoError(t, yaml.Unmarshal(contents, &cfg))

	assert.Equal(t, defaultOutputDir, cfg.Output)
	assert.Equal(t, defaultNumTests, cfg.Run.NumTests)
	assert.Equal(t, defaultRuntime, cfg.Run.Runtime)
	assert.Contains(t, cfg.Gen, "choose_new_sig_pct")
}

func TestInitCmd_ErrorsWhenFileExists(t *testing.T) {
	tempDir := t.TempDir()

	targetPath := filepath.Join(tempDir, configFileName)
	require.NoError(t, os.WriteFile(targetPath, []byte("existing: true\n"), 0o644))

	require.Error(t, runInitIn(t, tempDir))

	contents, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.Equal(t, "existing: true\n", string(contents))
}
