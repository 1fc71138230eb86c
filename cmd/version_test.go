package cmd

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runVersionCmd(t *testing.T, args ...string) string {
	t.Helper()

	cmd := newVersionCmd()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	require.NoError(t, cmd.Execute())

	return out.String()
}

func stampVersion(t *testing.T, v string) {
	t.Helper()

	prev := version
	version = v

	t.Cleanup(func() { version = prev })
}

func TestVersionCmd_Output(t *testing.T) {
	stampVersion(t, "v0.4.1")

	output := runVersionCmd(t)

	assert.Contains(t, output, "nessie v0.4.1\n")
	assert.Contains(t, output, "go version\t "+runtime.Version())
}

func TestVersionCmd_Short(t *testing.T) {
	stampVersion(t, "v0.4.1")

	assert.Equal(t, "v0.4.1\n", runVersionCmd(t, "--short"))
}

func TestVersionCmd_Unstamped(t *testing.T) {
	stampVersion(t, "")

	b := readBuildInfo()
	assert.NotEmpty(t, b.Version)
	assert.LessOrEqual(t, len(b.Revision), revisionLen)
	assert.Contains(t, runVersionCmd(t), "nessie "+b.Version)
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	cmd := newVersionCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})

	require.Error(t, cmd.Execute())
}
