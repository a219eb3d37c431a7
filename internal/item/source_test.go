package item

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shell = "/bin/sh"

func TestFileSourceReadsWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value")
	require.NoError(t, os.WriteFile(path, []byte("42.5\n"), 0o644))

	out, err := Execute(FileSource{Path: path}, shell, nil)
	require.NoError(t, err)
	assert.Equal(t, "42.5\n", out)
}

func TestFileSourceMissingFileIsIOFailure(t *testing.T) {
	_, err := Execute(FileSource{Path: filepath.Join(t.TempDir(), "absent")}, shell, nil)
	assert.ErrorIs(t, err, ErrIO)
}

func TestFileSourceInvalidUTF8IsEncodingFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binary")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0xfd}, 0o644))

	_, err := Execute(FileSource{Path: path}, shell, nil)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestCommandSourceCapturesStdoutOnly(t *testing.T) {
	out, err := Execute(CommandSource{
		Path: shell,
		Args: []string{"-c", "echo to-stdout; echo to-stderr >&2"},
	}, shell, nil)
	require.NoError(t, err)
	assert.Equal(t, "to-stdout\n", out)
}

func TestCommandSourceIgnoresExitStatus(t *testing.T) {
	out, err := Execute(CommandSource{
		Path: shell,
		Args: []string{"-c", "echo partial; exit 3"},
	}, shell, nil)
	require.NoError(t, err, "a non-zero exit is not a collection failure")
	assert.Equal(t, "partial\n", out)
}

func TestCommandSourceUnlaunchableIsSpawnFailure(t *testing.T) {
	_, err := Execute(CommandSource{Path: "/nonexistent/binary"}, shell, nil)
	assert.ErrorIs(t, err, ErrSpawn)
}

func TestCommandSourceInvalidUTF8IsEncodingFailure(t *testing.T) {
	_, err := Execute(CommandSource{
		Path: shell,
		Args: []string{"-c", `printf '\377\376'`},
	}, shell, nil)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestShellSourceRunsThroughConfiguredShell(t *testing.T) {
	out, err := Execute(ShellSource{Script: "printf '%s' hello"}, shell, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestShellSourceSeesExtraEnv(t *testing.T) {
	out, err := Execute(ShellSource{Script: `printf '%s' "$PROBE_TEST_VALUE"`}, shell,
		map[string]string{"PROBE_TEST_VALUE": "injected"})
	require.NoError(t, err)
	assert.Equal(t, "injected", out)
}

func TestShellSourceInheritsEnvironment(t *testing.T) {
	t.Setenv("PROBE_TEST_INHERITED", "from-parent")

	out, err := Execute(ShellSource{Script: `printf '%s' "$PROBE_TEST_INHERITED"`}, shell,
		map[string]string{"PROBE_TEST_OTHER": "x"})
	require.NoError(t, err)
	assert.Equal(t, "from-parent", out)
}

func TestMergedEnvIsDeterministic(t *testing.T) {
	extra := map[string]string{"B": "2", "A": "1", "C": "3"}
	first := mergedEnv(extra)
	second := mergedEnv(extra)
	assert.Equal(t, first, second)

	n := len(first)
	require.GreaterOrEqual(t, n, 3)
	assert.Equal(t, []string{"A=1", "B=2", "C=3"}, first[n-3:])
}
