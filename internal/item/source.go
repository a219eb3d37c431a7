package item

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"unicode/utf8"
)

// Failure kinds for a single source execution. A failure aborts only the
// current tick of the affected item.
var (
	// ErrSpawn marks an executable that could not be launched.
	ErrSpawn = errors.New("spawn failure")
	// ErrIO marks a file that could not be opened or read.
	ErrIO = errors.New("io failure")
	// ErrEncoding marks captured bytes that are not valid UTF-8.
	ErrEncoding = errors.New("output is not valid utf-8")
)

// Source is a closed set of data-source variants: FileSource, CommandSource
// and ShellSource. The run method is unexported so the set stays closed.
type Source interface {
	// run captures one execution's output as text.
	run(shell string, env map[string]string) (string, error)
	// Describe identifies the source in log lines.
	Describe() string
}

// FileSource reads a file fully on every tick, useful for /proc and /sys.
type FileSource struct {
	Path string
}

func (s FileSource) Describe() string { return "file " + s.Path }

func (s FileSource) run(string, map[string]string) (string, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w: %w", s.Path, ErrIO, err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("read %s: %w", s.Path, ErrEncoding)
	}
	return string(b), nil
}

// CommandSource spawns an executable and captures its standard output.
// Standard error and the exit status are ignored: a check that exits
// non-zero may still print usable output.
type CommandSource struct {
	Path string
	Args []string
}

func (s CommandSource) Describe() string { return "command " + s.Path }

func (s CommandSource) run(_ string, env map[string]string) (string, error) {
	return capture(s.Path, s.Args, env)
}

// ShellSource runs a script through the configured shell interpreter.
type ShellSource struct {
	Script string
}

func (s ShellSource) Describe() string { return "shell script" }

func (s ShellSource) run(shell string, env map[string]string) (string, error) {
	return capture(shell, []string{"-c", s.Script}, env)
}

// Execute runs the source once and returns its raw output.
func Execute(s Source, shell string, env map[string]string) (string, error) {
	return s.run(shell, env)
}

func capture(path string, args []string, env map[string]string) (string, error) {
	cmd := exec.Command(path, args...)
	cmd.Env = mergedEnv(env)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("run %s: %w: %w", path, ErrSpawn, err)
		}
	}
	if !utf8.Valid(stdout.Bytes()) {
		return "", fmt.Errorf("run %s: %w", path, ErrEncoding)
	}
	return stdout.String(), nil
}

// mergedEnv layers the item's extra variables over the inherited
// environment, in sorted-key order for determinism.
func mergedEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil // inherit as-is
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
