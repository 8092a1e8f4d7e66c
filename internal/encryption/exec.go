package encryption

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its standard output
type Runner interface {
	Run(name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(name string, args ...string) ([]byte, error)

// Run calls f
func (f RunnerFunc) Run(name string, args ...string) ([]byte, error) {
	return f(name, args...)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run looks name up in PATH and executes it, capturing stdout and stderr
func (ExecRunner) Run(name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %s: %w", ErrEncryption, ErrToolUnavailable, name, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%w: %s: %w", ErrEncryption, name, err)
		}
		return nil, fmt.Errorf("%w: %s: %w: %s", ErrEncryption, name, err, msg)
	}

	return stdout.Bytes(), nil
}

func runnerOrDefault(r Runner) Runner {
	if r == nil {
		return ExecRunner{}
	}
	return r
}
