package passwordmanager

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes one invocation of the op CLI and returns stdout.
type Runner interface {
	Run(ctx context.Context, env []string, args ...string) ([]byte, error)
}

// CommandError carries the failed invocation and what it wrote to stderr.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("op %s: %v (stderr: %s)", strings.Join(e.Args, " "), e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// CLIRunner runs the op binary as a subprocess.
type CLIRunner struct {
	// Binary defaults to "op" on PATH.
	Binary string
}

func (r CLIRunner) Run(ctx context.Context, env []string, args ...string) ([]byte, error) {
	binary := r.Binary
	if binary == "" {
		binary = "op"
	}
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, binary, args...)
	command.Env = append(os.Environ(), env...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}
