package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner executes an external tool and returns its standard output.
// Implementations must honour ctx cancellation.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandError describes a failed external tool invocation.
type CommandError struct {
	Name     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if len(stderr) > 400 {
		stderr = stderr[len(stderr)-400:]
	}
	if stderr == "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Name, e.Err, stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// RunCommand is the default CommandRunner backed by os/exec.
func RunCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return runCommand(ctx, nil, name, args...)
}

// RunCommandEnv returns a CommandRunner that adds env (KEY=VALUE pairs) to the
// inherited process environment.
func RunCommandEnv(env ...string) CommandRunner {
	extra := append([]string(nil), env...)
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return runCommand(ctx, extra, name, args...)
	}
}

func runCommand(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.Bytes(), ctxErr
		}
		cmdErr := &CommandError{Name: name, ExitCode: -1, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), cmdErr
	}
	return stdout.Bytes(), nil
}

// CommandOutput returns the captured stderr of a CommandError, or the error text.
func CommandOutput(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Stderr
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
