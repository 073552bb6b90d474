// Package execenv runs a child process with session variables added to its
// environment.
package execenv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	dserrors "github.com/systmms/vaultsess/internal/errors"
	"github.com/systmms/vaultsess/internal/logging"
)

// Executor runs commands with extra environment variables.
type Executor struct {
	logger *logging.Logger
	// Environ returns the parent environment. Defaults to os.Environ.
	Environ func() []string
}

// New creates a new executor
func New(logger *logging.Logger) *Executor {
	return &Executor{logger: logger, Environ: os.Environ}
}

// Options configures one child process.
type Options struct {
	Command []string
	// Environment is added to the parent environment and wins over it
	// unless KeepExisting is set.
	Environment  map[string]string
	KeepExisting bool
	Stdin        io.Reader
	Stdout       io.Writer
	Stderr       io.Writer
}

// ExitError carries a non-zero exit status of the child so the caller can
// propagate it.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.Code)
}

// Run starts the command and waits for it.
func (e *Executor) Run(ctx context.Context, opts Options) error {
	if len(opts.Command) == 0 {
		return dserrors.UserError{
			Message:    "No command specified",
			Suggestion: "Provide a command after --, e.g. vaultsess exec -- terraform plan",
		}
	}

	name := opts.Command[0]
	if _, err := exec.LookPath(name); err != nil {
		return dserrors.UserError{
			Message:    fmt.Sprintf("Command %q not found", name),
			Details:    err.Error(),
			Suggestion: "Check that the command is installed and in your PATH",
			Err:        err,
		}
	}

	cmd := exec.CommandContext(ctx, name, opts.Command[1:]...)
	cmd.Env = e.buildEnvironment(opts.Environment, opts.KeepExisting)
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	e.logger.Debug("Executing command: %s", strings.Join(opts.Command, " "))
	for _, key := range sortedKeys(opts.Environment) {
		e.logger.Debug("  %s=%s", key, maskValue(opts.Environment[key]))
	}

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = 1
		}
		return &ExitError{Code: code}
	}
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	return nil
}

// buildEnvironment merges vars into the parent environment. The result is
// sorted for stable debugging output.
func (e *Executor) buildEnvironment(vars map[string]string, keepExisting bool) []string {
	environ := e.Environ
	if environ == nil {
		environ = os.Environ
	}

	envMap := make(map[string]string)
	for _, kv := range environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			envMap[key] = value
		}
	}
	for key, value := range vars {
		if _, exists := envMap[key]; exists && keepExisting {
			continue
		}
		envMap[key] = value
	}

	result := make([]string, 0, len(envMap))
	for key, value := range envMap {
		result = append(result, key+"="+value)
	}
	sort.Strings(result)
	return result
}

// maskValue hides all but a few characters of a value.
func maskValue(value string) string {
	switch {
	case value == "":
		return "(empty)"
	case len(value) <= 3:
		return strings.Repeat("*", len(value))
	case len(value) <= 8:
		return value[:1] + strings.Repeat("*", len(value)-2) + value[len(value)-1:]
	default:
		return value[:3] + strings.Repeat("*", 8) + value[len(value)-2:]
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
