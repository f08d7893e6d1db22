// internal/runner/runner.go
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"
)

// Runner abstracts external command execution so that the kubectl and
// helm interactions can be faked in tests with canned responses.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExternalToolError reports a command that exited with a non-zero status.
type ExternalToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s %s exited with status %d",
		e.Tool, strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}

// ParseError reports command output that could not be decoded as the
// structured data the caller expected.
type ParseError struct {
	Tool string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s output: %v", e.Tool, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands as local subprocesses, capturing stdout.
type ExecRunner struct {
	log logr.Logger
}

// New creates an ExecRunner that logs each invocation at debug verbosity.
func New(log logr.Logger) *ExecRunner {
	return &ExecRunner{log: log}
}

// Run executes the named command and returns its stdout. A non-zero exit
// is wrapped in *ExternalToolError carrying the captured stderr.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.log.V(1).Info("running command", "tool", name, "args", args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, &ExternalToolError{
			Tool:     name,
			Args:     args,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	return stdout.Bytes(), nil
}

// DecodeJSON unmarshals command output into v, wrapping failures in
// *ParseError so callers can distinguish bad output from a bad exit.
func DecodeJSON(tool string, data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &ParseError{Tool: tool, Err: err}
	}
	return nil
}
