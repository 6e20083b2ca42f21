package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/eeforge/eectl/internal/logging"
)

// Command describes a single engine CLI invocation.
type Command struct {
	// Name is the executable, e.g. "docker".
	Name string
	// Args are the command arguments.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Stream forwards stdout to the logger as it is produced, in addition to capturing it.
	Stream bool
}

// String renders the command for logs and errors.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes engine commands and returns captured stdout.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands with os/exec, forwarding stderr (and optionally
// stdout) to the logger.
type ExecRunner struct {
	Logger *slog.Logger
}

// NewExecRunner constructs an ExecRunner bound to logger.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{Logger: logger}
}

// Run executes cmd. A non-zero exit status is returned as an error carrying the
// trimmed stderr output.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if r.Logger != nil {
		errLog := logging.NewWriter(r.Logger, cmd.Name)
		defer errLog.Flush()
		c.Stderr = io.MultiWriter(&stderr, errLog)
		if cmd.Stream {
			outLog := logging.NewWriter(r.Logger, cmd.Name).AtLevel(logging.LevelInfo)
			defer outLog.Flush()
			c.Stdout = io.MultiWriter(&stdout, outLog)
		}
		r.Logger.Debug("running command", "cmd", cmd.String(), "dir", cmd.Dir)
	}

	if err := c.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s failed: %w: %s", cmd, err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("%s failed: %w", cmd, err)
	}
	return stdout.Bytes(), nil
}
