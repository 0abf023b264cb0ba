// Package tmuxcli runs tmux commands against a private server socket. It is
// internal to the tui backend.
package tmuxcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cboone/lazynode/poll"
)

// Runner executes tmux commands against one server socket.
type Runner struct {
	tmuxPath   string
	socketPath string
	configPath string
	logger     *zap.Logger
}

// New returns a Runner for the tmux binary at tmuxPath talking to the server
// at socketPath. A nil logger discards command traces.
func New(tmuxPath, socketPath string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		tmuxPath:   tmuxPath,
		socketPath: socketPath,
		logger:     logger.With(zap.String("socket", socketPath)),
	}
}

// SetConfigPath makes every later invocation pass -f path.
func (r *Runner) SetConfigPath(path string) {
	r.configPath = path
}

// Run executes a tmux command and returns its stdout.
func (r *Runner) Run(args ...string) (string, error) {
	return r.RunContext(context.Background(), args...)
}

// RunContext executes a tmux command under ctx and returns its stdout. A
// failed command returns an *Error carrying stderr.
func (r *Runner) RunContext(ctx context.Context, args ...string) (string, error) {
	full := make([]string, 0, len(args)+4)
	if r.configPath != "" {
		full = append(full, "-f", r.configPath)
	}
	full = append(full, "-S", r.socketPath)
	full = append(full, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.tmuxPath, full...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("tmux",
		zap.Strings("args", args),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		op := ""
		if len(args) > 0 {
			op = args[0]
		}
		return "", &Error{Op: op, Args: full, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.String(), nil
}

// SocketPath returns the server socket path.
func (r *Runner) SocketPath() string { return r.socketPath }

// TmuxPath returns the tmux binary path.
func (r *Runner) TmuxPath() string { return r.tmuxPath }

// Error is a failed tmux command.
type Error struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("tmuxcli: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tmuxcli: %s: %v: %s", e.Op, e.Err, e.Stderr)
}

func (e *Error) Unwrap() error { return e.Err }

// Version returns the version reported by "tmux -V", such as "3.4" or
// "next-3.5".
func Version(ctx context.Context, tmuxPath string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tmuxPath, "-V")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tmuxcli: -V: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimPrefix(strings.TrimSpace(stdout.String()), "tmux "), nil
}

// WaitForSession polls until the server answers list-panes or timeout
// elapses.
func (r *Runner) WaitForSession(timeout time.Duration) error {
	_, err := poll.For(func() (string, error) {
		return r.Run("list-panes", "-F", "#{pane_id}")
	}, 10*time.Millisecond, timeout)
	if err != nil {
		return fmt.Errorf("tmuxcli: session not ready: %w", err)
	}
	return nil
}
