package tui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cboone/lazynode/internal/tmuxcli"
)

const minTmuxVersion = "3.0"

// TmuxEnv names the environment variable consulted for the tmux binary
// when WithTmuxPath is not given.
const TmuxEnv = "LAZYNODE_TMUX"

// resolveTmuxPath picks the tmux binary: the WithTmuxPath option, then
// $LAZYNODE_TMUX, then $PATH. explicit reports whether it was configured,
// in which case a broken binary fails the test instead of skipping it.
func resolveTmuxPath(t testing.TB, configured string) (path string, explicit bool) {
	t.Helper()
	if configured != "" {
		return configured, true
	}
	if env := os.Getenv(TmuxEnv); env != "" {
		return env, true
	}
	found, err := exec.LookPath("tmux")
	if err != nil {
		t.Skip("tui: open: tmux not found")
	}
	return found, false
}

func checkTmuxVersion(t testing.TB, tmuxPath string, explicit bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fail := t.Skipf
	if explicit {
		fail = t.Fatalf
	}
	version, err := tmuxcli.Version(ctx, tmuxPath)
	if err != nil {
		fail("tui: open: %v", err)
		return
	}
	if !versionAtLeast(version, minTmuxVersion) {
		fail("tui: open: tmux %s is older than %s", version, minTmuxVersion)
	}
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

// versionAtLeast compares the first major.minor found in each string, so
// "next-3.5" and "3.3a" both parse.
func versionAtLeast(version, minimum string) bool {
	parse := func(v string) (major, minor int, ok bool) {
		m := versionRe.FindStringSubmatch(v)
		if m == nil {
			return 0, 0, false
		}
		major, _ = strconv.Atoi(m[1])
		minor, _ = strconv.Atoi(m[2])
		return major, minor, true
	}
	vMajor, vMinor, ok := parse(version)
	mMajor, mMinor, mok := parse(minimum)
	if !ok || !mok {
		return false
	}
	if vMajor != mMajor {
		return vMajor > mMajor
	}
	return vMinor >= mMinor
}

// socketPath returns a per-test socket path under the temp dir.
func socketPath(t testing.TB) string {
	name := fmt.Sprintf("lazynode-%s-%s.sock", sanitizeName(t.Name()), uuid.NewString()[:8])
	return filepath.Join(os.TempDir(), name)
}

// sanitizeName maps name to a short filesystem-safe string. Unix socket
// paths are limited to a little over 100 bytes.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}

func tmuxConfig(historyLimit int) string {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return fmt.Sprintf("set-option -g history-limit %d\nset-option -g remain-on-exit on\nset-option -g status off\n", historyLimit)
}

// sessionArgs builds the new-session command line. Environment entries are
// passed through /usr/bin/env so they reach the program and not only the
// tmux server.
func sessionArgs(binary string, o options) []string {
	args := []string{
		"new-session", "-d",
		"-x", strconv.Itoa(o.width),
		"-y", strconv.Itoa(o.height),
	}
	if o.dir != "" {
		args = append(args, "-c", o.dir)
	}
	args = append(args, "--")
	if len(o.env) > 0 {
		args = append(args, "/usr/bin/env")
		args = append(args, o.env...)
	}
	args = append(args, binary)
	return append(args, o.args...)
}

// pane addresses one tmux pane.
type pane struct {
	runner *tmuxcli.Runner
	id     string
}

func (p pane) capture() (string, error) {
	return p.runner.Run("capture-pane", "-p", "-t", p.id)
}

func (p pane) scrollback() (string, error) {
	return p.runner.Run("capture-pane", "-p", "-t", p.id, "-S", "-", "-E", "-")
}

func (p pane) sendKeys(keys ...string) error {
	_, err := p.runner.Run(append([]string{"send-keys", "-t", p.id}, keys...)...)
	return err
}

// typeLiteral sends s in tmux literal mode, so key names inside s are not
// interpreted.
func (p pane) typeLiteral(s string) error {
	_, err := p.runner.Run("send-keys", "-t", p.id, "-l", s)
	return err
}

func (p pane) resize(width, height int) error {
	_, err := p.runner.Run("resize-window", "-t", p.id, "-x", strconv.Itoa(width), "-y", strconv.Itoa(height))
	return err
}

type paneState struct {
	dead       bool
	exitStatus int
}

func (p pane) state() (paneState, error) {
	out, err := p.runner.Run("list-panes", "-t", p.id, "-F", "#{pane_dead} #{pane_dead_status}")
	if err != nil {
		return paneState{}, err
	}
	return parsePaneState(out), nil
}

func parsePaneState(out string) paneState {
	dead, status, _ := strings.Cut(strings.TrimSpace(out), " ")
	st := paneState{dead: dead == "1"}
	if st.dead {
		st.exitStatus, _ = strconv.Atoi(status)
	}
	return st
}

func (p pane) cursor() (row, col int, err error) {
	out, err := p.runner.Run("display-message", "-p", "-t", p.id, "#{cursor_x} #{cursor_y}")
	if err != nil {
		return 0, 0, err
	}
	return parseCursor(out)
}

func parseCursor(out string) (row, col int, err error) {
	x, y, ok := strings.Cut(strings.TrimSpace(out), " ")
	if !ok {
		return 0, 0, fmt.Errorf("tui: unexpected cursor output %q", out)
	}
	if col, err = strconv.Atoi(x); err != nil {
		return 0, 0, fmt.Errorf("tui: cursor_x: %w", err)
	}
	if row, err = strconv.Atoi(y); err != nil {
		return 0, 0, fmt.Errorf("tui: cursor_y: %w", err)
	}
	return row, col, nil
}
