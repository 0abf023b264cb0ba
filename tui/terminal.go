package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cboone/lazynode"
	"github.com/cboone/lazynode/internal/tmuxcli"
	"github.com/cboone/lazynode/poll"
	"github.com/cboone/lazynode/ui"
)

// Terminal is a program running in a private tmux server. It is a root
// search context whose nodes are screen lines, and a ui.Documenter whose
// source is the visible screen. Cleanup is registered with t.Cleanup.
type Terminal struct {
	t       testing.TB
	pane    pane
	width   int
	height  int
	session *lazynode.Session
}

var (
	_ ui.SearchContext = (*Terminal)(nil)
	_ ui.Documenter    = (*Terminal)(nil)
)

const recentCaptures = 3

// Open starts binary in a new tmux session and returns its terminal. The
// test is skipped when tmux is missing or too old, unless the tmux path was
// configured explicitly.
func Open(t testing.TB, binary string, userOpts ...Option) *Terminal {
	t.Helper()

	o := defaultOptions()
	for _, opt := range userOpts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	tmuxPath, explicit := resolveTmuxPath(t, o.tmuxPath)
	checkTmuxVersion(t, tmuxPath, explicit)

	sock := socketPath(t)
	runner := tmuxcli.New(tmuxPath, sock, o.logger)
	confPath := sock + ".conf"
	if err := os.WriteFile(confPath, []byte(tmuxConfig(o.historyLimit)), 0o644); err != nil {
		t.Fatalf("tui: open: writing tmux config: %v", err)
	}
	runner.SetConfigPath(confPath)
	t.Cleanup(func() {
		_, _ = runner.Run("kill-server")
		_ = os.Remove(confPath)
	})

	if _, err := runner.Run(sessionArgs(binary, o)...); err != nil {
		t.Fatalf("tui: open: starting tmux session: %v", err)
	}
	if err := runner.WaitForSession(5 * time.Second); err != nil {
		t.Fatalf("tui: open: %v", err)
	}
	out, err := runner.Run("list-panes", "-F", "#{pane_id}")
	if err != nil {
		t.Fatalf("tui: open: pane id: %v", err)
	}

	term := &Terminal{
		t:      t,
		pane:   pane{runner: runner, id: strings.TrimSpace(out)},
		width:  o.width,
		height: o.height,
	}
	sessOpts := append([]lazynode.Option{lazynode.WithLogger(o.logger)}, o.session...)
	term.session = lazynode.NewSession(term, sessOpts...)
	t.Cleanup(term.session.Close)
	return term
}

// Session returns the lazynode session bound to the terminal.
func (term *Terminal) Session() *lazynode.Session { return term.session }

// Find returns a lazy handle for the first screen line matching loc.
func (term *Terminal) Find(loc ui.Locator, name string) *lazynode.Handle {
	return term.session.Find(loc, name)
}

// FindAll returns the lines currently matching loc, top to bottom.
func (term *Terminal) FindAll(loc ui.Locator) ([]ui.Node, error) {
	scr, err := term.capture()
	if err != nil {
		return nil, err
	}
	rows, err := scr.Rows(loc)
	if err != nil {
		return nil, err
	}
	nodes := make([]ui.Node, len(rows))
	for i, r := range rows {
		nodes[i] = &Line{term: term, row: r, text: scr.Line(r)}
	}
	return nodes, nil
}

// Source returns the visible screen content.
func (term *Terminal) Source() (string, error) {
	scr, err := term.capture()
	if err != nil {
		return "", err
	}
	return scr.String(), nil
}

// capture reads the screen and, best effort, the cursor.
func (term *Terminal) capture() (*Screen, error) {
	raw, err := term.pane.capture()
	if err != nil {
		return nil, fmt.Errorf("tui: capture: %w", err)
	}
	scr := newScreen(raw, term.width, term.height)
	if row, col, err := term.pane.cursor(); err == nil {
		scr.cursorRow, scr.cursorCol = row, col
	}
	return scr, nil
}

// Screen captures the visible screen.
func (term *Terminal) Screen() *Screen {
	term.t.Helper()
	term.requireAlive("capture")
	scr, err := term.capture()
	if err != nil {
		term.t.Fatalf("%v", err)
	}
	return scr
}

// Scrollback captures the whole history, one line per row, oldest first.
// The returned screen's height is the number of captured lines and its
// width the longest line.
func (term *Terminal) Scrollback() *Screen {
	term.t.Helper()
	term.requireAlive("capture")
	raw, err := term.pane.scrollback()
	if err != nil {
		term.t.Fatalf("tui: capture: scrollback: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(raw, "\n"), "\n")
	width := 0
	for _, l := range lines {
		width = max(width, len(l))
	}
	return newScreen(raw, width, len(lines))
}

// SendKeys sends raw tmux key names.
func (term *Terminal) SendKeys(keys ...string) {
	term.t.Helper()
	term.requireAlive("send-keys")
	if err := term.pane.sendKeys(keys...); err != nil {
		term.t.Fatalf("tui: send-keys: %v", err)
	}
}

// Type sends s literally.
func (term *Terminal) Type(s string) {
	term.t.Helper()
	term.requireAlive("type")
	if err := term.pane.typeLiteral(s); err != nil {
		term.t.Fatalf("tui: type: %v", err)
	}
}

// Press sends special keys.
func (term *Terminal) Press(keys ...Key) {
	term.t.Helper()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	term.SendKeys(names...)
}

// Run types line and presses Enter.
func (term *Terminal) Run(line string) {
	term.t.Helper()
	term.Type(line)
	term.Press(Enter)
}

// Resize changes the window size; the program receives SIGWINCH.
func (term *Terminal) Resize(width, height int) {
	term.t.Helper()
	term.requireAlive("resize")
	if err := term.pane.resize(width, height); err != nil {
		term.t.Fatalf("tui: resize: %v", err)
	}
	term.width, term.height = width, height
}

// WaitExit waits up to the session timeout for the program to exit and
// returns its exit status.
func (term *Terminal) WaitExit() int {
	term.t.Helper()
	s := term.session.Settings()
	var recent []*Screen
	status, err := poll.For(func() (int, error) {
		st, err := term.pane.state()
		if err != nil {
			return 0, err
		}
		if !st.dead {
			if scr, err := term.capture(); err == nil {
				recent = keepRecent(recent, scr, recentCaptures)
			}
			return 0, errStillRunning
		}
		return st.exitStatus, nil
	}, s.PollInterval, s.Timeout)
	if err != nil {
		term.t.Fatalf("tui: wait-exit: %v\n    recent screen captures (oldest to newest):\n%s", err, formatRecent(recent))
	}
	return status
}

var errStillRunning = errors.New("process still running")

func (term *Terminal) requireAlive(op string) {
	term.t.Helper()
	st, err := term.pane.state()
	if err != nil {
		return
	}
	if st.dead {
		term.t.Fatalf("tui: %s: process exited unexpectedly (status %d)", op, st.exitStatus)
	}
}

func keepRecent(screens []*Screen, scr *Screen, n int) []*Screen {
	screens = append(screens, scr)
	if len(screens) > n {
		screens = screens[len(screens)-n:]
	}
	return screens
}

func formatRecent(screens []*Screen) string {
	if len(screens) == 0 {
		return "    (no screen captured)"
	}
	var b strings.Builder
	for i, scr := range screens {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "    capture %d/%d:\n%s", i+1, len(screens), boxed(scr))
	}
	return b.String()
}

// boxed draws scr inside a border for failure messages.
func boxed(scr *Screen) string {
	width, _ := scr.Size()
	if width == 0 {
		width = defaultWidth
	}
	border := strings.Repeat("─", width)

	var b strings.Builder
	fmt.Fprintf(&b, "    ┌%s┐\n", border)
	for _, line := range scr.Lines() {
		if pad := width - len(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		fmt.Fprintf(&b, "    │%s│\n", line)
	}
	fmt.Fprintf(&b, "    └%s┘", border)
	return b.String()
}
