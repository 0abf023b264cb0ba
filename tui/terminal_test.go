package tui_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cboone/lazynode"
	"github.com/cboone/lazynode/tui"
	"github.com/cboone/lazynode/ui"
)

var testBinary string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "lazynode-testbin-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}
	testBinary = filepath.Join(dir, "testbin")
	cmd := exec.Command("go", "build", "-o", testBinary, "github.com/cboone/lazynode/internal/testbin")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building testbin: %v\n", err)
		os.RemoveAll(dir)
		os.Exit(1)
	}
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func open(t *testing.T, opts ...tui.Option) *tui.Terminal {
	t.Helper()
	opts = append([]tui.Option{tui.WithLogger(zaptest.NewLogger(t))}, opts...)
	term := tui.Open(t, testBinary, opts...)
	_, err := term.Find(ui.ByText("ready>"), "prompt").ResolveVisible()
	require.NoError(t, err)
	return term
}

func TestLateOutputResolvesLazily(t *testing.T) {
	term := open(t)
	term.Run("later 300 hello async")

	start := time.Now()
	text, err := term.Find(ui.ByText("late: hello async"), "late line").Text()
	require.NoError(t, err)
	assert.Equal(t, "late: hello async", text)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestRegexpLocator(t *testing.T) {
	term := open(t)
	term.Run("show apple")

	text, err := term.Find(ui.ByRegexp(`^item: \w+$`), "item").Text()
	require.NoError(t, err)
	assert.Equal(t, "item: apple", text)
}

func TestIndexedLines(t *testing.T) {
	term := open(t)
	term.Run("lines 3")

	rows := term.Find(ui.ByRegexp(`^line \d+$`), "numbered rows")
	n, err := rows.WaitForCount(3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	text, err := rows.Nth(2).Text()
	require.NoError(t, err)
	assert.Equal(t, "line 3", text)

	row, ok, err := rows.Nth(0).Attribute("row")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEqual(t, "", row)
}

func TestWaitForAbsentAfterClear(t *testing.T) {
	term := open(t)
	term.Run("show gone")
	item := term.Find(ui.ByText("item: gone"), "item")
	_, err := item.ResolveVisible()
	require.NoError(t, err)

	term.Run("clear")
	require.NoError(t, item.WaitForAbsent())
	assert.False(t, item.ExistsNow())
}

func TestTypingThroughAHandle(t *testing.T) {
	term := open(t)
	prompt := term.Find(ui.ByText("ready>"), "prompt")

	require.NoError(t, prompt.SendKeys("ping"))
	require.NoError(t, prompt.Submit(), "the edited prompt row is found again")
	_, err := term.Find(ui.ByText("echo: ping"), "echo").ResolveExisting()
	require.NoError(t, err)

	err = prompt.Click()
	assert.ErrorIs(t, err, ui.ErrUnsupported)
	assert.ErrorIs(t, err, lazynode.ErrActionFailed)
}

func TestUnsupportedLocator(t *testing.T) {
	term := open(t)
	_, err := term.FindAll(ui.ByCSS("div"))
	assert.ErrorIs(t, err, ui.ErrUnsupported)
}

func TestResize(t *testing.T) {
	term := open(t)
	term.Resize(100, 30)
	term.Run("size")

	_, err := term.Find(ui.ByText("size: 100x30"), "size report").ResolveExisting()
	require.NoError(t, err)
	w, h := term.Screen().Size()
	assert.Equal(t, 100, w)
	assert.Equal(t, 30, h)
}

func TestScrollback(t *testing.T) {
	term := open(t, tui.WithSize(80, 10))
	term.Run("lines 40")
	_, err := term.Find(ui.ByText("line 40"), "last line").ResolveExisting()
	require.NoError(t, err)

	assert.False(t, term.Screen().Contains("line 1\n"))
	assert.True(t, slices.Contains(term.Scrollback().Lines(), "line 1"))
}

func TestWaitExit(t *testing.T) {
	term := open(t)
	term.Run("fail")
	assert.Equal(t, 1, term.WaitExit())
}

func TestSessionOptions(t *testing.T) {
	term := open(t, tui.WithSessionOptions(lazynode.WithPollInterval(20*time.Millisecond)))
	assert.Equal(t, 20*time.Millisecond, term.Session().Settings().PollInterval)

	term.Session().SetSettings(term.Session().Settings().WithTimeout(150 * time.Millisecond))

	_, err := term.Find(ui.ByText("never shown"), "ghost").ResolveExisting()
	assert.ErrorIs(t, err, lazynode.ErrNotFound)
}

func TestSourceAndSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("settling reads once per second")
	}
	term := open(t)
	term.Run("show snap")
	_, err := term.Find(ui.ByText("item: snap"), "item").ResolveExisting()
	require.NoError(t, err)

	src, err := term.Source()
	require.NoError(t, err)
	assert.Contains(t, src, "item: snap")

	t.Chdir(t.TempDir())
	t.Setenv(tui.UpdateEnv, "1")
	term.MatchSnapshot("after show")
	t.Setenv(tui.UpdateEnv, "")
	term.MatchSnapshot("after show")
}
