package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cboone/lazynode"
	"github.com/cboone/lazynode/config"
	"github.com/cboone/lazynode/internal/fakeui"
	"github.com/cboone/lazynode/ui"
)

const pageURL = "https://example.test/"

type harness struct {
	app    *app
	out    bytes.Buffer
	errOut bytes.Buffer
	urls   []string
}

// newHarness returns an app whose pages are all root.
func newHarness(root *fakeui.Root) *harness {
	p := &harness{}
	p.app = newApp(func(_ context.Context, _ *config.Config, _ *zap.Logger, url string) (ui.SearchContext, func(), error) {
		p.urls = append(p.urls, url)
		return root, func() {}, nil
	})
	return p
}

func (p *harness) run(args ...string) error {
	cmd := p.app.command()
	cmd.SetOut(&p.out)
	cmd.SetErr(&p.errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	p.app.close()
	return err
}

func TestVersion(t *testing.T) {
	p := newHarness(fakeui.NewRoot())
	require.NoError(t, p.run("--version"))
	assert.Equal(t, "dev\n", p.out.String())
}

func TestWaitPrintsText(t *testing.T) {
	root := fakeui.NewRoot()
	t.Cleanup(root.Stop)
	root.After(100*time.Millisecond, func() {
		root.Add(fakeui.E("h1").WithID("title").WithText("Welcome back"))
	})

	p := newHarness(root)
	require.NoError(t, p.run("wait", pageURL, "h1#title"))
	assert.Equal(t, "Welcome back\n", p.out.String())
	assert.Equal(t, []string{pageURL}, p.urls)
}

func TestWaitContains(t *testing.T) {
	root := fakeui.NewRoot()
	t.Cleanup(root.Stop)
	status := root.Add(fakeui.E("p").WithID("status").WithText("loading"))
	root.After(100*time.Millisecond, func() { status.SetText("Saved 3 items") })

	p := newHarness(root)
	require.NoError(t, p.run("-s", "id", "wait", "--contains", "saved", pageURL, "status"))
	assert.Equal(t, "Saved 3 items\n", p.out.String())
}

func TestWaitStates(t *testing.T) {
	root := fakeui.NewRoot()
	root.Add(fakeui.E("button").WithID("go").WithText("Go").Disabled())

	p := newHarness(root)
	require.NoError(t, p.run("wait", "--state", "visible", pageURL, "#go"))

	p = newHarness(root)
	err := p.run("--timeout", "100ms", "wait", "--state", "clickable", pageURL, "#go")
	require.Error(t, err)
	assert.True(t, errors.Is(err, lazynode.ErrNotFound), "got %v", err)
	assert.Contains(t, p.errOut.String(), "lazynode call failed")

	p = newHarness(root)
	err = p.run("wait", "--state", "gone", pageURL, "#go")
	assert.ErrorContains(t, err, `unknown state "gone"`)
}

func TestAbsent(t *testing.T) {
	root := fakeui.NewRoot()
	t.Cleanup(root.Stop)
	spinner := root.Add(fakeui.E("div").WithClass("spinner"))
	root.After(100*time.Millisecond, spinner.Remove)

	p := newHarness(root)
	require.NoError(t, p.run("-s", "class", "absent", pageURL, "spinner"))
	assert.Equal(t, "absent\n", p.out.String())
}

func TestClick(t *testing.T) {
	root := fakeui.NewRoot()
	t.Cleanup(root.Stop)
	button := root.Add(fakeui.E("button").WithID("open").WithText("Open"))
	button.OnAction(func(action string) {
		if action == "click" {
			root.After(50*time.Millisecond, func() {
				root.Add(fakeui.E("div").WithID("dialog"))
			})
		}
	})

	p := newHarness(root)
	require.NoError(t, p.run("click", "--then", "#dialog", pageURL, "#open"))
	assert.Equal(t, "clicked\nvisible css=#dialog\n", p.out.String())
	assert.Equal(t, []string{"click"}, button.Actions())
}

func TestSettled(t *testing.T) {
	if testing.Short() {
		t.Skip("settling takes at least a second")
	}
	root := fakeui.NewRoot()
	root.Add(fakeui.E("main").WithText("ready"))

	p := newHarness(root)
	require.NoError(t, p.run("settled", pageURL))
	assert.Regexp(t, `^settled \(\d+ bytes\)\n$`, p.out.String())
}

func TestUnknownStrategy(t *testing.T) {
	p := newHarness(fakeui.NewRoot())
	err := p.run("--strategy", "shadow", "wait", pageURL, "x")
	assert.ErrorContains(t, err, `unknown strategy "shadow"`)
	assert.Empty(t, p.urls, "no page is opened for a bad locator")
}

func TestArgs(t *testing.T) {
	p := newHarness(fakeui.NewRoot())
	assert.Error(t, p.run("wait", pageURL))
	assert.Error(t, p.run("settled"))
}

func TestConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazywait.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
wait:
  timeout: 150ms
  poll_interval: 20ms
logger:
  level: error
`), 0o644))

	root := fakeui.NewRoot()

	p := newHarness(root)
	require.NoError(t, p.run("--config", path, "absent", pageURL, "#nothing"))
	assert.Equal(t, 150*time.Millisecond, p.app.cfg.Wait.Timeout)
	assert.Equal(t, 20*time.Millisecond, p.app.cfg.Wait.PollInterval)
	assert.Equal(t, "error", p.app.cfg.Logger.Level)

	t.Setenv("LAZYNODE_WAIT_TIMEOUT", "300ms")
	p = newHarness(root)
	require.NoError(t, p.run("--config", path, "absent", pageURL, "#nothing"))
	assert.Equal(t, 300*time.Millisecond, p.app.cfg.Wait.Timeout, "environment beats the file")

	p = newHarness(root)
	require.NoError(t, p.run("--config", path, "--timeout", "2s", "--headed", "absent", pageURL, "#nothing"))
	assert.Equal(t, 2*time.Second, p.app.cfg.Wait.Timeout, "flags beat the environment")
	assert.False(t, p.app.cfg.Browser.Headless)
}

func TestBadConfig(t *testing.T) {
	p := newHarness(fakeui.NewRoot())
	err := p.run("--config", filepath.Join(t.TempDir(), "missing.yaml"), "absent", pageURL, "#x")
	assert.ErrorContains(t, err, "reading config file")

	p = newHarness(fakeui.NewRoot())
	err = p.run("--poll", "0s", "absent", pageURL, "#x")
	assert.ErrorContains(t, err, "wait.poll_interval")
	assert.Empty(t, p.urls)
}

func TestConfigInHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	require.NoError(t, os.WriteFile(filepath.Join(home, "lazywait.yaml"), []byte(`
wait:
  timeout: 250ms
logger:
  level: debug
  log_file: ~/logs/lazywait.log
`), 0o644))

	p := newHarness(fakeui.NewRoot())
	require.NoError(t, p.run("--config", "~/lazywait.yaml", "absent", pageURL, "#x"))
	assert.Equal(t, 250*time.Millisecond, p.app.cfg.Wait.Timeout)
	assert.Equal(t, filepath.Join(home, "logs", "lazywait.log"), p.app.cfg.Logger.LogFile)
	assert.FileExists(t, p.app.cfg.Logger.LogFile)
}
