package lazynode_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cboone/lazynode"
	"github.com/cboone/lazynode/config"
	"github.com/cboone/lazynode/internal/fakeui"
	"github.com/cboone/lazynode/policy"
	"github.com/cboone/lazynode/poll"
	"github.com/cboone/lazynode/ui"
	"github.com/cboone/lazynode/wait"
)

type recorder struct {
	mu     sync.Mutex
	events []lazynode.Event
}

func (r *recorder) hook(ev lazynode.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []lazynode.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lazynode.Event(nil), r.events...)
}

func TestSessionDefaults(t *testing.T) {
	sess := lazynode.NewSession(fakeui.NewRoot())

	assert.Equal(t, policy.Settings{
		PollInterval: policy.DefaultPollInterval,
		Timeout:      policy.DefaultTimeout,
	}, sess.Settings())
	_, err := uuid.Parse(sess.ID())
	assert.NoError(t, err)
	assert.NotEqual(t, sess.ID(), lazynode.NewSession(fakeui.NewRoot()).ID())
}

func TestSessionOptions(t *testing.T) {
	t.Run("timeout and poll interval", func(t *testing.T) {
		sess := lazynode.NewSession(fakeui.NewRoot(),
			lazynode.WithTimeout(2*time.Second),
			lazynode.WithPollInterval(time.Millisecond),
		)
		assert.Equal(t, 2*time.Second, sess.Settings().Timeout)
		assert.Equal(t, policy.MinPollInterval, sess.Settings().PollInterval)
	})

	t.Run("config", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.Wait.Timeout = 1500 * time.Millisecond
		cfg.Wait.PollInterval = 75 * time.Millisecond
		sess := lazynode.NewSession(fakeui.NewRoot(), lazynode.WithConfig(cfg))
		assert.Equal(t, policy.Settings{PollInterval: 75 * time.Millisecond, Timeout: 1500 * time.Millisecond}, sess.Settings())
	})

	t.Run("shared registry", func(t *testing.T) {
		reg := policy.NewRegistry(policy.Settings{Timeout: time.Second})
		a := lazynode.NewSession(fakeui.NewRoot(), lazynode.WithRegistry(reg), lazynode.WithTimeout(3*time.Second))
		b := lazynode.NewSession(fakeui.NewRoot(), lazynode.WithRegistry(reg))

		assert.Same(t, reg, a.Registry())
		assert.Equal(t, 3*time.Second, a.Settings().Timeout)
		assert.Equal(t, policy.DefaultPollInterval, a.Settings().PollInterval)
		assert.Equal(t, time.Second, b.Settings().Timeout)
		assert.Equal(t, 2, reg.Len())

		a.Close()
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("wrapped root shares the policy", func(t *testing.T) {
		reg := policy.NewRegistry(policy.Settings{})
		root := fakeui.NewRoot()
		raw := lazynode.NewSession(root, lazynode.WithRegistry(reg))
		wrapped := lazynode.NewSession(fakeui.Wrap(root), lazynode.WithRegistry(reg))

		wrapped.SetSettings(policy.Settings{PollInterval: 20 * time.Millisecond, Timeout: 700 * time.Millisecond})
		assert.Equal(t, 700*time.Millisecond, raw.Settings().Timeout)
		assert.Equal(t, 1, reg.Len())
	})
}

func TestHookSeesEveryPublicCall(t *testing.T) {
	rec := &recorder{}
	sess, root := newSession(t, quick(60*time.Millisecond), lazynode.WithHook(rec.hook))
	root.Add(fakeui.E("form").WithID("f").Children(fakeui.E("input").WithName("q")))

	q := lazynode.FromParent(sess.Find(ui.ByID("f"), "form"), ui.ByName("q"), "query")
	_, err := q.ResolveVisible()
	require.NoError(t, err)
	require.NoError(t, q.SendKeys("x"))
	_, err = sess.Find(ui.ByID("nope"), "nope").ResolveExisting()
	require.Error(t, err)
	_, err = sess.Find(ui.ByTag("li"), "rows").Nth(-2).ResolveExisting()
	require.Error(t, err)
	err = sess.Find(ui.ByName("q"), "query").SelectOption(ui.OptionIndex(3))
	require.Error(t, err)

	events := rec.all()
	require.Len(t, events, 5, "parent resolution inside a call is not a separate event")

	assert.Equal(t, "resolve-visible", events[0].Op)
	assert.Equal(t, `id=f "form" > name=q "query"`, events[0].Chain)
	assert.Equal(t, "query", events[0].Name)
	assert.Equal(t, lazynode.OutcomeOK, events[0].Outcome)
	assert.Equal(t, sess.ID(), events[0].Session)

	assert.Equal(t, "send-keys", events[1].Op)
	assert.Equal(t, lazynode.OutcomeOK, events[1].Outcome)

	assert.Equal(t, lazynode.OutcomeTimeout, events[2].Outcome)
	assert.ErrorIs(t, events[2].Err, lazynode.ErrNotFound)
	assert.GreaterOrEqual(t, events[2].Elapsed, 60*time.Millisecond)

	assert.Equal(t, lazynode.OutcomeInvalid, events[3].Outcome)

	assert.Equal(t, "select-option", events[4].Op)
	assert.Equal(t, lazynode.OutcomeFailed, events[4].Outcome)
}

func TestNilHookDisablesEvents(t *testing.T) {
	sess, root := newSession(t, quick(time.Second), lazynode.WithHook(nil))
	root.Add(fakeui.E("div").WithID("x"))
	_, err := sess.Find(ui.ByID("x"), "").ResolveExisting()
	require.NoError(t, err)
}

func TestLogHook(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sess, root := newSession(t, quick(40*time.Millisecond), lazynode.WithLogger(zap.New(core)))
	root.Add(fakeui.E("div").WithID("x"))

	_, err := sess.Find(ui.ByID("x"), "box").ResolveExisting()
	require.NoError(t, err)
	_, err = sess.Find(ui.ByID("y"), "other box").ResolveExisting()
	require.Error(t, err)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "resolve-existing", fields["op"])
	assert.Equal(t, `id=x "box"`, fields["handle"])
	assert.Equal(t, "ok", fields["outcome"])
	assert.Equal(t, sess.ID(), fields["session"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	fields = entries[1].ContextMap()
	assert.Equal(t, "timeout", fields["outcome"])
	assert.Contains(t, fields["error"], `"other box" not existing`)
}

func TestWaitForAnyReturnsFirstReady(t *testing.T) {
	sess, root := newSession(t, policy.Settings{PollInterval: 100 * time.Millisecond, Timeout: time.Second})
	root.After(150*time.Millisecond, func() {
		root.Add(fakeui.E("div").WithID("error-banner"))
	})
	dashboard := sess.Find(ui.ByID("dashboard"), "dashboard")
	banner := sess.Find(ui.ByID("error-banner"), "error banner")

	start := time.Now()
	got, err := sess.WaitForAny("landing", wait.StateVisible, dashboard, banner)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Same(t, banner, got)
	assert.NotNil(t, banner.Cached())
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestWaitForAnyAggregatesFailures(t *testing.T) {
	sess, _ := newSession(t, quick(50*time.Millisecond))

	_, err := sess.WaitForAny("landing", wait.StateExists,
		sess.Find(ui.ByID("a"), ""),
		sess.Find(ui.ByID("b"), ""),
	)
	require.ErrorIs(t, err, poll.ErrTimeout)
	assert.Contains(t, err.Error(), "landing[0]: id=a: ui: no such node")
	assert.Contains(t, err.Error(), "landing[1]: id=b: ui: no such node")
}

func TestWaitForAll(t *testing.T) {
	sess, root := newSession(t, quick(time.Second))
	ids := []string{"header", "sidebar", "footer"}
	handles := make([]*lazynode.Handle, len(ids))
	for i, id := range ids {
		root.After(time.Duration(i+1)*30*time.Millisecond, func() {
			root.Add(fakeui.E("div").WithID(id))
		})
		handles[i] = sess.Find(ui.ByID(id), id)
	}

	start := time.Now()
	require.NoError(t, sess.WaitForAll(wait.StateVisible, handles...))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "handles resolve concurrently")
	for _, h := range handles {
		assert.NotNil(t, h.Cached())
	}

	sess.SetSettings(quick(50 * time.Millisecond))
	err := sess.WaitForAll(wait.StateExists, handles[0], sess.Find(ui.ByID("missing"), "missing"))
	var nf *lazynode.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing", nf.Name)
}

func TestWaitForPageSettled(t *testing.T) {
	if testing.Short() {
		t.Skip("settling reads once per second")
	}
	sess, root := newSession(t, quick(3*time.Second))
	root.Add(fakeui.E("main").WithText("ready"))

	src, err := sess.WaitForPageSettled()
	require.NoError(t, err)
	assert.Equal(t, "<main>ready</main>", src)
}

func TestWaitForPageSettledThroughWrapper(t *testing.T) {
	if testing.Short() {
		t.Skip("settling reads once per second")
	}
	root := fakeui.NewRoot()
	root.Add(fakeui.E("p").WithText("x"))
	sess := lazynode.NewSession(fakeui.Wrap(root), lazynode.WithLogger(zaptest.NewLogger(t)), lazynode.WithTimeout(3*time.Second))

	src, err := sess.WaitForPageSettled()
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", src)
}

func TestWaitForPageSettledNeedsDocumenter(t *testing.T) {
	sess := lazynode.NewSession(&listRoot{})
	_, err := sess.WaitForPageSettled()
	assert.ErrorIs(t, err, ui.ErrUnsupported)
}
