package wait

import (
	"errors"
	"fmt"
	"time"

	"github.com/cboone/lazynode/policy"
	"github.com/cboone/lazynode/poll"
	"github.com/cboone/lazynode/ui"
)

// For polls cond against sc until it is satisfied or s.Timeout elapses.
// On timeout it returns a *poll.TimeoutError labelled with the condition and
// wrapping the last not-ready reason.
func For(sc ui.SearchContext, cond Condition, s policy.Settings) (ui.Node, error) {
	out, attempts := poll.PollCounted(func() poll.Outcome[ui.Node] {
		return cond.Check(sc)
	}, s.PollInterval, s.Timeout)
	if out.OK() {
		return out.Value, nil
	}
	return nil, &poll.TimeoutError{Label: "wait for " + cond.String(), Timeout: s.Timeout, Attempts: attempts, Last: out.Err}
}

// ErrStillDisplayed is the last reason reported by ForAbsent when the node
// never went away.
var ErrStillDisplayed = errors.New("wait: still displayed")

// ForAbsent waits until loc no longer resolves to a displayed node under sc.
// It succeeds as soon as the node is missing, present but not displayed, or
// stale on access, and fails only if the node stays displayed for the whole
// window. Query errors other than staleness are retried like a displayed
// node.
func ForAbsent(sc ui.SearchContext, loc ui.Locator, s policy.Settings) error {
	out, attempts := poll.PollCounted(func() poll.Outcome[struct{}] {
		return absent(sc, loc)
	}, s.PollInterval, s.Timeout)
	if out.OK() {
		return nil
	}
	return &poll.TimeoutError{
		Label:    fmt.Sprintf("wait for %s to be absent", loc),
		Timeout:  s.Timeout,
		Attempts: attempts,
		Last:     out.Err,
	}
}

func absent(sc ui.SearchContext, loc ui.Locator) poll.Outcome[struct{}] {
	gone := poll.Ready(struct{}{})
	nodes, err := sc.FindAll(loc)
	switch {
	case err == nil && len(nodes) == 0:
		return gone
	case ui.IsStale(err), ui.IsNoSuchNode(err):
		return gone
	case err != nil:
		return poll.Pending[struct{}](err)
	}
	shown, err := nodes[0].IsDisplayed()
	switch {
	case ui.IsStale(err), ui.IsNoSuchNode(err):
		return gone
	case err != nil:
		return poll.Pending[struct{}](err)
	case !shown:
		return gone
	}
	return poll.Pending[struct{}](fmt.Errorf("%s: %w", loc, ErrStillDisplayed))
}

// settleGranularity is the fixed spacing of ForPageSettled reads.
var settleGranularity = time.Second

// ErrNotSettled is the last reason reported by ForPageSettled.
var ErrNotSettled = errors.New("wait: document still changing")

// ForPageSettled reads the full document from doc once per second,
// independent of any policy poll interval, until two consecutive reads are
// identical and non-empty, and returns the settled content.
//
// This is a heuristic approximation of "no pending asynchronous mutation",
// not a guarantee: a page that mutates less often than once per second, or
// that is idle between two bursts, will be reported as settled.
func ForPageSettled(doc ui.Documenter, timeout time.Duration) (string, error) {
	var prev string
	have := false
	out, attempts := poll.PollCounted(func() poll.Outcome[string] {
		cur, err := doc.Source()
		if err != nil {
			have = false
			return poll.Pending[string](err)
		}
		if cur != "" && have && cur == prev {
			return poll.Ready(cur)
		}
		prev, have = cur, true
		if cur == "" {
			return poll.Pending[string](fmt.Errorf("%w: empty document", ErrNotSettled))
		}
		return poll.Pending[string](ErrNotSettled)
	}, settleGranularity, timeout)
	if out.OK() {
		return out.Value, nil
	}
	return "", &poll.TimeoutError{Label: "wait for page to settle", Timeout: timeout, Attempts: attempts, Last: out.Err}
}
