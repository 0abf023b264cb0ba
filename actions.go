package lazynode

import (
	"errors"
	"fmt"
	"time"

	"github.com/cboone/lazynode/poll"
	"github.com/cboone/lazynode/ui"
	"github.com/cboone/lazynode/wait"
)

// Click waits until the node is clickable and clicks it.
func (h *Handle) Click() error {
	return h.act("click", clickableCheck, ui.Node.Click)
}

// SendKeys waits until the node is visible and types text into it.
func (h *Handle) SendKeys(text string) error {
	return h.act("send-keys", visibleCheck, func(n ui.Node) error {
		return n.SendKeys(text)
	})
}

// Clear waits until the node is visible and clears its value.
func (h *Handle) Clear() error {
	return h.act("clear", visibleCheck, ui.Node.Clear)
}

// Submit waits until the node exists and submits it.
func (h *Handle) Submit() error {
	return h.act("submit", existsCheck, ui.Node.Submit)
}

// SelectOption waits until the node is visible and selects opt.
func (h *Handle) SelectOption(opt ui.Option) error {
	return h.act("select-option", visibleCheck, func(n ui.Node) error {
		return n.SelectOption(opt)
	})
}

func (h *Handle) act(action string, c check, fn func(ui.Node) error) error {
	start := time.Now()
	err := h.perform(action, c, fn)
	h.emit(action, start, err)
	return err
}

// perform resolves the node and runs fn on it. Resolution failures are
// returned as is; a failure of fn is wrapped in an *ActionError.
func (h *Handle) perform(action string, c check, fn func(ui.Node) error) error {
	n, err := h.resolveNode(action, c)
	if err != nil {
		return err
	}
	if err := fn(n); err != nil {
		if ui.IsStale(err) {
			h.Invalidate()
		}
		return &ActionError{Action: action, Chain: h.String(), Name: h.name, Err: err}
	}
	return nil
}

// read resolves the existing node and runs fn on it. If fn reports the node
// stale, the handle resolves again and retries once.
func (h *Handle) read(op string, fn func(ui.Node) error) error {
	start := time.Now()
	err := h.readNode(op, fn)
	h.emit(op, start, err)
	return err
}

func (h *Handle) readNode(op string, fn func(ui.Node) error) error {
	for retried := false; ; retried = true {
		n, err := h.resolveNode(op, existsCheck)
		if err != nil {
			return err
		}
		err = fn(n)
		if err == nil {
			return nil
		}
		if ui.IsStale(err) {
			h.Invalidate()
			if !retried {
				continue
			}
		}
		return &ActionError{Action: op, Chain: h.String(), Name: h.name, Err: err}
	}
}

// Text returns the node's text once it exists.
func (h *Handle) Text() (string, error) {
	var text string
	err := h.read("text", func(n ui.Node) (err error) {
		text, err = n.Text()
		return err
	})
	return text, err
}

// Attribute returns an attribute of the node once it exists, and whether
// the attribute is present.
func (h *Handle) Attribute(name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := h.read("attribute", func(n ui.Node) (err error) {
		value, ok, err = n.Attribute(name)
		return err
	})
	return value, ok, err
}

// Property returns a property of the node once it exists.
func (h *Handle) Property(name string) (any, error) {
	var value any
	err := h.read("property", func(n ui.Node) (err error) {
		value, err = n.Property(name)
		return err
	})
	return value, err
}

// IsDisplayed reports whether the node is displayed right now. A missing or
// stale node is not displayed. Like ExistsNow, it zeroes the root's timeout
// for the duration of the call.
func (h *Handle) IsDisplayed() (bool, error) {
	start := time.Now()
	var (
		shown bool
		err   error
	)
	h.withoutWait(func() {
		var n ui.Node
		if n, err = h.resolveNode("is-displayed", existsCheck); err != nil {
			return
		}
		if shown, err = n.IsDisplayed(); ui.IsStale(err) {
			h.Invalidate()
		}
	})
	if errors.Is(err, ErrNotFound) || ui.IsStale(err) {
		shown, err = false, nil
	}
	h.emit("is-displayed", start, err)
	return shown, err
}

// Count returns how many nodes match the handle's locator right now. The
// parent, if any, is waited for first.
func (h *Handle) Count() (int, error) {
	start := time.Now()
	n, err := h.count()
	h.emit("count", start, err)
	return n, err
}

func (h *Handle) count() (int, error) {
	sc, err := h.matchContext("count")
	if err != nil {
		return 0, err
	}
	nodes, err := sc.FindAll(h.loc)
	if err != nil {
		return 0, &ActionError{Action: "count", Chain: h.String(), Name: h.name, Err: err}
	}
	return len(nodes), nil
}

// WaitForCount polls until exactly n nodes match the handle's locator and
// returns the last count seen, whether or not it matched.
func (h *Handle) WaitForCount(n int) (int, error) {
	start := time.Now()
	got, err := h.waitForCount(n)
	h.emit("wait-for-count", start, err)
	return got, err
}

func (h *Handle) waitForCount(n int) (int, error) {
	if _, err := h.matchContext("wait-for-count"); err != nil {
		return 0, err
	}
	s := h.session.Settings()
	got, err := poll.ForMatch(func() (int, error) {
		sc, err := h.context()
		if err != nil {
			return 0, err
		}
		nodes, err := sc.FindAll(h.loc)
		return len(nodes), err
	}, n, s.PollInterval, s.Timeout)
	if err != nil {
		return got, fmt.Errorf("lazynode: wait-for-count: %s: %w", h, err)
	}
	return got, nil
}

// All returns one indexed handle per node currently matching the handle's
// locator, each seeded with its node. The parent, if any, is waited for
// first; an empty match set is not an error.
func (h *Handle) All() ([]*Handle, error) {
	start := time.Now()
	hs, err := h.all()
	h.emit("all", start, err)
	return hs, err
}

func (h *Handle) all() ([]*Handle, error) {
	sc, err := h.matchContext("all")
	if err != nil {
		return nil, err
	}
	nodes, err := sc.FindAll(h.loc)
	if err != nil {
		return nil, &ActionError{Action: "all", Chain: h.String(), Name: h.name, Err: err}
	}
	out := make([]*Handle, len(nodes))
	for i, n := range nodes {
		sib := h.Nth(i)
		sib.cached = n
		out[i] = sib
	}
	return out, nil
}

// WaitForAbsent waits until the node is missing, not displayed, or stale.
// It fails only if the node stays displayed for the root's whole timeout.
func (h *Handle) WaitForAbsent() error {
	start := time.Now()
	err := h.waitForAbsent()
	h.emit("wait-for-absent", start, err)
	return err
}

func (h *Handle) waitForAbsent() error {
	if h.indexed && h.index < 0 {
		return h.invalid(0, errNegative)
	}
	s := h.session.Settings()

	var err error
	if h.indexed {
		out, attempts := poll.PollCounted(func() poll.Outcome[struct{}] {
			if h.attempt(visibleCheck).OK() {
				return poll.Pending[struct{}](fmt.Errorf("%s: %w", h, wait.ErrStillDisplayed))
			}
			return poll.Ready(struct{}{})
		}, s.PollInterval, s.Timeout)
		if !out.OK() {
			err = &poll.TimeoutError{
				Label:    "wait for " + h.String() + " to be absent",
				Timeout:  s.Timeout,
				Attempts: attempts,
				Last:     out.Err,
			}
		}
	} else {
		err = wait.ForAbsent(parentContext{h}, h.loc, s)
	}
	if err != nil {
		return fmt.Errorf("lazynode: wait-for-absent: %w", err)
	}
	h.Invalidate()
	return nil
}

// parentContext evaluates locators against the live parent of h, looked up
// afresh when needed. A missing parent surfaces as ui.ErrNoSuchNode.
type parentContext struct{ h *Handle }

func (c parentContext) FindAll(loc ui.Locator) ([]ui.Node, error) {
	sc, err := c.h.context()
	if err != nil {
		return nil, err
	}
	return sc.FindAll(loc)
}
