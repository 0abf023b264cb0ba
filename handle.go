package lazynode

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cboone/lazynode/poll"
	"github.com/cboone/lazynode/ui"
	"github.com/cboone/lazynode/wait"
)

// Handle is a lazy reference to a remote node. It is built without I/O and
// resolved on first use; the resolved node is cached and reused for as long
// as it passes a liveness check.
//
// A Handle carries no wait settings of its own. Every resolution reads the
// current policy of its session's root.
type Handle struct {
	session *Session
	parent  *Handle
	loc     ui.Locator
	name    string
	index   int
	indexed bool

	mu     sync.Mutex
	cached ui.Node
}

// FromRoot returns a top-level handle for loc under the session root. An
// empty name is derived from the locator.
func FromRoot(s *Session, loc ui.Locator, name string) *Handle {
	return &Handle{session: s, loc: loc, name: nameFor(loc, name)}
}

// FromParent returns a handle for loc under parent. parent must not be nil.
func FromParent(parent *Handle, loc ui.Locator, name string, opts ...HandleOption) *Handle {
	h := &Handle{session: parent.session, parent: parent, loc: loc, name: nameFor(loc, name)}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Nth returns a handle for the i-th node (0-indexed) of h's match set: the
// nodes matching h's locator under h's parent, or under the root.
func (h *Handle) Nth(i int) *Handle {
	return &Handle{
		session: h.session,
		parent:  h.parent,
		loc:     h.loc,
		name:    h.name,
		index:   i,
		indexed: true,
	}
}

func nameFor(loc ui.Locator, name string) string {
	switch {
	case name != "":
		return name
	case loc.Value() != "":
		return loc.Value()
	default:
		return loc.String()
	}
}

// Locator returns the handle's locator.
func (h *Handle) Locator() ui.Locator { return h.loc }

// Name returns the friendly name.
func (h *Handle) Name() string { return h.name }

// Parent returns the parent handle, or nil for a top-level handle.
func (h *Handle) Parent() *Handle { return h.parent }

// Index returns the position the handle selects, if it is indexed.
func (h *Handle) Index() (int, bool) { return h.index, h.indexed }

// Session returns the owning session.
func (h *Handle) Session() *Session { return h.session }

// Cached returns the cached node without probing it.
func (h *Handle) Cached() ui.Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cached
}

// Invalidate drops the cached node. The next call resolves from scratch.
func (h *Handle) Invalidate() {
	h.mu.Lock()
	h.cached = nil
	h.mu.Unlock()
}

func (h *Handle) store(n ui.Node) {
	h.mu.Lock()
	h.cached = n
	h.mu.Unlock()
}

// String renders the chain from the root to h, for diagnostics.
func (h *Handle) String() string {
	var levels []string
	for c := h; c != nil; c = c.parent {
		levels = append(levels, c.level())
	}
	slices.Reverse(levels)
	return strings.Join(levels, " > ")
}

func (h *Handle) level() string {
	s := fmt.Sprintf("%s %q", h.loc, h.name)
	if h.indexed {
		s += fmt.Sprintf("[%d]", h.index)
	}
	return s
}

// check is what a resolution requires of the node it finds.
type check struct {
	desc string
	pred wait.Predicate
	// presence is set for the existence check, which a liveness check
	// already answers.
	presence bool
}

var (
	existsCheck    = check{desc: wait.StateExists.String(), pred: wait.IsPresent, presence: true}
	visibleCheck   = check{desc: wait.StateVisible.String(), pred: wait.IsVisible}
	clickableCheck = check{desc: wait.StateClickable.String(), pred: wait.IsClickable}
)

func stateCheck(s wait.State) check {
	switch s {
	case wait.StateVisible:
		return visibleCheck
	case wait.StateClickable:
		return clickableCheck
	default:
		return existsCheck
	}
}

// ResolveExisting returns the node once it exists.
func (h *Handle) ResolveExisting() (ui.Node, error) {
	return h.resolve("resolve-existing", existsCheck)
}

// ResolveVisible returns the node once it is displayed.
func (h *Handle) ResolveVisible() (ui.Node, error) {
	return h.resolve("resolve-visible", visibleCheck)
}

// ResolveClickable returns the node once it is displayed and enabled.
func (h *Handle) ResolveClickable() (ui.Node, error) {
	return h.resolve("resolve-clickable", clickableCheck)
}

// WaitFor returns the node once p accepts it. desc names the condition in
// errors.
func (h *Handle) WaitFor(desc string, p wait.Predicate) (ui.Node, error) {
	return h.resolve("wait-for", check{desc: desc, pred: p})
}

func (h *Handle) resolve(op string, c check) (ui.Node, error) {
	start := time.Now()
	n, err := h.resolveNode(op, c)
	h.emit(op, start, err)
	return n, err
}

func (h *Handle) resolveNode(op string, c check) (ui.Node, error) {
	if h.indexed && h.index < 0 {
		return nil, h.invalid(0, errNegative)
	}
	if n := h.fromCache(c); n != nil {
		return n, nil
	}
	if h.parent != nil {
		if _, err := h.parent.resolveNode(op, existsCheck); err != nil {
			return nil, err
		}
	}

	pol := h.session.Policy()
	s := pol.Values()
	out, attempts := poll.PollCounted(func() poll.Outcome[ui.Node] {
		return h.attempt(c)
	}, s.PollInterval, s.Timeout)
	if out.OK() {
		h.store(out.Value)
		return out.Value, nil
	}
	if out.Err != nil {
		pol.Note(out.Err.Error())
	}
	return nil, &NotFoundError{
		Op:       op,
		Chain:    h.String(),
		Name:     h.name,
		Want:     c.desc,
		Timeout:  s.Timeout,
		Attempts: attempts,
		Message:  pol.Message(),
		Last:     out.Err,
	}
}

// fromCache returns the cached node if it is still live and passes c. A
// failed liveness check clears the cache.
//
// Indexed handles never answer from the cache: the node at their position
// can change while the cached node stays live.
func (h *Handle) fromCache(c check) ui.Node {
	if h.indexed {
		return nil
	}
	n := h.Cached()
	if n == nil {
		return nil
	}
	if _, err := n.IsDisplayed(); err != nil {
		h.Invalidate()
		return nil
	}
	if c.presence {
		return n
	}
	if err := c.pred(n); err != nil {
		if ui.IsStale(err) {
			h.Invalidate()
		}
		return nil
	}
	return n
}

// attempt performs one lookup of h against its parent's live node.
func (h *Handle) attempt(c check) poll.Outcome[ui.Node] {
	sc, err := h.context()
	if err != nil {
		return poll.Pending[ui.Node](err)
	}
	if !h.indexed {
		return wait.Match(h.loc, c.pred, c.desc).Check(sc)
	}

	// The whole set is re-queried on every attempt: the list may have
	// grown, shrunk or reordered since the last one.
	nodes, err := sc.FindAll(h.loc)
	if err != nil {
		return poll.Pending[ui.Node](err)
	}
	if h.index < 0 {
		return poll.Pending[ui.Node](h.invalid(len(nodes), errNegative))
	}
	if h.index >= len(nodes) {
		return poll.Pending[ui.Node](h.invalid(len(nodes), errIndexRange))
	}
	n := nodes[h.index]
	if err := c.pred(n); err != nil {
		return poll.Pending[ui.Node](h.invalid(len(nodes), err))
	}
	return poll.Ready(n)
}

// attemptOnce is one resolution attempt without waiting: the cache if it
// is live, else a single lookup.
func (h *Handle) attemptOnce(c check) (ui.Node, error) {
	if h.indexed && h.index < 0 {
		return nil, h.invalid(0, errNegative)
	}
	if n := h.fromCache(c); n != nil {
		return n, nil
	}
	out := h.attempt(c)
	if !out.OK() {
		if out.Err == nil {
			return nil, fmt.Errorf("%s: %w", h, wait.ErrNotReady)
		}
		return nil, out.Err
	}
	h.store(out.Value)
	return out.Value, nil
}

// context returns the search context h's locator is evaluated against.
func (h *Handle) context() (ui.SearchContext, error) {
	if h.parent == nil {
		return h.session.root, nil
	}
	return h.parent.attemptOnce(existsCheck)
}

// matchContext resolves the parent with a full wait and returns it as the
// context for h's match set.
func (h *Handle) matchContext(op string) (ui.SearchContext, error) {
	if h.parent == nil {
		return h.session.root, nil
	}
	return h.parent.resolveNode(op, existsCheck)
}

func (h *Handle) invalid(size int, reason error) *InvalidStateError {
	return &InvalidStateError{Chain: h.String(), Index: h.index, Size: size, Reason: reason}
}

// ExistsNow reports whether the node exists right now, making a single
// attempt.
//
// It works by setting the root's timeout to zero for the duration of the
// call. Other handles of the same root that resolve concurrently observe
// the zero timeout too; callers sharing a root between goroutines must
// synchronize around ExistsNow.
func (h *Handle) ExistsNow() bool {
	start := time.Now()
	var err error
	h.withoutWait(func() {
		_, err = h.resolveNode("exists-now", existsCheck)
	})
	h.emit("exists-now", start, err)
	return err == nil
}

// withoutWait runs fn with the root's timeout set to zero and restores the
// previous policy afterwards.
func (h *Handle) withoutWait(fn func()) {
	pol := h.session.Policy()
	prev := pol.Values()
	pol.Set(prev.WithTimeout(0))
	defer pol.Set(prev)
	fn()
}

func (h *Handle) emit(op string, start time.Time, err error) {
	h.session.emit(Event{
		Op:      op,
		Chain:   h.String(),
		Name:    h.name,
		Outcome: outcomeOf(err),
		Err:     err,
		Elapsed: time.Since(start),
	})
}
