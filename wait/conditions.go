// Package wait provides conditions over a search context and the loops that
// drive them through the poll package.
//
// A Condition never fails hard inside a wait: an empty match set, a
// no-such-node error, a stale reference and a failed predicate all report
// poll.NotYetReady, with the reason kept for diagnostics. Only the loop
// boundary turns an exhausted window into an error.
package wait

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cboone/lazynode/poll"
	"github.com/cboone/lazynode/ui"
)

// A Predicate checks one node. A nil error means the node is ready; any
// other error is the reason it is not (yet).
type Predicate func(n ui.Node) error

// ErrNotReady is wrapped by every reason a built-in predicate reports.
var ErrNotReady = errors.New("wait: not ready")

func notReady(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotReady, fmt.Sprintf(format, args...))
}

// IsPresent accepts any node that answers a liveness check without going stale.
func IsPresent(n ui.Node) error {
	_, err := n.IsDisplayed()
	return err
}

// IsVisible accepts displayed nodes.
func IsVisible(n ui.Node) error {
	shown, err := n.IsDisplayed()
	if err != nil {
		return err
	}
	if !shown {
		return notReady("not displayed")
	}
	return nil
}

// IsClickable accepts nodes that are both displayed and enabled.
func IsClickable(n ui.Node) error {
	if err := IsVisible(n); err != nil {
		return err
	}
	enabled, err := n.IsEnabled()
	if err != nil {
		return err
	}
	if !enabled {
		return notReady("not enabled")
	}
	return nil
}

// TextIs accepts nodes whose text equals want exactly (case-sensitive).
func TextIs(want string) Predicate {
	return func(n ui.Node) error {
		got, err := n.Text()
		if err != nil {
			return err
		}
		if got != want {
			return notReady("text is %q, want %q", got, want)
		}
		return nil
	}
}

// TextContains accepts nodes whose text contains sub, ignoring case.
func TextContains(sub string) Predicate {
	lower := strings.ToLower(sub)
	return func(n ui.Node) error {
		got, err := n.Text()
		if err != nil {
			return err
		}
		if !strings.Contains(strings.ToLower(got), lower) {
			return notReady("text %q does not contain %q", got, sub)
		}
		return nil
	}
}

// AttributeIs accepts nodes whose attribute name equals want.
func AttributeIs(name, want string) Predicate {
	return func(n ui.Node) error {
		got, ok, err := n.Attribute(name)
		if err != nil {
			return err
		}
		if !ok {
			return notReady("attribute %q missing", name)
		}
		if got != want {
			return notReady("attribute %q is %q, want %q", name, got, want)
		}
		return nil
	}
}

// AttributeHas accepts nodes whose attribute name contains sub.
func AttributeHas(name, sub string) Predicate {
	return func(n ui.Node) error {
		got, ok, err := n.Attribute(name)
		if err != nil {
			return err
		}
		if !ok {
			return notReady("attribute %q missing", name)
		}
		if !strings.Contains(got, sub) {
			return notReady("attribute %q is %q, does not contain %q", name, got, sub)
		}
		return nil
	}
}

// State is the readiness a node must reach before it is handed out.
type State int

const (
	StateExists State = iota
	StateVisible
	StateClickable
)

func (s State) String() string {
	switch s {
	case StateExists:
		return "existing"
	case StateVisible:
		return "visible"
	case StateClickable:
		return "clickable"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Predicate returns the predicate that checks s.
func (s State) Predicate() Predicate {
	switch s {
	case StateVisible:
		return IsVisible
	case StateClickable:
		return IsClickable
	default:
		return IsPresent
	}
}

// Satisfies checks n against s, turning the answer into an outcome.
func Satisfies(n ui.Node, s State) poll.Outcome[ui.Node] {
	return check(n, s.Predicate())
}

func check(n ui.Node, p Predicate) poll.Outcome[ui.Node] {
	if err := p(n); err != nil {
		return poll.Pending[ui.Node](err)
	}
	return poll.Ready(n)
}

// A Condition finds a node under a search context and checks it.
type Condition struct {
	desc  string
	check func(sc ui.SearchContext) poll.Outcome[ui.Node]
}

// NewCondition builds a condition from an arbitrary check.
func NewCondition(desc string, fn func(sc ui.SearchContext) poll.Outcome[ui.Node]) Condition {
	return Condition{desc: desc, check: fn}
}

// Check runs one attempt of c against sc.
func (c Condition) Check(sc ui.SearchContext) poll.Outcome[ui.Node] {
	return c.check(sc)
}

// String describes the condition for error messages.
func (c Condition) String() string { return c.desc }

// Match builds a condition that takes the first node matching loc under the
// search context and checks it with p.
func Match(loc ui.Locator, p Predicate, desc string) Condition {
	return Condition{
		desc: fmt.Sprintf("%s to be %s", loc, desc),
		check: func(sc ui.SearchContext) poll.Outcome[ui.Node] {
			n, err := First(sc, loc)
			if err != nil {
				return poll.Pending[ui.Node](err)
			}
			return check(n, p)
		},
	}
}

// First returns the first node matching loc. An empty match set is reported
// as ui.ErrNoSuchNode.
func First(sc ui.SearchContext, loc ui.Locator) (ui.Node, error) {
	nodes, err := sc.FindAll(loc)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 || nodes[0] == nil {
		return nil, fmt.Errorf("%s: %w", loc, ui.ErrNoSuchNode)
	}
	return nodes[0], nil
}

// Exists is satisfied once loc matches a live node.
func Exists(loc ui.Locator) Condition { return Match(loc, IsPresent, "present") }

// Visible is satisfied once loc matches a displayed node.
func Visible(loc ui.Locator) Condition { return Match(loc, IsVisible, "visible") }

// Clickable is satisfied once loc matches a displayed, enabled node.
func Clickable(loc ui.Locator) Condition { return Match(loc, IsClickable, "clickable") }

// HasExactText is satisfied once loc matches a node whose text equals text.
func HasExactText(loc ui.Locator, text string) Condition {
	return Match(loc, TextIs(text), fmt.Sprintf("text %q", text))
}

// ContainsText is satisfied once loc matches a node whose text contains
// text, ignoring case.
func ContainsText(loc ui.Locator, text string) Condition {
	return Match(loc, TextContains(text), fmt.Sprintf("containing text %q", text))
}

// AttributeEquals is satisfied once loc matches a node whose attribute name
// equals value.
func AttributeEquals(loc ui.Locator, name, value string) Condition {
	return Match(loc, AttributeIs(name, value), fmt.Sprintf("with %s=%q", name, value))
}

// AttributeContains is satisfied once loc matches a node whose attribute
// name contains value.
func AttributeContains(loc ui.Locator, name, value string) Condition {
	return Match(loc, AttributeHas(name, value), fmt.Sprintf("with %s containing %q", name, value))
}

// Any is satisfied by the first of conds that is satisfied.
func Any(conds ...Condition) Condition {
	descs := make([]string, len(conds))
	for i, c := range conds {
		descs[i] = c.desc
	}
	return Condition{
		desc: "any of: " + strings.Join(descs, ", "),
		check: func(sc ui.SearchContext) poll.Outcome[ui.Node] {
			var reasons []string
			for _, c := range conds {
				out := c.check(sc)
				if out.OK() {
					return out
				}
				if out.Err != nil {
					reasons = append(reasons, out.Err.Error())
				}
			}
			if len(reasons) == 0 {
				return poll.Pending[ui.Node](nil)
			}
			return poll.Pending[ui.Node](notReady("%s", strings.Join(reasons, "; ")))
		},
	}
}
