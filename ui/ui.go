// Package ui defines the data model shared by every lazynode package: the
// locators that identify remote nodes, the search contexts that find them,
// and the node capabilities a backend must provide.
//
// Backends (a browser tab, a tmux pane, an in-memory fake) implement
// [SearchContext] for their root object and [Node] for the things it finds.
package ui

import (
	"errors"
	"fmt"
)

// Strategy names how a Locator's value is interpreted by a backend.
type Strategy string

// Supported locator strategies. A backend may reject strategies it cannot
// evaluate by returning an error wrapping ErrUnsupported from FindAll.
const (
	CSS       Strategy = "css"
	XPath     Strategy = "xpath"
	ID        Strategy = "id"
	Name      Strategy = "name"
	TagName   Strategy = "tag"
	ClassName Strategy = "class"
	LinkText  Strategy = "link-text"
	Text      Strategy = "text"
	Regexp    Strategy = "regexp"
)

// Locator identifies zero or more nodes under a search context.
// The zero value is not a valid locator. Locators are immutable.
type Locator struct {
	strategy Strategy
	value    string
}

// By returns a locator for an arbitrary strategy.
func By(strategy Strategy, value string) Locator {
	return Locator{strategy: strategy, value: value}
}

// ByCSS returns a CSS selector locator.
func ByCSS(selector string) Locator { return By(CSS, selector) }

// ByXPath returns an XPath locator.
func ByXPath(expr string) Locator { return By(XPath, expr) }

// ByID returns a locator matching the id attribute.
func ByID(id string) Locator { return By(ID, id) }

// ByName returns a locator matching the name attribute.
func ByName(name string) Locator { return By(Name, name) }

// ByTag returns a locator matching the element tag name.
func ByTag(tag string) Locator { return By(TagName, tag) }

// ByClass returns a locator matching a single class name.
func ByClass(class string) Locator { return By(ClassName, class) }

// ByLinkText returns a locator matching anchors by their exact visible text.
func ByLinkText(text string) Locator { return By(LinkText, text) }

// ByText returns a locator matching nodes whose text contains s.
func ByText(s string) Locator { return By(Text, s) }

// ByRegexp returns a locator matching nodes whose text matches pattern.
func ByRegexp(pattern string) Locator { return By(Regexp, pattern) }

// Strategy returns the locator strategy.
func (l Locator) Strategy() Strategy { return l.strategy }

// Value returns the locator value.
func (l Locator) Value() string { return l.value }

// IsZero reports whether l is the zero Locator.
func (l Locator) IsZero() bool { return l.strategy == "" && l.value == "" }

// String renders the locator as strategy=value.
func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.strategy, l.value)
}

// SearchContext finds nodes. It is either a backend's root object or a
// previously found Node.
type SearchContext interface {
	// FindAll returns every node matching loc, in document order. When
	// nothing matches it returns an empty slice and a nil error; an error
	// means the query itself failed.
	FindAll(loc Locator) ([]Node, error)
}

// Node is a reference to one remote UI element. Any method may return an
// error matching ErrStale once the element has been detached or replaced.
type Node interface {
	SearchContext

	IsDisplayed() (bool, error)
	IsEnabled() (bool, error)

	Text() (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(name string) (string, bool, error)
	Property(name string) (any, error)

	Click() error
	SendKeys(text string) error
	Clear() error
	Submit() error
	SelectOption(opt Option) error
}

// Wrapper is implemented by decorating search contexts (instrumented or
// logging wrappers) so that the underlying root can be recovered.
type Wrapper interface {
	Unwrap() SearchContext
}

// Canonical unwraps sc through any Wrapper layers and returns the underlying
// root identity.
func Canonical(sc SearchContext) SearchContext {
	for i := 0; i < 32; i++ {
		w, ok := sc.(Wrapper)
		if !ok {
			return sc
		}
		inner := w.Unwrap()
		if inner == nil {
			return sc
		}
		sc = inner
	}
	return sc
}

// Documenter is implemented by roots that can serialize their full content,
// such as a page's outer HTML or a terminal's visible screen.
type Documenter interface {
	Source() (string, error)
}

// SelectBy names how an Option picks a choice.
type SelectBy int

const (
	SelectByText SelectBy = iota
	SelectByValue
	SelectByIndex
)

func (b SelectBy) String() string {
	switch b {
	case SelectByText:
		return "text"
	case SelectByValue:
		return "value"
	case SelectByIndex:
		return "index"
	default:
		return fmt.Sprintf("SelectBy(%d)", int(b))
	}
}

// Option selects one choice of a select-like node.
type Option struct {
	By    SelectBy
	Value string
	Index int
}

// OptionText selects the choice whose visible text equals s.
func OptionText(s string) Option { return Option{By: SelectByText, Value: s} }

// OptionValue selects the choice whose value attribute equals s.
func OptionValue(s string) Option { return Option{By: SelectByValue, Value: s} }

// OptionIndex selects the i-th choice (0-indexed).
func OptionIndex(i int) Option { return Option{By: SelectByIndex, Index: i} }

func (o Option) String() string {
	if o.By == SelectByIndex {
		return fmt.Sprintf("index=%d", o.Index)
	}
	return fmt.Sprintf("%s=%q", o.By, o.Value)
}

var (
	// ErrStale reports that a node reference is no longer attached to the
	// remote document.
	ErrStale = errors.New("ui: stale node reference")

	// ErrNoSuchNode reports that a lookup found nothing. FindAll does not
	// return it; backends may use it for single-node helpers.
	ErrNoSuchNode = errors.New("ui: no such node")

	// ErrUnsupported reports an operation or locator strategy the backend
	// cannot perform.
	ErrUnsupported = errors.New("ui: unsupported")
)

// IsStale reports whether err means the node reference went stale.
func IsStale(err error) bool { return errors.Is(err, ErrStale) }

// IsNoSuchNode reports whether err means nothing matched.
func IsNoSuchNode(err error) bool { return errors.Is(err, ErrNoSuchNode) }
