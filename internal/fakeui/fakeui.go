// Package fakeui is an in-memory node tree implementing the ui interfaces.
// It is internal to lazynode and exists for tests: it counts FindAll calls,
// can fail liveness checks on demand, detaches nodes to make references
// stale, and schedules mutations so tests can model asynchronous rendering.
//
// All state is guarded by the root's mutex, so mutations scheduled from
// timers are safe against concurrent lookups.
package fakeui

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cboone/lazynode/ui"
)

// Root is the top of a fake tree and a ui.SearchContext.
type Root struct {
	mu        sync.Mutex
	children  []*Element
	findCalls atomic.Int64
	timers    []*time.Timer
}

// NewRoot returns an empty tree.
func NewRoot() *Root {
	return &Root{}
}

// Element is a fake node. Build one with E, then attach it with Root.Add or
// Element.Add.
type Element struct {
	root     *Root
	parent   *Element
	children []*Element

	tag     string
	id      string
	name    string
	classes []string
	text    string
	value   string
	attrs   map[string]string
	props   map[string]any

	displayed  bool
	enabled    bool
	selected   bool
	detached   bool
	failChecks int

	actions  []string
	onAction func(action string)
}

// E returns a detached, displayed and enabled element with the given tag.
func E(tag string) *Element {
	return &Element{
		tag:       strings.ToLower(tag),
		attrs:     make(map[string]string),
		props:     make(map[string]any),
		displayed: true,
		enabled:   true,
	}
}

// WithID sets the id attribute. Builder methods may only be used before the
// element is attached.
func (e *Element) WithID(id string) *Element {
	e.id = id
	e.attrs["id"] = id
	return e
}

// WithName sets the name attribute.
func (e *Element) WithName(name string) *Element {
	e.name = name
	e.attrs["name"] = name
	return e
}

// WithClass adds class names.
func (e *Element) WithClass(classes ...string) *Element {
	e.classes = append(e.classes, classes...)
	e.attrs["class"] = strings.Join(e.classes, " ")
	return e
}

// WithText sets the text content.
func (e *Element) WithText(text string) *Element {
	e.text = text
	return e
}

// WithAttr sets an attribute.
func (e *Element) WithAttr(name, value string) *Element {
	e.attrs[name] = value
	return e
}

// WithProp sets a property.
func (e *Element) WithProp(name string, value any) *Element {
	e.props[name] = value
	return e
}

// Hidden marks the element as not displayed.
func (e *Element) Hidden() *Element {
	e.displayed = false
	return e
}

// Disabled marks the element as not enabled.
func (e *Element) Disabled() *Element {
	e.enabled = false
	return e
}

// Children appends children at build time.
func (e *Element) Children(children ...*Element) *Element {
	for _, c := range children {
		c.parent = e
		e.children = append(e.children, c)
	}
	return e
}

// Add attaches e (and its subtree) at the end of the root's top level.
func (r *Root) Add(e *Element) *Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.parent = nil
	e.adopt(r)
	r.children = append(r.children, e)
	return e
}

// Add attaches child at the end of e's children.
func (e *Element) Add(child *Element) *Element {
	r := e.root
	if r == nil {
		e.Children(child)
		return child
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	child.parent = e
	child.adopt(r)
	e.children = append(e.children, child)
	return child
}

func (e *Element) adopt(r *Root) {
	e.root = r
	e.detached = false
	for _, c := range e.children {
		c.parent = e
		c.adopt(r)
	}
}

// FindCalls returns the number of FindAll calls made on the root or any of
// its elements.
func (r *Root) FindCalls() int64 { return r.findCalls.Load() }

// After runs fn after d on a timer goroutine. Timers are stopped by Stop.
func (r *Root) After(d time.Duration, fn func()) {
	t := time.AfterFunc(d, fn)
	r.mu.Lock()
	r.timers = append(r.timers, t)
	r.mu.Unlock()
}

// Stop cancels every pending timer scheduled with After.
func (r *Root) Stop() {
	r.mu.Lock()
	timers := r.timers
	r.timers = nil
	r.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}

// FindAll implements ui.SearchContext over the whole tree.
func (r *Root) FindAll(loc ui.Locator) ([]ui.Node, error) {
	r.findCalls.Add(1)
	m, err := compile(loc)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ui.Node
	for _, c := range r.children {
		out = c.collect(m, out)
	}
	return out, nil
}

// Source serializes the tree, implementing ui.Documenter.
func (r *Root) Source() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for _, c := range r.children {
		c.serialize(&b)
	}
	return b.String(), nil
}

func (e *Element) serialize(b *strings.Builder) {
	fmt.Fprintf(b, "<%s", e.tag)
	if e.id != "" {
		fmt.Fprintf(b, " id=%q", e.id)
	}
	if len(e.classes) > 0 {
		fmt.Fprintf(b, " class=%q", strings.Join(e.classes, " "))
	}
	if !e.displayed {
		b.WriteString(" hidden")
	}
	b.WriteString(">")
	b.WriteString(e.text)
	for _, c := range e.children {
		c.serialize(b)
	}
	fmt.Fprintf(b, "</%s>", e.tag)
}

func (e *Element) collect(m matcher, out []ui.Node) []ui.Node {
	if m(e) {
		out = append(out, e)
	}
	for _, c := range e.children {
		out = c.collect(m, out)
	}
	return out
}

// --- mutations ---

func (e *Element) lock() func() {
	if e.root == nil {
		return func() {}
	}
	e.root.mu.Lock()
	return e.root.mu.Unlock
}

// SetText replaces the text content.
func (e *Element) SetText(text string) {
	defer e.lock()()
	e.text = text
}

// SetDisplayed changes visibility.
func (e *Element) SetDisplayed(v bool) {
	defer e.lock()()
	e.displayed = v
}

// SetEnabled changes the enabled state.
func (e *Element) SetEnabled(v bool) {
	defer e.lock()()
	e.enabled = v
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(name, value string) {
	defer e.lock()()
	e.attrs[name] = value
}

// FailNextChecks makes the next n IsDisplayed calls fail with ui.ErrStale
// without detaching the element.
func (e *Element) FailNextChecks(n int) {
	defer e.lock()()
	e.failChecks = n
}

// OnAction registers a callback invoked (without the tree lock held) after
// each successful mutating operation on e.
func (e *Element) OnAction(fn func(action string)) {
	defer e.lock()()
	e.onAction = fn
}

// Remove detaches e from the tree. Every later call on e, or on any of its
// descendants, fails with ui.ErrStale.
func (e *Element) Remove() {
	defer e.lock()()
	if e.parent != nil {
		e.parent.children = without(e.parent.children, e)
	} else if e.root != nil {
		e.root.children = without(e.root.children, e)
	}
	e.markDetached()
}

// Replace swaps e for replacement at the same position, detaching e.
func (e *Element) Replace(replacement *Element) *Element {
	defer e.lock()()
	siblings := &e.root.children
	if e.parent != nil {
		siblings = &e.parent.children
	}
	for i, s := range *siblings {
		if s == e {
			replacement.parent = e.parent
			replacement.adopt(e.root)
			(*siblings)[i] = replacement
			break
		}
	}
	e.markDetached()
	return replacement
}

func (e *Element) markDetached() {
	e.detached = true
	for _, c := range e.children {
		c.markDetached()
	}
}

func without(list []*Element, e *Element) []*Element {
	out := list[:0:0]
	for _, x := range list {
		if x != e {
			out = append(out, x)
		}
	}
	return out
}

// Actions returns the mutating operations performed on e, in order.
func (e *Element) Actions() []string {
	defer e.lock()()
	cp := make([]string, len(e.actions))
	copy(cp, e.actions)
	return cp
}

// Value returns the text typed into e.
func (e *Element) Value() string {
	defer e.lock()()
	return e.value
}

// --- ui.Node ---

func (e *Element) stale() error {
	if e.detached || e.root == nil {
		return fmt.Errorf("fakeui: <%s>: %w", e.tag, ui.ErrStale)
	}
	return nil
}

func (e *Element) shown() bool {
	for n := e; n != nil; n = n.parent {
		if !n.displayed {
			return false
		}
	}
	return true
}

// FindAll searches e's descendants.
func (e *Element) FindAll(loc ui.Locator) ([]ui.Node, error) {
	if e.root != nil {
		e.root.findCalls.Add(1)
	}
	m, err := compile(loc)
	if err != nil {
		return nil, err
	}
	defer e.lock()()
	if err := e.stale(); err != nil {
		return nil, err
	}
	var out []ui.Node
	for _, c := range e.children {
		out = c.collect(m, out)
	}
	return out, nil
}

// IsDisplayed reports visibility, honoring FailNextChecks.
func (e *Element) IsDisplayed() (bool, error) {
	defer e.lock()()
	if err := e.stale(); err != nil {
		return false, err
	}
	if e.failChecks > 0 {
		e.failChecks--
		return false, fmt.Errorf("fakeui: <%s>: liveness check failure: %w", e.tag, ui.ErrStale)
	}
	return e.shown(), nil
}

// IsEnabled reports the enabled state.
func (e *Element) IsEnabled() (bool, error) {
	defer e.lock()()
	if err := e.stale(); err != nil {
		return false, err
	}
	return e.enabled, nil
}

// Text returns the text content.
func (e *Element) Text() (string, error) {
	defer e.lock()()
	if err := e.stale(); err != nil {
		return "", err
	}
	return e.text, nil
}

// Attribute returns an attribute value.
func (e *Element) Attribute(name string) (string, bool, error) {
	defer e.lock()()
	if err := e.stale(); err != nil {
		return "", false, err
	}
	v, ok := e.attrs[name]
	return v, ok, nil
}

// Property returns a property; "value" and "tagName" are built in.
func (e *Element) Property(name string) (any, error) {
	defer e.lock()()
	if err := e.stale(); err != nil {
		return nil, err
	}
	switch name {
	case "value":
		return e.value, nil
	case "tagName":
		return strings.ToUpper(e.tag), nil
	case "selected":
		return e.selected, nil
	}
	return e.props[name], nil
}

func (e *Element) act(action string, requireInteractable bool, fn func() error) error {
	notify, err := func() (func(string), error) {
		defer e.lock()()
		if err := e.stale(); err != nil {
			return nil, err
		}
		if requireInteractable && (!e.shown() || !e.enabled) {
			return nil, fmt.Errorf("fakeui: <%s>: element not interactable", e.tag)
		}
		if fn != nil {
			if err := fn(); err != nil {
				return nil, err
			}
		}
		e.actions = append(e.actions, action)
		return e.onAction, nil
	}()
	if err != nil {
		return err
	}
	if notify != nil {
		notify(action)
	}
	return nil
}

// Click records a click.
func (e *Element) Click() error {
	return e.act("click", true, nil)
}

// SendKeys appends text to the element's value.
func (e *Element) SendKeys(text string) error {
	return e.act("send-keys:"+text, true, func() error {
		e.value += text
		return nil
	})
}

// Clear empties the element's value.
func (e *Element) Clear() error {
	return e.act("clear", true, func() error {
		e.value = ""
		return nil
	})
}

// Submit records a submit.
func (e *Element) Submit() error {
	return e.act("submit", false, nil)
}

// SelectOption selects one of e's <option> children.
func (e *Element) SelectOption(opt ui.Option) error {
	return e.act("select:"+opt.String(), true, func() error {
		var options []*Element
		for _, c := range e.children {
			if c.tag == "option" {
				options = append(options, c)
			}
		}
		var chosen *Element
		for i, o := range options {
			switch opt.By {
			case ui.SelectByText:
				if o.text == opt.Value {
					chosen = o
				}
			case ui.SelectByValue:
				if o.attrs["value"] == opt.Value {
					chosen = o
				}
			case ui.SelectByIndex:
				if i == opt.Index {
					chosen = o
				}
			}
			if chosen != nil {
				break
			}
		}
		if chosen == nil {
			return fmt.Errorf("fakeui: <%s>: no option %s: %w", e.tag, opt, ui.ErrNoSuchNode)
		}
		for _, o := range options {
			o.selected = o == chosen
		}
		e.value = chosen.attrs["value"]
		return nil
	})
}

func (e *Element) String() string {
	var b strings.Builder
	b.WriteString(e.tag)
	if e.id != "" {
		b.WriteString("#" + e.id)
	}
	for _, c := range e.classes {
		b.WriteString("." + c)
	}
	return b.String()
}

// --- locator matching ---

type matcher func(e *Element) bool

func compile(loc ui.Locator) (matcher, error) {
	v := loc.Value()
	switch loc.Strategy() {
	case ui.ID:
		return func(e *Element) bool { return e.id == v }, nil
	case ui.Name:
		return func(e *Element) bool { return e.name == v }, nil
	case ui.TagName:
		tag := strings.ToLower(v)
		return func(e *Element) bool { return e.tag == tag }, nil
	case ui.ClassName:
		return func(e *Element) bool { return e.hasClass(v) }, nil
	case ui.LinkText:
		return func(e *Element) bool { return e.tag == "a" && e.text == v }, nil
	case ui.Text:
		return func(e *Element) bool { return v != "" && strings.Contains(e.text, v) }, nil
	case ui.Regexp:
		re, err := regexp.Compile(v)
		if err != nil {
			return nil, fmt.Errorf("fakeui: bad regexp locator: %w", err)
		}
		return func(e *Element) bool { return re.MatchString(e.text) }, nil
	case ui.CSS:
		return compileCSS(v)
	default:
		return nil, fmt.Errorf("fakeui: locator %s: %w", loc, ui.ErrUnsupported)
	}
}

func (e *Element) hasClass(c string) bool {
	for _, x := range e.classes {
		if x == c {
			return true
		}
	}
	return false
}

var (
	cssRe     = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9-]*)?((?:[#.][A-Za-z0-9_-]+)*)$`)
	cssPartRe = regexp.MustCompile(`[#.][A-Za-z0-9_-]+`)
)

// compileCSS supports a single compound selector: tag, #id and .class parts.
func compileCSS(sel string) (matcher, error) {
	sel = strings.TrimSpace(sel)
	m := cssRe.FindStringSubmatch(sel)
	if sel == "" || m == nil {
		return nil, fmt.Errorf("fakeui: css %q: %w", sel, ui.ErrUnsupported)
	}
	tag := strings.ToLower(m[1])
	var ids, classes []string
	for _, part := range cssPartRe.FindAllString(m[2], -1) {
		if part[0] == '#' {
			ids = append(ids, part[1:])
		} else {
			classes = append(classes, part[1:])
		}
	}
	return func(e *Element) bool {
		if tag != "" && e.tag != tag {
			return false
		}
		for _, id := range ids {
			if e.id != id {
				return false
			}
		}
		for _, c := range classes {
			if !e.hasClass(c) {
				return false
			}
		}
		return true
	}, nil
}

// Wrapped decorates a root the way an instrumentation layer would. It
// implements ui.Wrapper so policy lookups resolve to the inner root.
type Wrapped struct {
	Inner ui.SearchContext
	Calls atomic.Int64
}

// Wrap returns a decorator around inner.
func Wrap(inner ui.SearchContext) *Wrapped {
	return &Wrapped{Inner: inner}
}

// FindAll counts and delegates.
func (w *Wrapped) FindAll(loc ui.Locator) ([]ui.Node, error) {
	w.Calls.Add(1)
	return w.Inner.FindAll(loc)
}

// Unwrap returns the decorated root.
func (w *Wrapped) Unwrap() ui.SearchContext { return w.Inner }
