package cdp

import (
	"context"
	"fmt"
	"strings"

	proto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/cboone/lazynode/ui"
)

// Element is a DOM element of a Page.
type Element struct {
	page *Page
	node *proto.Node
}

var _ ui.Node = (*Element)(nil)

// Node returns the underlying CDP node.
func (e *Element) Node() *proto.Node { return e.node }

func (e *Element) String() string {
	name := strings.ToLower(e.node.NodeName)
	if id := e.node.AttributeValue("id"); id != "" {
		name += "#" + id
	}
	return name
}

// Every script runs wrapped so that a detached node is reported instead of
// evaluated.
const wrapper = `function(...args) {
	if (!this.isConnected) return {connected: false};
	return {connected: true, value: (%s).apply(this, args)};
}`

type result[T any] struct {
	Connected bool `json:"connected"`
	Value     T    `json:"value"`
}

// call runs the JavaScript function fn with this bound to e.
func call[T any](e *Element, fn string, args ...any) (T, error) {
	var res result[T]
	var zero T
	err := e.page.run(chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(fmt.Sprintf(wrapper, fn), &res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			args...,
		).Do(ctx)
	}))
	if err != nil {
		return zero, fmt.Errorf("%w (%s)", err, e)
	}
	if !res.Connected {
		return zero, fmt.Errorf("cdp: %s: detached: %w", e, ui.ErrStale)
	}
	return res.Value, nil
}

const (
	jsConnected = `function() { return true; }`
	jsDisplayed = `function() {
	const s = getComputedStyle(this);
	if (s.display === "none" || s.visibility === "hidden") return false;
	const r = this.getBoundingClientRect();
	return r.width > 0 || r.height > 0;
}`
	jsEnabled   = `function() { return !this.disabled; }`
	jsText      = `function() { return this.innerText ?? this.textContent ?? ""; }`
	jsAttribute = `function(n) { return {has: this.hasAttribute(n), value: this.getAttribute(n) ?? ""}; }`
	jsProperty  = `function(n) { const v = this[n]; return v === undefined ? null : v; }`
	jsClear     = `function() {
	this.value = "";
	this.dispatchEvent(new Event("input", {bubbles: true}));
	this.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
}`
	jsSubmit = `function() {
	const f = this.tagName === "FORM" ? this : (this.form || this.closest("form"));
	if (!f) return false;
	if (f.requestSubmit) f.requestSubmit(); else f.submit();
	return true;
}`
	jsSelect = `function(by, v, i) {
	const opts = Array.from(this.options || []);
	const m = by === "text" ? opts.find(o => o.text.trim() === v)
		: by === "value" ? opts.find(o => o.value === v)
		: opts[i];
	if (!m) return false;
	this.value = m.value;
	m.selected = true;
	this.dispatchEvent(new Event("input", {bubbles: true}));
	this.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
}`
)

// FindAll runs loc below e. XPath strategies are not supported below a
// node.
func (e *Element) FindAll(loc ui.Locator) ([]ui.Node, error) {
	if _, err := call[bool](e, jsConnected); err != nil {
		return nil, err
	}
	return e.page.findAll(loc, e)
}

// IsDisplayed reports whether the element is rendered with a non-empty box
// and is not hidden by display or visibility.
func (e *Element) IsDisplayed() (bool, error) { return call[bool](e, jsDisplayed) }

func (e *Element) IsEnabled() (bool, error) { return call[bool](e, jsEnabled) }

// Text returns the rendered text.
func (e *Element) Text() (string, error) { return call[string](e, jsText) }

func (e *Element) Attribute(name string) (string, bool, error) {
	v, err := call[struct {
		Has   bool   `json:"has"`
		Value string `json:"value"`
	}](e, jsAttribute, name)
	return v.Value, v.Has, err
}

// Property returns a JavaScript property by value. Properties that do not
// serialize to JSON come back as nil or empty maps.
func (e *Element) Property(name string) (any, error) { return call[any](e, jsProperty, name) }

// Click dispatches a mouse click at the center of the element.
func (e *Element) Click() error {
	if _, err := call[bool](e, jsConnected); err != nil {
		return err
	}
	return e.page.run(chromedp.MouseClickNode(e.node))
}

// SendKeys focuses the element and types text.
func (e *Element) SendKeys(text string) error {
	if _, err := call[bool](e, jsConnected); err != nil {
		return err
	}
	return e.page.run(chromedp.KeyEventNode(e.node, text))
}

func (e *Element) Clear() error {
	_, err := call[bool](e, jsClear)
	return err
}

// Submit submits the element's form, or the element itself if it is one.
func (e *Element) Submit() error {
	ok, err := call[bool](e, jsSubmit)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cdp: %s: no form to submit: %w", e, ui.ErrNoSuchNode)
	}
	return nil
}

// SelectOption selects a choice of a <select> element and fires input and
// change events.
func (e *Element) SelectOption(opt ui.Option) error {
	ok, err := call[bool](e, jsSelect, opt.By.String(), opt.Value, opt.Index)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cdp: %s: no option %s: %w", e, opt, ui.ErrNoSuchNode)
	}
	return nil
}
