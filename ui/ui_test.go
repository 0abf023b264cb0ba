package ui_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cboone/lazynode/ui"
)

func TestLocatorString(t *testing.T) {
	tests := []struct {
		loc  ui.Locator
		want string
	}{
		{ui.ByCSS("form > input.name"), "css=form > input.name"},
		{ui.ByXPath("//li[2]"), "xpath=//li[2]"},
		{ui.ByID("save"), "id=save"},
		{ui.ByName("q"), "name=q"},
		{ui.ByTag("li"), "tag=li"},
		{ui.ByClass("toast"), "class=toast"},
		{ui.ByLinkText("Sign in"), "link-text=Sign in"},
		{ui.ByText("ready"), "text=ready"},
		{ui.ByRegexp(`^\$ `), `regexp=^\$ `},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.String())
			assert.False(t, tt.loc.IsZero())
		})
	}
	assert.True(t, ui.Locator{}.IsZero())
}

func TestLocatorsAreComparable(t *testing.T) {
	assert.Equal(t, ui.ByID("a"), ui.By(ui.ID, "a"))
	assert.NotEqual(t, ui.ByID("a"), ui.ByName("a"))
}

type root struct{}

func (*root) FindAll(ui.Locator) ([]ui.Node, error) { return nil, nil }

type wrapper struct{ inner ui.SearchContext }

func (w *wrapper) FindAll(loc ui.Locator) ([]ui.Node, error) { return w.inner.FindAll(loc) }
func (w *wrapper) Unwrap() ui.SearchContext                  { return w.inner }

func TestCanonical(t *testing.T) {
	r := &root{}
	assert.Same(t, r, ui.Canonical(r))
	assert.Same(t, r, ui.Canonical(&wrapper{inner: r}))
	assert.Same(t, r, ui.Canonical(&wrapper{inner: &wrapper{inner: r}}))

	orphan := &wrapper{}
	assert.Same(t, orphan, ui.Canonical(orphan), "a wrapper with nothing inside is its own root")
}

func TestOptionString(t *testing.T) {
	assert.Equal(t, `text="Blue"`, ui.OptionText("Blue").String())
	assert.Equal(t, `value="b"`, ui.OptionValue("b").String())
	assert.Equal(t, "index=2", ui.OptionIndex(2).String())
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, ui.IsStale(fmt.Errorf("click: %w", ui.ErrStale)))
	assert.False(t, ui.IsStale(ui.ErrNoSuchNode))
	assert.True(t, ui.IsNoSuchNode(fmt.Errorf("id=x: %w", ui.ErrNoSuchNode)))
}
