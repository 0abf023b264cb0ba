package cdp

import (
	"errors"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/lazynode/config"
	"github.com/cboone/lazynode/ui"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		loc  ui.Locator
		want query
	}{
		{ui.ByCSS("ul > li.done"), query{sel: "ul > li.done"}},
		{ui.ByID("login"), query{sel: `[id="login"]`}},
		{ui.ByID(`we"ird`), query{sel: `[id="we\"ird"]`}},
		{ui.ByName("user"), query{sel: `[name="user"]`}},
		{ui.ByClass("btn"), query{sel: `[class~="btn"]`}},
		{ui.ByTag("button"), query{sel: "button"}},
		{ui.ByXPath("//p[1]"), query{sel: "//p[1]", search: true}},
		{ui.ByLinkText("Sign in"), query{sel: `//a[normalize-space(.)="Sign in"]`, search: true}},
		{ui.ByText(`say "hi"`), query{sel: `//*[contains(text(), 'say "hi"')]`, search: true}},
	}
	for _, tt := range tests {
		t.Run(tt.loc.String(), func(t *testing.T) {
			got, err := translate(tt.loc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateUnsupported(t *testing.T) {
	_, err := translate(ui.ByRegexp("^a"))
	assert.ErrorIs(t, err, ui.ErrUnsupported)

	_, err = translate(ui.ByText(`it's "x"`))
	assert.ErrorIs(t, err, ui.ErrUnsupported)
}

func TestQueryOptions(t *testing.T) {
	opts, err := query{sel: "p"}.options(nil)
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	opts, err = query{sel: "p"}.options(&Element{})
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	_, err = query{sel: "//p", search: true}.options(&Element{})
	assert.ErrorIs(t, err, ui.ErrUnsupported)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	stale := classify(errors.New("Could not find node with given id (-32000)"))
	assert.ErrorIs(t, stale, ui.ErrStale)

	other := classify(errors.New("net::ERR_CONNECTION_REFUSED"))
	assert.False(t, ui.IsStale(other))
	assert.Contains(t, other.Error(), "cdp: net::ERR_CONNECTION_REFUSED")
}

func TestAllocatorOptions(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions) + 3

	cfg := config.NewDefaultConfig().Browser
	assert.Len(t, allocatorOptions(cfg), base+1, "window size")

	cfg.ExecPath = "/usr/bin/chromium"
	cfg.UserAgent = "lazynode"
	assert.Len(t, allocatorOptions(cfg), base+3)

	assert.Len(t, allocatorOptions(config.BrowserConfig{}), base)
}
