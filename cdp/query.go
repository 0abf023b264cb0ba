package cdp

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/cboone/lazynode/ui"
)

// query is a locator translated for chromedp. CSS queries run relative to a
// node; XPath searches run against the whole document.
type query struct {
	sel    string
	search bool
}

func translate(loc ui.Locator) (query, error) {
	v := loc.Value()
	switch loc.Strategy() {
	case ui.CSS:
		return query{sel: v}, nil
	case ui.ID:
		return query{sel: "[id=" + cssString(v) + "]"}, nil
	case ui.Name:
		return query{sel: "[name=" + cssString(v) + "]"}, nil
	case ui.ClassName:
		return query{sel: "[class~=" + cssString(v) + "]"}, nil
	case ui.TagName:
		return query{sel: v}, nil
	case ui.XPath:
		return query{sel: v, search: true}, nil
	case ui.LinkText:
		lit, err := xpathString(v)
		if err != nil {
			return query{}, fmt.Errorf("cdp: %s: %w", loc, err)
		}
		return query{sel: "//a[normalize-space(.)=" + lit + "]", search: true}, nil
	case ui.Text:
		lit, err := xpathString(v)
		if err != nil {
			return query{}, fmt.Errorf("cdp: %s: %w", loc, err)
		}
		return query{sel: "//*[contains(text(), " + lit + ")]", search: true}, nil
	}
	return query{}, fmt.Errorf("cdp: locator %s: %w", loc, ui.ErrUnsupported)
}

// options are the chromedp query options for q, run under from when it is
// non-nil. Zero matches is a valid answer, so queries never wait.
func (q query) options(from *Element) ([]chromedp.QueryOption, error) {
	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}
	if q.search {
		if from != nil {
			return nil, fmt.Errorf("cdp: xpath below a node: %w", ui.ErrUnsupported)
		}
		return append(opts, chromedp.BySearch), nil
	}
	opts = append(opts, chromedp.ByQueryAll)
	if from != nil {
		opts = append(opts, chromedp.FromNode(from.node))
	}
	return opts, nil
}

// cssString quotes s as a CSS string.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}

// xpathString quotes s as an XPath 1.0 literal, which has no escapes.
func xpathString(s string) (string, error) {
	switch {
	case !strings.Contains(s, `"`):
		return `"` + s + `"`, nil
	case !strings.Contains(s, `'`):
		return `'` + s + `'`, nil
	}
	return "", fmt.Errorf("text mixes both quote kinds: %w", ui.ErrUnsupported)
}
