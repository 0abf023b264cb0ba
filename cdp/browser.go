// Package cdp drives Chrome through the DevTools protocol and exposes pages
// as lazynode search contexts.
//
// A [Page] is a root [ui.SearchContext] and [ui.Documenter]. Its nodes are
// [Element] values wrapping CDP nodes. Queries never wait on the browser
// side; waiting is left to lazynode handles. A node that was detached or
// whose id the browser no longer knows reports [ui.ErrStale].
package cdp

import (
	"context"
	"fmt"
	"strings"
	"time"

	proto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/cboone/lazynode/config"
	"github.com/cboone/lazynode/ui"
)

const (
	callTimeout     = 10 * time.Second
	navigateTimeout = 30 * time.Second
)

// Browser is a Chrome process started by NewBrowser.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      *zap.Logger
}

// NewBrowser starts Chrome with cfg. The browser lives until Close or until
// ctx is done.
func NewBrowser(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("cdp")

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	sugar := logger.Sugar()
	bctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	)
	if err := chromedp.Run(bctx); err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("cdp: starting browser: %w", err)
	}
	logger.Debug("browser started", zap.Bool("headless", cfg.Headless))
	return &Browser{ctx: bctx, cancel: cancel, cancelAlloc: cancelAlloc, logger: logger}, nil
}

func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

// NewPage opens a new tab.
func (b *Browser) NewPage() (*Page, error) {
	pctx, cancel := chromedp.NewContext(b.ctx)
	if err := chromedp.Run(pctx); err != nil {
		cancel()
		return nil, fmt.Errorf("cdp: opening tab: %w", err)
	}
	return &Page{ctx: pctx, cancel: cancel, logger: b.logger}, nil
}

// Close stops the browser and every page.
func (b *Browser) Close() {
	b.cancel()
	b.cancelAlloc()
}

// Page is one browser tab.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

var (
	_ ui.SearchContext = (*Page)(nil)
	_ ui.Documenter    = (*Page)(nil)
)

// Context returns the tab's chromedp context, for running other actions.
func (p *Page) Context() context.Context { return p.ctx }

// Close closes the tab.
func (p *Page) Close() { p.cancel() }

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(p.ctx, navigateTimeout)
	defer cancel()
	start := time.Now()
	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("cdp: navigate %s: %w", url, err)
	}
	p.logger.Debug("navigated", zap.String("url", url), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// FindAll returns the elements matching loc in document order.
func (p *Page) FindAll(loc ui.Locator) ([]ui.Node, error) {
	return p.findAll(loc, nil)
}

func (p *Page) findAll(loc ui.Locator, from *Element) ([]ui.Node, error) {
	q, err := translate(loc)
	if err != nil {
		return nil, err
	}
	opts, err := q.options(from)
	if err != nil {
		return nil, err
	}
	var nodes []*proto.Node
	if err := p.run(chromedp.Nodes(q.sel, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("%w (%s)", err, loc)
	}
	out := make([]ui.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.NodeType != proto.NodeTypeElement {
			continue
		}
		out = append(out, &Element{page: p, node: n})
	}
	return out, nil
}

// Evaluate runs a JavaScript expression in the page and decodes its result
// into res, which may be nil.
func (p *Page) Evaluate(expr string, res any) error {
	return p.run(chromedp.Evaluate(expr, res))
}

// Source returns the document's outer HTML.
func (p *Page) Source() (string, error) {
	var html string
	if err := p.run(chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// run executes actions on the tab with a per-call timeout.
func (p *Page) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.ctx, callTimeout)
	defer cancel()
	return classify(chromedp.Run(ctx, actions...))
}

// classify maps CDP errors for unknown nodes to ui.ErrStale.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, s := range staleMessages {
		if strings.Contains(msg, s) {
			return fmt.Errorf("cdp: %w: %w", ui.ErrStale, err)
		}
	}
	return fmt.Errorf("cdp: %w", err)
}

var staleMessages = []string{
	"Could not find node",
	"No node with given id",
	"Node with given id does not belong to the document",
	"Cannot find context with specified id",
}
