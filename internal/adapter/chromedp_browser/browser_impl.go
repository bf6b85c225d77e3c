package chromedp_browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/user/campus-assistant/internal/adapter/browserprofile"
	"github.com/user/campus-assistant/internal/repository"
	"go.uber.org/zap"
)

const idlePollInterval = 50 * time.Millisecond

// Options tune how Chrome is launched.
type Options struct {
	Headless bool
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
}

// ChromedpBrowser launches one Chrome process per page so that concurrent
// scrapes never share cookies or storage.
type ChromedpBrowser struct {
	opts     Options
	profiles *browserprofile.Manager
	logger   *zap.Logger
}

// NewChromedpBrowser creates a new browser engine implementation using chromedp.
func NewChromedpBrowser(opts Options, profiles *browserprofile.Manager, logger *zap.Logger) repository.BrowserEngine {
	if profiles == nil {
		profiles = browserprofile.NewManager(nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromedpBrowser{opts: opts, profiles: profiles, logger: logger}
}

func (b *ChromedpBrowser) Name() string { return "chromedp" }

// Close is a no-op: every page owns its own browser process.
func (b *ChromedpBrowser) Close() error { return nil }

// NewPage starts a browser and opens a tab in it.
func (b *ChromedpBrowser) NewPage(ctx context.Context) (repository.BrowserPage, error) {
	profile := b.profiles.Next()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(profile.UserAgent),
		chromedp.WindowSize(1366, 900),
	)
	if profile.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(profile.Proxy))
	}
	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	sugar := b.logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	p := &page{
		ctx:          tabCtx,
		cancel:       func() { tabCancel(); allocCancel() },
		inflight:     make(map[network.RequestID]struct{}),
		lastActivity: time.Now(),
	}
	chromedp.ListenTarget(tabCtx, p.onEvent)

	if err := ctx.Err(); err != nil {
		p.cancel()
		return nil, err
	}
	// The first Run allocates the browser and binds its lifetime to the
	// context it is given, so it must not carry the caller's deadline.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		p.cancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	b.logger.Debug("opened chrome page", zap.Bool("proxied", profile.Proxy != ""))
	return p, nil
}

type page struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
}

func (p *page) onEvent(ev interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		p.inflight[e.RequestID] = struct{}{}
		p.lastActivity = time.Now()
	case *network.EventLoadingFinished:
		delete(p.inflight, e.RequestID)
		p.lastActivity = time.Now()
	case *network.EventLoadingFailed:
		delete(p.inflight, e.RequestID)
		p.lastActivity = time.Now()
	}
}

// run executes actions on the tab, bounded by ctx's deadline and
// cancellation. Cancelling the derived context does not close the tab.
func (p *page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (p *page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *page) WaitNetworkIdle(ctx context.Context, quiet time.Duration) error {
	t := time.NewTicker(idlePollInterval)
	defer t.Stop()
	for {
		if p.idleFor() >= quiet {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (p *page) idleFor() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.inflight) > 0 {
		return 0
	}
	return time.Since(p.lastActivity)
}

func (p *page) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, queryBy(selector)))
}

func (p *page) Fill(ctx context.Context, selector, value string) error {
	by := queryBy(selector)
	return p.run(ctx,
		chromedp.Clear(selector, by),
		chromedp.SendKeys(selector, value, by),
	)
}

func (p *page) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, queryBy(selector), chromedp.NodeVisible))
}

func (p *page) ClickNth(ctx context.Context, selector string, n int) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, queryAllBy(selector), chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		if n < 0 || n >= len(nodes) {
			return fmt.Errorf("element %d of %q not found (%d matches)", n, selector, len(nodes))
		}
		return chromedp.MouseClickNode(nodes[n]).Do(ctx)
	}))
}

func (p *page) Count(ctx context.Context, selector string) (int, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, queryAllBy(selector), chromedp.AtLeast(0))); err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (p *page) Evaluate(ctx context.Context, expression string, out any) error {
	return p.run(ctx, chromedp.Evaluate(expression, out))
}

func (p *page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (p *page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	// Quality 100 produces PNG.
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *page) Close() error {
	defer p.cancel()
	return chromedp.Cancel(p.ctx)
}

func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "/")
}

func queryBy(selector string) chromedp.QueryOption {
	if isXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func queryAllBy(selector string) chromedp.QueryOption {
	if isXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQueryAll
}
