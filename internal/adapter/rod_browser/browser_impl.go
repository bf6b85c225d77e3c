package rod_browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/user/campus-assistant/internal/adapter/browserprofile"
	"github.com/user/campus-assistant/internal/repository"
	"go.uber.org/zap"
)

// Options tune how Chrome is launched.
type Options struct {
	Headless bool
	// Bin overrides the browser binary; empty lets rod find or download one.
	Bin string
	// ControlURL connects to an already running browser instead of launching.
	ControlURL string
}

// RodBrowser shares one browser process and gives every page its own
// incognito context.
type RodBrowser struct {
	opts     Options
	profiles *browserprofile.Manager
	logger   *zap.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewRodBrowser creates a browser engine backed by go-rod. The browser is
// launched on first use.
func NewRodBrowser(opts Options, profiles *browserprofile.Manager, logger *zap.Logger) *RodBrowser {
	if profiles == nil {
		profiles = browserprofile.NewManager(nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RodBrowser{opts: opts, profiles: profiles, logger: logger}
}

func (b *RodBrowser) Name() string { return "rod" }

func (b *RodBrowser) ensureStarted() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		if _, err := b.browser.Version(); err == nil {
			return b.browser, nil
		}
		b.logger.Warn("stale browser connection, relaunching")
		_ = b.browser.Close()
		b.browser = nil
	}

	controlURL := b.opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(b.opts.Headless).NoSandbox(true)
		if b.opts.Bin != "" {
			l = l.Bin(b.opts.Bin)
		}
		// Proxies are per process in rod; the first profile's proxy applies
		// to every page.
		if proxy := b.profiles.Next().Proxy; proxy != "" {
			l = l.Proxy(proxy)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
		b.launcher = l
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	b.browser = browser
	return browser, nil
}

// NewPage opens a blank page in a fresh incognito context.
func (b *RodBrowser) NewPage(ctx context.Context) (repository.BrowserPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser, err := b.ensureStarted()
	if err != nil {
		return nil, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	ua := b.profiles.Next().UserAgent
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		_ = page.Close()
		_ = incognito.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{Width: 1366, Height: 900, DeviceScaleFactor: 1}).Call(page); err != nil {
		b.logger.Debug("failed to set viewport", zap.Error(err))
	}
	return &rodPage{page: page, incognito: incognito}, nil
}

// Close shuts down the shared browser, if one was started.
func (b *RodBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
	return err
}

type rodPage struct {
	page      *rod.Page
	incognito *rod.Browser
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *rodPage) WaitNetworkIdle(ctx context.Context, quiet time.Duration) error {
	p.page.Context(ctx).WaitRequestIdle(quiet, nil, nil, nil)()
	return ctx.Err()
}

func (p *rodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	pg := p.page.Context(ctx)
	if isXPath(selector) {
		return pg.ElementX(selector)
	}
	return pg.Element(selector)
}

func (p *rodPage) elements(ctx context.Context, selector string) (rod.Elements, error) {
	pg := p.page.Context(ctx)
	if isXPath(selector) {
		return pg.ElementsX(selector)
	}
	return pg.Elements(selector)
}

func (p *rodPage) WaitVisible(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (p *rodPage) Fill(ctx context.Context, selector, value string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return fmt.Errorf("element not found: %w", err)
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return fmt.Errorf("element not found: %w", err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) ClickNth(ctx context.Context, selector string, n int) error {
	els, err := p.elements(ctx, selector)
	if err != nil {
		return err
	}
	if n < 0 || n >= len(els) {
		return fmt.Errorf("element %d of %q not found (%d matches)", n, selector, len(els))
	}
	return els[n].Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) Count(ctx context.Context, selector string) (int, error) {
	els, err := p.elements(ctx, selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (p *rodPage) Evaluate(ctx context.Context, expression string, out any) error {
	res, err := p.page.Context(ctx).Evaluate(rod.Eval("() => (" + expression + ")"))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return res.Value.Unmarshal(out)
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(true, nil)
}

func (p *rodPage) Close() error {
	return errors.Join(p.page.Close(), p.incognito.Close())
}

func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "/")
}
