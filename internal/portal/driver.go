package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/user/campus-assistant/internal/repository"
	"go.uber.org/zap"
)

// cleanupTimeout bounds the screenshot and close calls that run after the
// caller's context may already be gone.
const cleanupTimeout = 5 * time.Second

// Credentials identify one portal account.
type Credentials struct {
	MobileNumber string
	Password     string
}

// Session is one authenticated page on the portal. It is owned by a single
// scrape and must not be shared.
type Session struct {
	page    repository.BrowserPage
	origin  string
	mobile  string
	current string
	started time.Time

	closeOnce sync.Once
	closeErr  error
}

// CurrentPage returns the path the session last navigated to.
func (s *Session) CurrentPage() string { return s.current }

// Driver owns the browser-level timing of the scrape: it logs in, moves the
// session between pages and waits for the portal to finish rendering.
type Driver struct {
	engine    repository.BrowserEngine
	cfg       Config
	artifacts repository.ArtifactSink
	logger    *zap.Logger
}

// NewDriver creates a driver. artifacts may be nil, in which case screenshots
// are discarded.
func NewDriver(engine repository.BrowserEngine, cfg Config, artifacts repository.ArtifactSink, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		engine:    engine,
		cfg:       cfg,
		artifacts: artifacts,
		logger:    logger.With(zap.String("engine", engine.Name())),
	}
}

// Login opens a fresh page and signs in. On failure the page is already
// closed and the returned error wraps ErrAuth.
func (d *Driver) Login(ctx context.Context, creds Credentials) (*Session, error) {
	page, err := d.engine.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open browser page: %w", ErrAuth, err)
	}
	s := &Session{page: page, origin: d.cfg.BaseURL, mobile: creds.MobileNumber, started: time.Now()}
	defer func() {
		// The page is ours until Login returns it; a panic must not leak it.
		if r := recover(); r != nil {
			if cerr := d.Close(s); cerr != nil {
				d.logger.Warn("failed to close session after login panic", zap.Error(cerr))
			}
			panic(r)
		}
	}()

	fail := func(err error) (*Session, error) {
		d.Screenshot(ctx, s, shotLogin)
		if cerr := d.Close(s); cerr != nil {
			d.logger.Warn("failed to close session after login failure", zap.Error(cerr))
		}
		return nil, err
	}

	navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavigationTimeout)
	err = page.Navigate(navCtx, d.cfg.url("/"))
	cancel()
	if err != nil {
		return fail(fmt.Errorf("%w: open login page: %w", ErrAuth, err))
	}

	if err := d.waitVisible(ctx, s, loginMobileSelector, d.cfg.LoginTimeout); err != nil {
		return fail(fmt.Errorf("%w: %w: login form did not render: %w", ErrAuth, ErrStructuralChange, err))
	}

	opCtx, cancel := context.WithTimeout(ctx, d.cfg.SelectorTimeout)
	err = d.submitLogin(opCtx, page, creds)
	cancel()
	if err != nil {
		return fail(fmt.Errorf("%w: submit login form: %w", ErrAuth, err))
	}

	idleCtx, cancel := context.WithTimeout(ctx, d.cfg.NavigationTimeout)
	err = page.WaitNetworkIdle(idleCtx, d.cfg.NetworkIdleQuiet)
	cancel()
	if err != nil {
		return fail(fmt.Errorf("%w: waiting for login response: %w", ErrAuth, err))
	}

	// The form stays on screen when the portal rejects the credentials.
	n, err := page.Count(ctx, loginMobileSelector)
	if err != nil {
		return fail(fmt.Errorf("%w: check login state: %w", ErrAuth, err))
	}
	if n > 0 {
		return fail(fmt.Errorf("%w: portal kept the login form after submit", ErrAuth))
	}

	s.current = "/"
	d.logger.Info("logged in to portal")
	return s, nil
}

func (d *Driver) submitLogin(ctx context.Context, page repository.BrowserPage, creds Credentials) error {
	if err := page.Fill(ctx, loginMobileSelector, creds.MobileNumber); err != nil {
		return err
	}
	if err := page.Fill(ctx, loginPasswordSelector, creds.Password); err != nil {
		return err
	}
	return page.Click(ctx, loginSubmitSelector)
}

// NavigateAndWait moves the session to path and waits until readySelector is
// visible. Any failure wraps ErrNavigation.
func (d *Driver) NavigateAndWait(ctx context.Context, s *Session, path, readySelector string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavigationTimeout)
	defer cancel()

	if err := s.page.Navigate(navCtx, d.cfg.url(path)); err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrNavigation, path, err)
	}
	if err := s.page.WaitNetworkIdle(navCtx, d.cfg.NetworkIdleQuiet); err != nil {
		// Long-polling pages never go fully idle; the readiness marker decides.
		d.logger.Debug("network did not go idle", zap.String("path", path), zap.Error(err))
	}
	if err := d.waitVisible(ctx, s, readySelector, timeout); err != nil {
		return fmt.Errorf("%w: %s not ready: %w", ErrNavigation, path, err)
	}
	s.current = path
	return nil
}

// WaitStable polls the length of the region matched by selector (the whole
// body when selector is empty) until it stops changing. When the settle
// deadline passes first it sleeps the fallback delay and returns an error
// wrapping ErrTransientRender.
func (d *Driver) WaitStable(ctx context.Context, s *Session, selector string) error {
	expr := contentLengthExpr(selector)

	deadline := time.NewTimer(d.cfg.SettleTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(d.cfg.SettlePollInterval)
	defer ticker.Stop()

	last, stable := -1, 0
	for {
		var n int
		if err := s.page.Evaluate(ctx, expr, &n); err == nil {
			if n == last {
				stable++
				if stable >= d.cfg.SettleStableRounds {
					return nil
				}
			} else {
				last, stable = n, 0
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if err := sleep(ctx, d.cfg.SettleFallbackDelay); err != nil {
				return err
			}
			return fmt.Errorf("%w: %q still changing after %s", ErrTransientRender, selector, d.cfg.SettleTimeout)
		case <-ticker.C:
		}
	}
}

// Screenshot captures the page and hands it to the artifact sink. It never
// fails the caller.
func (d *Driver) Screenshot(ctx context.Context, s *Session, name string) {
	if d.artifacts == nil || s == nil {
		return
	}
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	png, err := s.page.Screenshot(shotCtx)
	if err != nil {
		d.logger.Warn("failed to capture screenshot", zap.String("name", name), zap.Error(err))
		return
	}
	d.artifacts.SaveScreenshot(s.artifactName(name), png)
}

// artifactName scopes name to this session so concurrent scrapes never
// overwrite each other's diagnostics.
func (s *Session) artifactName(name string) string {
	return strings.TrimPrefix(s.mobile, "+") + "_" + s.started.UTC().Format("20060102T150405.000000") + "_" + name
}

// SaveJSON hands v to the artifact sink.
func (d *Driver) SaveJSON(name string, v any) {
	if d.artifacts != nil {
		d.artifacts.SaveJSON(name, v)
	}
}

// Close releases the session. Only the first call does any work; later calls
// return the first call's result.
func (d *Driver) Close(s *Session) error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- s.page.Close() }()

		// Runs on its own budget so a cancelled scrape still releases the browser.
		t := time.NewTimer(cleanupTimeout)
		defer t.Stop()
		select {
		case s.closeErr = <-done:
		case <-t.C:
			s.closeErr = fmt.Errorf("closing page timed out after %s", cleanupTimeout)
		}
		if s.closeErr == nil {
			d.logger.Debug("session closed", zap.String("last_page", s.current))
		}
	})
	return s.closeErr
}

func (d *Driver) waitVisible(ctx context.Context, s *Session, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.page.WaitVisible(waitCtx, selector)
}

// contentLengthExpr builds the JavaScript that measures the settle region.
func contentLengthExpr(selector string) string {
	if selector == "" {
		return `document.body ? document.body.innerHTML.length : 0`
	}
	q, _ := json.Marshal(selector)
	return fmt.Sprintf(`(() => { const el = document.querySelector(%s); return el ? el.innerHTML.length : 0; })()`, q)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
