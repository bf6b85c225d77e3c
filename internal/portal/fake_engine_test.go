package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/user/campus-assistant/internal/repository"
)

const testBaseURL = "http://portal.test"

// fakePortal scripts what each portal path renders.
type fakePortal struct {
	// loginForm renders the login inputs on "/".
	loginForm bool
	// rejectLogin keeps the form on screen after submit.
	rejectLogin bool

	html    map[string]string
	visible map[string][]string
	counts  map[string]map[string]int

	// panicOnHTML makes HTML panic while on the given path.
	panicOnHTML string
	// panicOnFill makes every Fill panic.
	panicOnFill bool
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		loginForm: true,
		html: map[string]string{
			attendancePath: attendanceFixture,
			timetablePath:  timetableFixture,
		},
		visible: map[string][]string{
			attendancePath: {pageReadySelector, overallHeaderXPath, activePanelSelector},
			timetablePath:  {pageReadySelector},
		},
		counts: map[string]map[string]int{
			attendancePath: {activePanelSelector: 1},
			timetablePath:  {panelHeaderSelector: 3},
		},
	}
}

type fakeEngine struct {
	portal *fakePortal

	mu        sync.Mutex
	pages     []*fakePage
	newPageFn func(ctx context.Context) error
}

func newFakeEngine(p *fakePortal) *fakeEngine { return &fakeEngine{portal: p} }

func (e *fakeEngine) NewPage(ctx context.Context) (repository.BrowserPage, error) {
	if e.newPageFn != nil {
		if err := e.newPageFn(ctx); err != nil {
			return nil, err
		}
	}
	p := &fakePage{portal: e.portal}
	e.mu.Lock()
	e.pages = append(e.pages, p)
	e.mu.Unlock()
	return p, nil
}

func (e *fakeEngine) Name() string { return "fake" }
func (e *fakeEngine) Close() error { return nil }

func (e *fakeEngine) page(i int) *fakePage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pages[i]
}

type fakePage struct {
	portal *fakePortal

	mu        sync.Mutex
	path      string
	submitted bool
	filled    map[string]string
	clicks    []string
	navs      []string
	closes    int
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := strings.TrimPrefix(url, testBaseURL)
	p.mu.Lock()
	p.path = path
	p.navs = append(p.navs, path)
	p.mu.Unlock()
	return nil
}

func (p *fakePage) WaitNetworkIdle(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error {
	if p.isVisible(selector) {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePage) isVisible(selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path == "/" && selector == loginMobileSelector {
		return p.portal.loginForm
	}
	for _, s := range p.portal.visible[p.path] {
		if s == selector {
			return true
		}
	}
	return false
}

func (p *fakePage) Fill(_ context.Context, selector, value string) error {
	if p.portal.panicOnFill {
		panic("renderer crashed")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.filled == nil {
		p.filled = map[string]string{}
	}
	p.filled[selector] = value
	return nil
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, selector)
	if selector == loginSubmitSelector {
		p.submitted = true
	}
	return nil
}

func (p *fakePage) ClickNth(_ context.Context, selector string, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n >= p.portal.counts[p.path][selector] {
		return errors.New("no such element")
	}
	p.clicks = append(p.clicks, fmt.Sprintf("%s#%d", selector, n))
	return nil
}

func (p *fakePage) Count(_ context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if selector == loginMobileSelector {
		if p.path == "/" && p.portal.loginForm && (!p.submitted || p.portal.rejectLogin) {
			return 1, nil
		}
		return 0, nil
	}
	return p.portal.counts[p.path][selector], nil
}

func (p *fakePage) Evaluate(_ context.Context, _ string, out any) error {
	n, ok := out.(*int)
	if !ok {
		return fmt.Errorf("unexpected evaluate target %T", out)
	}
	p.mu.Lock()
	*n = len(p.portal.html[p.path])
	p.mu.Unlock()
	return nil
}

func (p *fakePage) HTML(_ context.Context) (string, error) {
	p.mu.Lock()
	path := p.path
	p.mu.Unlock()
	if p.portal.panicOnHTML != "" && p.portal.panicOnHTML == path {
		panic("renderer crashed")
	}
	html, ok := p.portal.html[path]
	if !ok {
		return "", errors.New("no document")
	}
	return html, nil
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("png"), ctx.Err()
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

func (p *fakePage) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *fakePage) clickLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// fakeSink records artifact names.
type fakeSink struct {
	mu    sync.Mutex
	shots []string
	jsons []string
}

func (s *fakeSink) SaveScreenshot(name string, _ []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shots = append(s.shots, name)
}

func (s *fakeSink) SaveJSON(name string, _ any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jsons = append(s.jsons, name)
}

func (s *fakeSink) screenshots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.shots...)
}

// shotKinds strips the per-session "<mobile>_<timestamp>_" prefix.
func (s *fakeSink) shotKinds() []string {
	kinds := []string{}
	for _, name := range s.screenshots() {
		parts := strings.SplitN(name, "_", 3)
		kinds = append(kinds, parts[len(parts)-1])
	}
	return kinds
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseURL = testBaseURL
	cfg.LoginTimeout = 50 * time.Millisecond
	cfg.SelectorTimeout = 50 * time.Millisecond
	cfg.NavigationTimeout = 200 * time.Millisecond
	cfg.NetworkIdleQuiet = 0
	cfg.SettleTimeout = 100 * time.Millisecond
	cfg.SettlePollInterval = 5 * time.Millisecond
	cfg.SettleStableRounds = 2
	cfg.SettleFallbackDelay = 10 * time.Millisecond
	return cfg
}

const attendanceFixture = `<html><body>
<div class="ant-page-header-heading-title">Attendance</div>
<div class="ant-collapse">
  <div class="ant-collapse-item">
    <div class="ant-collapse-header"><h4>Last 2 Weeks</h4></div>
    <div class="ant-collapse-content ant-collapse-content-inactive"><div class="ant-collapse-content-box">
      <span><svg fill="red"></svg></span>
    </div></div>
  </div>
  <div class="ant-collapse-item ant-collapse-item-active">
    <div class="ant-collapse-header"><h4>Overall</h4></div>
    <div class="ant-collapse-content ant-collapse-content-active"><div class="ant-collapse-content-box">
      <div class="ant-progress"><div class="ant-progress-bg" style="width: 87.5%; height: 8px;"></div></div>
      <table>
        <tr><th>Subject</th><th>Attended</th><th>Percentage</th></tr>
        <tr><td> Mathematics </td><td>18/20</td><td>90</td></tr>
        <tr><td>Physics</td><td>17/20</td><td>85</td></tr>
      </table>
      <span><svg fill="green"></svg></span>
      <span><svg fill="red"></svg></span>
      <span><svg fill="green"></svg></span>
    </div></div>
  </div>
</div>
</body></html>`

const timetableFixture = `<html><body>
<div class="ant-page-header-heading-title">Time Table</div>
<div class="ant-collapse">
  <div class="ant-collapse-item">
    <div class="ant-collapse-header">Monday</div>
    <div class="ant-collapse-content"><div class="ant-collapse-content-box">
      <table>
        <tr><th>Time</th><th>Subject</th><th>Room</th></tr>
        <tr><td>09:00</td><td>Mathematics</td><td>A101</td></tr>
        <tr><td>10:00</td><td>Physics</td><td>B202</td></tr>
      </table>
    </div></div>
  </div>
  <div class="ant-collapse-item">
    <div class="ant-collapse-header">Tuesday</div>
    <div class="ant-collapse-content"><div class="ant-collapse-content-box">
      <table><tr><td>09:00</td><td>Chemistry</td><td>C303</td></tr></table>
    </div></div>
  </div>
  <div class="ant-collapse-item">
    <div class="ant-collapse-header">Wednesday</div>
    <div class="ant-collapse-content"><div class="ant-collapse-content-box"></div></div>
  </div>
</div>
</body></html>`
