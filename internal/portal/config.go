package portal

import (
	"fmt"
	"strings"
	"time"
)

// Config holds every timing assumption the scraper makes about the portal.
type Config struct {
	BaseURL string

	LoginTimeout      time.Duration
	SelectorTimeout   time.Duration
	NavigationTimeout time.Duration
	NetworkIdleQuiet  time.Duration

	SettleTimeout       time.Duration
	SettlePollInterval  time.Duration
	SettleStableRounds  int
	SettleFallbackDelay time.Duration

	PresentFill string
	AbsentFills []string
}

// DefaultConfig mirrors the waits the portal has been observed to need.
func DefaultConfig() Config {
	return Config{
		BaseURL:             "http://kmit-netra.teleuniv.in",
		LoginTimeout:        3 * time.Second,
		SelectorTimeout:     3 * time.Second,
		NavigationTimeout:   15 * time.Second,
		NetworkIdleQuiet:    500 * time.Millisecond,
		SettleTimeout:       2 * time.Second,
		SettlePollInterval:  100 * time.Millisecond,
		SettleStableRounds:  3,
		SettleFallbackDelay: time.Second,
		PresentFill:         "green",
		AbsentFills:         []string{"red", "#ff4d4f"},
	}
}

// Validate rejects configurations the scraper cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("portal base url is required")
	}
	if c.LoginTimeout < 3*time.Second || c.LoginTimeout > 10*time.Second {
		return fmt.Errorf("login timeout %s outside 3s..10s", c.LoginTimeout)
	}
	if c.SelectorTimeout <= 0 || c.NavigationTimeout <= 0 {
		return fmt.Errorf("selector and navigation timeouts must be positive")
	}
	if c.SettlePollInterval <= 0 || c.SettleStableRounds < 1 {
		return fmt.Errorf("settle polling needs a positive interval and at least one round")
	}
	if c.PresentFill == "" {
		return fmt.Errorf("present fill colour is required")
	}
	return nil
}

// Budget is the worst-case wall-clock time of one scrape: login, two stages
// with navigation and readiness waits, and settle waits for every expansion.
func (c Config) Budget() time.Duration {
	settle := c.SettleTimeout + c.SettleFallbackDelay
	login := c.NavigationTimeout + c.LoginTimeout + c.NavigationTimeout
	stage := c.NavigationTimeout + c.SelectorTimeout
	attendance := stage + 2*c.SelectorTimeout + settle
	timetable := stage + time.Duration(maxDayPanels)*(c.SelectorTimeout+settle)
	return login + attendance + timetable
}

func (c Config) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}
