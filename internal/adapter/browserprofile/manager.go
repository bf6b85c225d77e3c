package browserprofile

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultUserAgents are desktop Chrome strings; the portal serves a reduced
// layout to unknown agents.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

// Profile is what a new browser context is launched with.
type Profile struct {
	UserAgent string
	// Proxy is empty when the browser connects directly.
	Proxy string
}

// Manager hands out browser profiles, rotating proxies in order and picking
// user agents at random.
type Manager struct {
	proxies    []string
	userAgents []string

	mu         sync.Mutex
	proxyIndex int
	rnd        *rand.Rand
}

// NewManager builds a manager. A nil or empty userAgents falls back to
// DefaultUserAgents.
func NewManager(proxies, userAgents []string) *Manager {
	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents
	}
	return &Manager{
		proxies:    proxies,
		userAgents: userAgents,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the profile for the next browser context.
func (m *Manager) Next() Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	var p Profile
	if len(m.proxies) > 0 {
		p.Proxy = m.proxies[m.proxyIndex]
		m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	}
	p.UserAgent = m.userAgents[m.rnd.Intn(len(m.userAgents))]
	return p
}
