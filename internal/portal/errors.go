package portal

import "errors"

var (
	// ErrAuth means no authenticated session could be established. It is the
	// only failure that ends a scrape early.
	ErrAuth = errors.New("portal authentication failed")
	// ErrNavigation means a sub-page never showed its readiness marker.
	ErrNavigation = errors.New("portal navigation failed")
	// ErrStructuralChange means an expected element was not where the portal
	// markup used to put it.
	ErrStructuralChange = errors.New("portal markup changed")
	// ErrTransientRender means the page kept changing past the settle deadline.
	ErrTransientRender = errors.New("portal render did not settle")
)

// errorType maps a stage error onto a metrics label.
func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrNavigation):
		return "navigation"
	case errors.Is(err, ErrStructuralChange):
		return "structural_change"
	case errors.Is(err, ErrTransientRender):
		return "transient_render"
	default:
		return "unknown"
	}
}
