package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/campus-assistant/internal/entity"
	"go.uber.org/zap"
)

// maxDayPanels caps how many panels are expanded so a page with unexpected
// markup cannot stretch the scrape indefinitely.
const maxDayPanels = 14

// TimetableExtractor expands every day panel of the timetable page and reads
// them in one pass.
type TimetableExtractor struct {
	driver *Driver
	cfg    Config
	logger *zap.Logger
}

func NewTimetableExtractor(driver *Driver, cfg Config, logger *zap.Logger) *TimetableExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableExtractor{
		driver: driver,
		cfg:    cfg,
		logger: logger.With(zap.String("stage", "timetable")),
	}
}

// Extract always returns a usable snapshot; see AttendanceExtractor.Extract.
func (e *TimetableExtractor) Extract(ctx context.Context, s *Session) (entity.TimetableSnapshot, error) {
	if err := e.driver.NavigateAndWait(ctx, s, timetablePath, pageReadySelector, e.cfg.SelectorTimeout); err != nil {
		e.driver.Screenshot(ctx, s, shotTimetable)
		return entity.EmptyTimetable(), err
	}

	n, err := s.page.Count(ctx, panelHeaderSelector)
	if err != nil {
		return entity.EmptyTimetable(), fmt.Errorf("%w: count day panels: %w", ErrStructuralChange, err)
	}
	if n == 0 {
		return entity.EmptyTimetable(), fmt.Errorf("%w: no day panels", ErrStructuralChange)
	}
	if n > maxDayPanels {
		e.logger.Warn("too many day panels, expanding the first ones only", zap.Int("found", n))
		n = maxDayPanels
	}

	// Panels animate open; clicking the next one before the previous has
	// settled loses the click.
	var expandErrs []error
	for i := 0; i < n; i++ {
		if err := e.expand(ctx, s, i); err != nil {
			e.logger.Debug("day panel not expanded", zap.Int("panel", i), zap.Error(err))
			expandErrs = append(expandErrs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	html, err := s.page.HTML(ctx)
	if err != nil {
		e.driver.Screenshot(ctx, s, shotTimetable)
		return entity.EmptyTimetable(), fmt.Errorf("%w: read timetable page: %w", ErrStructuralChange, err)
	}

	snap, parseErr := ParseTimetable(html)
	return snap, errors.Join(append(expandErrs, parseErr)...)
}

func (e *TimetableExtractor) expand(ctx context.Context, s *Session, i int) error {
	clickCtx, cancel := context.WithTimeout(ctx, e.cfg.SelectorTimeout)
	err := s.page.ClickNth(clickCtx, panelHeaderSelector, i)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: click day panel %d: %w", ErrTransientRender, i, err)
	}
	return e.driver.WaitStable(ctx, s, "")
}

// ParseTimetable reads every day panel in document order. A page without
// panels yields an empty snapshot and an error wrapping ErrStructuralChange.
func ParseTimetable(html string) (entity.TimetableSnapshot, error) {
	snap := entity.EmptyTimetable()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return snap, fmt.Errorf("%w: parse timetable html: %w", ErrStructuralChange, err)
	}

	doc.Find(panelItemSelector).Each(func(_ int, item *goquery.Selection) {
		snap.Days = append(snap.Days, entity.DayEntry{
			Label: strings.TrimSpace(item.Find(panelHeaderSelector).First().Text()),
			Rows:  tableRows(item.Find(panelRowsSelector)),
		})
	})
	if len(snap.Days) == 0 {
		return snap, fmt.Errorf("%w: no day panels", ErrStructuralChange)
	}
	return snap, nil
}
