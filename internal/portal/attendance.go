package portal

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/campus-assistant/internal/entity"
	"go.uber.org/zap"
)

var widthPattern = regexp.MustCompile(`width:\s*([\d.]+)%`)

// IndicatorColours decides how a session icon's fill maps to a status.
type IndicatorColours struct {
	Present string
	Absent  []string
}

func (c IndicatorColours) status(fill string) entity.SessionStatus {
	fill = strings.ToLower(strings.TrimSpace(fill))
	if fill == "" {
		return entity.SessionNotMarked
	}
	if fill == strings.ToLower(c.Present) {
		return entity.SessionPresent
	}
	for _, a := range c.Absent {
		if fill == strings.ToLower(a) {
			return entity.SessionAbsent
		}
	}
	return entity.SessionNotMarked
}

// AttendanceExtractor reads the attendance page of a logged-in session.
type AttendanceExtractor struct {
	driver  *Driver
	cfg     Config
	colours IndicatorColours
	logger  *zap.Logger
}

func NewAttendanceExtractor(driver *Driver, cfg Config, logger *zap.Logger) *AttendanceExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceExtractor{
		driver:  driver,
		cfg:     cfg,
		colours: IndicatorColours{Present: cfg.PresentFill, Absent: cfg.AbsentFills},
		logger:  logger.With(zap.String("stage", "attendance")),
	}
}

// Extract always returns a usable snapshot. The error, when set, explains why
// the snapshot may be incomplete; it never means the snapshot is invalid.
func (e *AttendanceExtractor) Extract(ctx context.Context, s *Session) (entity.AttendanceSnapshot, error) {
	if err := e.driver.NavigateAndWait(ctx, s, attendancePath, pageReadySelector, e.cfg.SelectorTimeout); err != nil {
		e.driver.Screenshot(ctx, s, shotAttendance)
		return entity.EmptyAttendance(), err
	}

	expandErr := e.expandOverall(ctx, s)
	if expandErr != nil {
		e.logger.Debug("overall panel not expanded", zap.Error(expandErr))
	}

	html, err := s.page.HTML(ctx)
	if err != nil {
		e.driver.Screenshot(ctx, s, shotAttendance)
		return entity.EmptyAttendance(), fmt.Errorf("%w: read attendance page: %w", ErrStructuralChange, err)
	}

	snap, parseErr := ParseAttendance(html, e.colours)
	return snap, errors.Join(expandErr, parseErr)
}

// expandOverall clicks the "Overall" header. A view that already shows an
// active panel is left as it is.
func (e *AttendanceExtractor) expandOverall(ctx context.Context, s *Session) error {
	if err := e.driver.waitVisible(ctx, s, overallHeaderXPath, e.cfg.SelectorTimeout); err != nil {
		if n, cerr := s.page.Count(ctx, activePanelSelector); cerr == nil && n > 0 {
			return nil
		}
		return fmt.Errorf("%w: overall header: %w", ErrStructuralChange, err)
	}

	clickCtx, cancel := context.WithTimeout(ctx, e.cfg.SelectorTimeout)
	err := s.page.Click(clickCtx, overallHeaderXPath)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: click overall header: %w", ErrTransientRender, err)
	}

	if err := e.driver.waitVisible(ctx, s, activePanelSelector, e.cfg.SelectorTimeout); err != nil {
		return fmt.Errorf("%w: overall panel did not open: %w", ErrStructuralChange, err)
	}
	return e.driver.WaitStable(ctx, s, activePanelSelector)
}

// ParseAttendance reads an attendance snapshot out of the rendered page. The
// returned error wraps ErrStructuralChange when the progress bar is missing
// or unreadable; the snapshot is still filled with everything else found.
func ParseAttendance(html string, colours IndicatorColours) (entity.AttendanceSnapshot, error) {
	snap := entity.EmptyAttendance()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return snap, fmt.Errorf("%w: parse attendance html: %w", ErrStructuralChange, err)
	}

	snap.Rows = tableRows(doc.Find(activePanelRowsSelector))

	doc.Find(sessionIndicatorSel).Each(func(_ int, svg *goquery.Selection) {
		fill, _ := svg.Attr("fill")
		snap.Sessions = append(snap.Sessions, colours.status(fill))
	})

	bar := doc.Find(progressBarSelector).First()
	if bar.Length() == 0 {
		return snap, fmt.Errorf("%w: progress bar not found", ErrStructuralChange)
	}
	style, _ := bar.Attr("style")
	pct, ok := parsePercentage(style)
	if !ok {
		return snap, fmt.Errorf("%w: progress bar style %q", ErrStructuralChange, style)
	}
	snap.OverallPercentage = &pct
	return snap, nil
}

func parsePercentage(style string) (float64, bool) {
	m := widthPattern.FindStringSubmatch(style)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

// tableRows returns the trimmed cell texts of every row that has cells.
func tableRows(rows *goquery.Selection) [][]string {
	out := [][]string{}
	rows.Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find(cellSelector)
		if cells.Length() == 0 {
			return
		}
		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		out = append(out, row)
	})
	return out
}
