package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/user/campus-assistant/internal/entity"
	"github.com/user/campus-assistant/internal/repository"
	"github.com/user/campus-assistant/pkg/metrics"
	"github.com/user/campus-assistant/pkg/utils"
	"go.uber.org/zap"
)

// State is a step of one scrape.
type State int

const (
	StateInit State = iota
	StateLoggingIn
	StateLoggedIn
	StateExtractingAttendance
	StateExtractingTimetable
	StateLoginFailed
	StateDone
)

var stateNames = [...]string{
	StateInit:                 "init",
	StateLoggingIn:            "logging_in",
	StateLoggedIn:             "logged_in",
	StateExtractingAttendance: "extracting_attendance",
	StateExtractingTimetable:  "extracting_timetable",
	StateLoginFailed:          "login_failed",
	StateDone:                 "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Report describes how a scrape went. Only AuthErr changes what the caller
// should do; the stage errors explain which parts of the result are partial.
type Report struct {
	Path          []State
	AuthErr       error
	AttendanceErr error
	TimetableErr  error
	Duration      time.Duration
}

// Outcome classifies the scrape as complete, partial or login_failed.
func (r Report) Outcome() string {
	switch {
	case r.AuthErr != nil:
		return entity.OutcomeLoginFailed
	case r.AttendanceErr != nil || r.TimetableErr != nil:
		return entity.OutcomePartial
	default:
		return entity.OutcomeComplete
	}
}

func (r *Report) enter(s State) { r.Path = append(r.Path, s) }

// Scraper runs the login and both extraction stages against one fresh session.
type Scraper struct {
	engineName string
	driver     *Driver
	attendance *AttendanceExtractor
	timetable  *TimetableExtractor
	logger     *zap.Logger
	now        func() time.Time
}

// NewScraper wires a driver and both extractors around engine.
func NewScraper(engine repository.BrowserEngine, cfg Config, artifacts repository.ArtifactSink, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver := NewDriver(engine, cfg, artifacts, logger)
	return &Scraper{
		engineName: engine.Name(),
		driver:     driver,
		attendance: NewAttendanceExtractor(driver, cfg, logger),
		timetable:  NewTimetableExtractor(driver, cfg, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Scrape never fails: the returned result is always non-nil and holds
// whatever could be collected. The session, if one was opened, is closed
// before Scrape returns.
func (sc *Scraper) Scrape(ctx context.Context, creds Credentials) (result *entity.ScrapeResult, rep Report) {
	start := time.Now()
	result = entity.NewScrapeResult(sc.now())
	log := sc.logger.With(zap.String("mobile", utils.MaskMobile(creds.MobileNumber)))

	rep.enter(StateInit)
	defer func() {
		rep.enter(StateDone)
		rep.Duration = time.Since(start)
		metrics.ScrapeDuration.WithLabelValues(sc.engineName).Observe(rep.Duration.Seconds())
		log.Info("scrape finished",
			zap.String("outcome", rep.Outcome()),
			zap.Duration("duration", rep.Duration),
		)
	}()

	rep.enter(StateLoggingIn)
	session, err := sc.login(ctx, creds)
	if err != nil {
		rep.AuthErr = err
		rep.enter(StateLoginFailed)
		sc.stageFailed(log, "login", err)
		return result, rep
	}
	defer func() {
		if err := sc.driver.Close(session); err != nil {
			log.Warn("failed to close portal session", zap.Error(err))
		}
	}()
	rep.enter(StateLoggedIn)

	rep.enter(StateExtractingAttendance)
	result.Attendance, rep.AttendanceErr = runStage(func() (entity.AttendanceSnapshot, error) {
		return sc.attendance.Extract(ctx, session)
	}, entity.EmptyAttendance)
	if rep.AttendanceErr != nil {
		sc.stageFailed(log, "attendance", rep.AttendanceErr)
	}

	rep.enter(StateExtractingTimetable)
	result.Timetable, rep.TimetableErr = runStage(func() (entity.TimetableSnapshot, error) {
		return sc.timetable.Extract(ctx, session)
	}, entity.EmptyTimetable)
	if rep.TimetableErr != nil {
		sc.stageFailed(log, "timetable", rep.TimetableErr)
	}

	if errorType(rep.AttendanceErr) == "unknown" || errorType(rep.TimetableErr) == "unknown" {
		sc.driver.Screenshot(ctx, session, shotFinal)
	}
	sc.driver.SaveJSON(artifactName(creds.MobileNumber), result)
	return result, rep
}

func (sc *Scraper) login(ctx context.Context, creds Credentials) (s *Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("%w: login panicked: %v", ErrAuth, r)
		}
	}()
	return sc.driver.Login(ctx, creds)
}

func (sc *Scraper) stageFailed(log *zap.Logger, stage string, err error) {
	metrics.PortalStageFailures.WithLabelValues(stage, errorType(err)).Inc()
	log.Warn("scrape stage degraded", zap.String("stage", stage), zap.Error(err))
}

// runStage turns a panicking stage into a default snapshot and an error.
func runStage[T any](fn func() (T, error), fallback func() T) (snap T, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap, err = fallback(), fmt.Errorf("stage panicked: %v", r)
		}
	}()
	return fn()
}

func artifactName(mobile string) string {
	return "scrape_" + strings.TrimPrefix(mobile, "+") + ".json"
}
