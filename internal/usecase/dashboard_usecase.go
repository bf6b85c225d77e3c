package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/campus-assistant/internal/entity"
	"github.com/user/campus-assistant/internal/portal"
	"github.com/user/campus-assistant/internal/repository"
	"github.com/user/campus-assistant/pkg/metrics"
	"github.com/user/campus-assistant/pkg/utils"
	"go.uber.org/zap"
)

var (
	ErrInvalidMobile   = utils.ErrInvalidMobile
	ErrNoCredentials   = errors.New("no portal credentials configured for this mobile number")
	ErrPortalLogin     = errors.New("portal login failed")
	ErrNoDashboardData = errors.New("no dashboard data for this mobile number")
)

// PortalScraper runs one full scrape. It never fails; problems are reported
// through the returned Report.
type PortalScraper interface {
	Scrape(ctx context.Context, creds portal.Credentials) (*entity.ScrapeResult, portal.Report)
}

// DashboardUpdate is the result of a refresh together with how complete it is.
type DashboardUpdate struct {
	Result  *entity.ScrapeResult
	Outcome string
}

// Dashboard refreshes and serves the per-student dashboard data.
type Dashboard interface {
	// Refresh scrapes the portal for mobile. On ErrPortalLogin the returned
	// update still carries the all-default result.
	Refresh(ctx context.Context, mobile string) (*DashboardUpdate, error)
	// Latest returns the most recent data for mobile without scraping.
	Latest(ctx context.Context, mobile string) (*entity.ScrapeResult, error)
}

// DashboardConfig bounds a refresh and the lifetime of cached results.
type DashboardConfig struct {
	ScrapeTimeout time.Duration
	CacheTTL      time.Duration
}

type dashboardUseCase struct {
	scraper     PortalScraper
	credentials repository.CredentialStore
	results     repository.ScrapeResultRepository
	cache       repository.LatestResultCache
	cfg         DashboardConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboard creates the dashboard use case. cache may be nil.
func NewDashboard(
	scraper PortalScraper,
	credentials repository.CredentialStore,
	results repository.ScrapeResultRepository,
	cache repository.LatestResultCache,
	cfg DashboardConfig,
	logger *zap.Logger,
) Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &dashboardUseCase{
		scraper:     scraper,
		credentials: credentials,
		results:     results,
		cache:       cache,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (uc *dashboardUseCase) Refresh(ctx context.Context, mobile string) (*DashboardUpdate, error) {
	mobile, err := utils.NormalizeMobile(mobile)
	if err != nil {
		return nil, err
	}
	log := uc.logger.With(zap.String("mobile", utils.MaskMobile(mobile)))

	password, err := uc.credentials.PasswordFor(ctx, mobile)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to resolve portal credentials: %w", err)
	}

	scrapeCtx := ctx
	if uc.cfg.ScrapeTimeout > 0 {
		var cancel context.CancelFunc
		scrapeCtx, cancel = context.WithTimeout(ctx, uc.cfg.ScrapeTimeout)
		defer cancel()
	}
	result, rep := uc.scraper.Scrape(scrapeCtx, portal.Credentials{MobileNumber: mobile, Password: password})
	outcome := rep.Outcome()
	metrics.ScrapesTotal.WithLabelValues(outcome).Inc()

	update := &DashboardUpdate{Result: result, Outcome: outcome}

	// Persisting and caching outlive a cancelled request.
	bg := context.WithoutCancel(ctx)
	rec := &entity.ScrapeRecord{
		ID:           uuid.NewString(),
		MobileNumber: mobile,
		Outcome:      outcome,
		Result:       result,
		CreatedAt:    uc.now().UTC(),
	}
	if err := uc.results.Save(bg, rec); err != nil {
		// This is not a critical error, just log it.
		log.Warn("failed to persist scrape record", zap.String("id", rec.ID), zap.Error(err))
	}

	if outcome == entity.OutcomeLoginFailed {
		log.Warn("portal login failed", zap.Error(rep.AuthErr))
		return update, fmt.Errorf("%w: %w", ErrPortalLogin, rep.AuthErr)
	}

	if uc.cache != nil {
		if err := uc.cache.Put(bg, mobile, result, uc.cfg.CacheTTL); err != nil {
			log.Warn("failed to cache latest result", zap.Error(err))
		}
	}
	log.Info("dashboard refreshed", zap.String("outcome", outcome), zap.Duration("duration", rep.Duration))
	return update, nil
}

func (uc *dashboardUseCase) Latest(ctx context.Context, mobile string) (*entity.ScrapeResult, error) {
	mobile, err := utils.NormalizeMobile(mobile)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		result, err := uc.cache.Get(ctx, mobile)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			uc.logger.Warn("latest result cache unavailable, falling back to store", zap.Error(err))
		}
	}

	rec, err := uc.results.FindLatest(ctx, mobile)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoDashboardData
		}
		return nil, fmt.Errorf("failed to load latest scrape record: %w", err)
	}

	if uc.cache != nil {
		if err := uc.cache.Put(ctx, mobile, rec.Result, uc.cfg.CacheTTL); err != nil {
			uc.logger.Debug("failed to warm latest result cache", zap.Error(err))
		}
	}
	return rec.Result, nil
}
