package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/campus-assistant/internal/entity"
	"github.com/user/campus-assistant/internal/portal"
)

var retrievedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleResult() *entity.ScrapeResult {
	pct := 87.5
	r := entity.NewScrapeResult(retrievedAt)
	r.Attendance.OverallPercentage = &pct
	r.Attendance.Sessions = []entity.SessionStatus{entity.SessionPresent, entity.SessionAbsent}
	return r
}

type dashboardFixture struct {
	scraper *fakeScraper
	results *fakeResults
	cache   *fakeCache
	uc      Dashboard
}

func newDashboardFixture(rep portal.Report, result *entity.ScrapeResult) *dashboardFixture {
	f := &dashboardFixture{
		scraper: &fakeScraper{result: result, report: rep},
		results: &fakeResults{},
		cache:   newFakeCache(),
	}
	f.uc = NewDashboard(
		f.scraper,
		fakeCredentials{"9876543210": "secret"},
		f.results,
		f.cache,
		DashboardConfig{ScrapeTimeout: time.Minute, CacheTTL: time.Hour},
		nil,
	)
	return f
}

func TestRefreshComplete(t *testing.T) {
	f := newDashboardFixture(portal.Report{}, sampleResult())

	update, err := f.uc.Refresh(context.Background(), " 98765-43210 ")
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeComplete, update.Outcome)
	assert.Equal(t, sampleResult(), update.Result)

	require.Len(t, f.scraper.calls, 1)
	assert.Equal(t, portal.Credentials{MobileNumber: "9876543210", Password: "secret"}, f.scraper.calls[0])
	assert.True(t, f.scraper.deadline)

	require.Len(t, f.results.records, 1)
	rec := f.results.records[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "9876543210", rec.MobileNumber)
	assert.Equal(t, entity.OutcomeComplete, rec.Outcome)

	assert.Same(t, update.Result, f.cache.entries["9876543210"])
	assert.Equal(t, time.Hour, f.cache.ttls["9876543210"])
}

func TestRefreshPartialIsNotAnError(t *testing.T) {
	f := newDashboardFixture(portal.Report{TimetableErr: portal.ErrStructuralChange}, sampleResult())

	update, err := f.uc.Refresh(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomePartial, update.Outcome)
	assert.Contains(t, f.cache.entries, "9876543210")
}

func TestRefreshLoginFailed(t *testing.T) {
	f := newDashboardFixture(portal.Report{AuthErr: portal.ErrAuth}, entity.NewScrapeResult(retrievedAt))

	update, err := f.uc.Refresh(context.Background(), "9876543210")
	require.ErrorIs(t, err, ErrPortalLogin)
	require.ErrorIs(t, err, portal.ErrAuth)

	require.NotNil(t, update)
	assert.Equal(t, entity.OutcomeLoginFailed, update.Outcome)
	assert.True(t, update.Result.Attendance.IsEmpty())

	// The attempt is recorded but never replaces cached data.
	require.Len(t, f.results.records, 1)
	assert.Equal(t, entity.OutcomeLoginFailed, f.results.records[0].Outcome)
	assert.Empty(t, f.cache.entries)
}

func TestRefreshValidation(t *testing.T) {
	f := newDashboardFixture(portal.Report{}, sampleResult())

	_, err := f.uc.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidMobile)

	_, err = f.uc.Refresh(context.Background(), "12ab")
	assert.ErrorIs(t, err, ErrInvalidMobile)

	_, err = f.uc.Refresh(context.Background(), "9000000000")
	assert.ErrorIs(t, err, ErrNoCredentials)

	assert.Empty(t, f.scraper.calls)
}

func TestRefreshSurvivesStoreFailure(t *testing.T) {
	f := newDashboardFixture(portal.Report{}, sampleResult())
	f.results.saveErr = errors.New("disk full")

	update, err := f.uc.Refresh(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.NotNil(t, update.Result)
	assert.Contains(t, f.cache.entries, "9876543210")
}

func TestLatestPrefersCache(t *testing.T) {
	f := newDashboardFixture(portal.Report{}, sampleResult())
	cached := entity.NewScrapeResult(retrievedAt.Add(time.Hour))
	f.cache.entries["9876543210"] = cached
	require.NoError(t, f.results.Save(context.Background(), &entity.ScrapeRecord{
		ID: "old", MobileNumber: "9876543210", Outcome: entity.OutcomeComplete, Result: sampleResult(),
	}))

	got, err := f.uc.Latest(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Same(t, cached, got)
}

func TestLatestFallsBackToStore(t *testing.T) {
	f := newDashboardFixture(portal.Report{}, sampleResult())
	f.cache.getErr = errors.New("redis down")
	stored := sampleResult()
	require.NoError(t, f.results.Save(context.Background(), &entity.ScrapeRecord{
		ID: "r1", MobileNumber: "9876543210", Outcome: entity.OutcomeComplete, Result: stored,
	}))

	got, err := f.uc.Latest(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Same(t, stored, got)
}

func TestLatestIsPerIdentity(t *testing.T) {
	f := newDashboardFixture(portal.Report{}, sampleResult())
	_, err := f.uc.Refresh(context.Background(), "9876543210")
	require.NoError(t, err)

	_, err = f.uc.Latest(context.Background(), "9111111111")
	assert.ErrorIs(t, err, ErrNoDashboardData)

	got, err := f.uc.Latest(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.NotNil(t, got.Attendance.OverallPercentage)
}

func TestLatestWithoutCache(t *testing.T) {
	results := &fakeResults{}
	uc := NewDashboard(&fakeScraper{}, fakeCredentials{}, results, nil, DashboardConfig{}, nil)

	_, err := uc.Latest(context.Background(), "9876543210")
	assert.ErrorIs(t, err, ErrNoDashboardData)

	_, err = uc.Latest(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidMobile)
}
