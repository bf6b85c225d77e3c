package repository

import (
	"context"
	"time"

	"github.com/user/campus-assistant/internal/entity"
)

// ScrapeResultRepository persists one record per scrape attempt.
type ScrapeResultRepository interface {
	// Save appends a scrape record.
	Save(ctx context.Context, rec *entity.ScrapeRecord) error
	// FindLatest returns the newest record for a mobile number whose scrape got
	// past login, or ErrNotFound.
	FindLatest(ctx context.Context, mobileNumber string) (*entity.ScrapeRecord, error)
	Ping(ctx context.Context) error
}

// LatestResultCache keeps the most recent result per identity.
type LatestResultCache interface {
	Put(ctx context.Context, mobileNumber string, result *entity.ScrapeResult, ttl time.Duration) error
	// Get returns ErrNotFound on a cache miss.
	Get(ctx context.Context, mobileNumber string) (*entity.ScrapeResult, error)
	Ping(ctx context.Context) error
}

// CredentialStore supplies the portal password paired with a mobile number.
type CredentialStore interface {
	// PasswordFor returns ErrNotFound when no password is configured for the number.
	PasswordFor(ctx context.Context, mobileNumber string) (string, error)
}

// ArtifactSink receives debugging artifacts. Implementations must never block
// the caller; artifacts may be dropped under pressure.
type ArtifactSink interface {
	SaveScreenshot(name string, png []byte)
	SaveJSON(name string, v any)
}
