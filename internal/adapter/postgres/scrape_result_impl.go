package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/campus-assistant/internal/entity"
	"github.com/user/campus-assistant/internal/repository"
)

// ScrapeResultRepoImpl provides a concrete implementation for the ScrapeResultRepository interface using PostgreSQL.
type ScrapeResultRepoImpl struct {
	db *pgxpool.Pool
}

// NewScrapeResultRepo creates a new instance of ScrapeResultRepoImpl.
func NewScrapeResultRepo(db *pgxpool.Pool) *ScrapeResultRepoImpl {
	return &ScrapeResultRepoImpl{db: db}
}

// Save appends one scrape record. Records are never updated.
func (r *ScrapeResultRepoImpl) Save(ctx context.Context, rec *entity.ScrapeRecord) error {
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("encode scrape result: %w", err)
	}

	query := `
		INSERT INTO scrape_results (id, mobile_number, outcome, result, created_at)
		VALUES ($1, $2, $3, $4, $5);
	`
	_, err = r.db.Exec(ctx, query,
		rec.ID,
		rec.MobileNumber,
		rec.Outcome,
		resultJSON,
		rec.CreatedAt,
	)
	return err
}

// FindLatest retrieves the newest scrape record for a mobile number that got
// past login.
func (r *ScrapeResultRepoImpl) FindLatest(ctx context.Context, mobileNumber string) (*entity.ScrapeRecord, error) {
	query := `
		SELECT id, mobile_number, outcome, result, created_at
		FROM scrape_results
		WHERE mobile_number = $1 AND outcome <> 'login_failed'
		ORDER BY created_at DESC
		LIMIT 1;
	`
	var rec entity.ScrapeRecord
	var resultJSON []byte

	err := r.db.QueryRow(ctx, query, mobileNumber).Scan(
		&rec.ID,
		&rec.MobileNumber,
		&rec.Outcome,
		&resultJSON,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Result = &entity.ScrapeResult{}
	if err := json.Unmarshal(resultJSON, rec.Result); err != nil {
		return nil, fmt.Errorf("decode scrape result %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func (r *ScrapeResultRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
