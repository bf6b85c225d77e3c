package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/user/campus-assistant/internal/entity"
	"github.com/user/campus-assistant/internal/repository"
)

type ScrapeResultRepo struct {
	db *sql.DB
}

func (r *ScrapeResultRepo) Save(ctx context.Context, rec *entity.ScrapeRecord) error {
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("encode scrape result: %w", err)
	}
	const stmt = `
INSERT INTO scrape_results (id, mobile_number, outcome, result, created_at)
VALUES (?, ?, ?, ?, ?);
`
	if _, err := r.db.ExecContext(ctx, stmt,
		rec.ID,
		rec.MobileNumber,
		rec.Outcome,
		string(resultJSON),
		rec.CreatedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("insert scrape result: %w", err)
	}
	return nil
}

func (r *ScrapeResultRepo) FindLatest(ctx context.Context, mobileNumber string) (*entity.ScrapeRecord, error) {
	const query = `
SELECT id, mobile_number, outcome, result, created_at
FROM scrape_results
WHERE mobile_number = ? AND outcome <> 'login_failed'
ORDER BY created_at DESC
LIMIT 1;
`
	var (
		rec        entity.ScrapeRecord
		resultJSON string
		createdAt  int64
	)
	err := r.db.QueryRowContext(ctx, query, mobileNumber).Scan(
		&rec.ID,
		&rec.MobileNumber,
		&rec.Outcome,
		&resultJSON,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest scrape result: %w", err)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()

	rec.Result = &entity.ScrapeResult{}
	if err := json.Unmarshal([]byte(resultJSON), rec.Result); err != nil {
		return nil, fmt.Errorf("decode scrape result %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func (r *ScrapeResultRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
