package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/user/campus-assistant/internal/entity"
	"github.com/user/campus-assistant/internal/repository"
)

type ChatRecordRepo struct {
	db *sql.DB
}

func (r *ChatRecordRepo) Insert(ctx context.Context, rec *entity.ChatRecord) error {
	const stmt = `
INSERT INTO chat_history (id, user_id, query, response, timestamp, rating, rated_at)
VALUES (?, ?, ?, ?, ?, ?, ?);
`
	var rating, ratedAt sql.NullInt64
	if rec.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*rec.Rating), Valid: true}
	}
	if rec.RatedAt != nil {
		ratedAt = sql.NullInt64{Int64: rec.RatedAt.UnixNano(), Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, stmt,
		rec.ID,
		rec.UserID,
		rec.Query,
		rec.Response,
		rec.Timestamp.UnixNano(),
		rating,
		ratedAt,
	); err != nil {
		return fmt.Errorf("insert chat record: %w", err)
	}
	return nil
}

func (r *ChatRecordRepo) ListByUser(ctx context.Context, userID string, newestFirst bool) ([]*entity.ChatRecord, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	query := `
SELECT id, user_id, query, response, timestamp, rating, rated_at
FROM chat_history
WHERE user_id = ?
ORDER BY timestamp ` + order + `, rowid ` + order + `;
`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	records := []*entity.ChatRecord{}
	for rows.Next() {
		var (
			rec       entity.ChatRecord
			timestamp int64
			rating    sql.NullInt64
			ratedAt   sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Query, &rec.Response, &timestamp, &rating, &ratedAt); err != nil {
			return nil, fmt.Errorf("scan chat record: %w", err)
		}
		rec.Timestamp = time.Unix(0, timestamp).UTC()
		if rating.Valid {
			v := int(rating.Int64)
			rec.Rating = &v
		}
		if ratedAt.Valid {
			t := time.Unix(0, ratedAt.Int64).UTC()
			rec.RatedAt = &t
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (r *ChatRecordRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_history WHERE user_id = ?;`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete chat history: %w", err)
	}
	return res.RowsAffected()
}

func (r *ChatRecordRepo) Rate(ctx context.Context, userID, id string, rating int, ratedAt time.Time) error {
	const stmt = `
UPDATE chat_history SET rating = ?, rated_at = ?
WHERE id = ? AND user_id = ?;
`
	res, err := r.db.ExecContext(ctx, stmt, rating, ratedAt.UnixNano(), id, userID)
	if err != nil {
		return fmt.Errorf("rate chat record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
