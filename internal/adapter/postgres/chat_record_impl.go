package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/campus-assistant/internal/entity"
	"github.com/user/campus-assistant/internal/repository"
)

// ChatRecordRepoImpl provides a concrete implementation for the ChatRepository interface using PostgreSQL.
type ChatRecordRepoImpl struct {
	db *pgxpool.Pool
}

// NewChatRecordRepo creates a new instance of ChatRecordRepoImpl.
func NewChatRecordRepo(db *pgxpool.Pool) *ChatRecordRepoImpl {
	return &ChatRecordRepoImpl{db: db}
}

func (r *ChatRecordRepoImpl) Insert(ctx context.Context, rec *entity.ChatRecord) error {
	query := `
		INSERT INTO chat_history (id, user_id, query, response, timestamp, rating, rated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Query,
		rec.Response,
		rec.Timestamp,
		rec.Rating,
		rec.RatedAt,
	)
	return err
}

// ListByUser retrieves every record of a user ordered by timestamp.
func (r *ChatRecordRepoImpl) ListByUser(ctx context.Context, userID string, newestFirst bool) ([]*entity.ChatRecord, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	query := `
		SELECT id, user_id, query, response, timestamp, rating, rated_at
		FROM chat_history
		WHERE user_id = $1
		ORDER BY timestamp ` + order + `;
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*entity.ChatRecord{}
	for rows.Next() {
		var rec entity.ChatRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Query,
			&rec.Response,
			&rec.Timestamp,
			&rec.Rating,
			&rec.RatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// DeleteByUser removes the user's chat history.
func (r *ChatRecordRepoImpl) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM chat_history WHERE user_id = $1;`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Rate sets the rating of one of the user's records.
func (r *ChatRecordRepoImpl) Rate(ctx context.Context, userID, id string, rating int, ratedAt time.Time) error {
	query := `
		UPDATE chat_history
		SET rating = $1, rated_at = $2
		WHERE id = $3 AND user_id = $4;
	`
	tag, err := r.db.Exec(ctx, query, rating, ratedAt, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
