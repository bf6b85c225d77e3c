package repository

import (
	"context"
	"time"

	"github.com/user/campus-assistant/internal/entity"
)

// ChatRepository stores chat exchanges per user.
type ChatRepository interface {
	Insert(ctx context.Context, rec *entity.ChatRecord) error
	// ListByUser returns the user's records ordered by timestamp, newest first
	// when newestFirst is set.
	ListByUser(ctx context.Context, userID string, newestFirst bool) ([]*entity.ChatRecord, error)
	// DeleteByUser removes every record of the user and reports how many were removed.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	// Rate sets the rating of a record owned by userID. It returns ErrNotFound
	// when no such record exists.
	Rate(ctx context.Context, userID, id string, rating int, ratedAt time.Time) error
}
