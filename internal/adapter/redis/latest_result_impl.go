package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/campus-assistant/internal/entity"
	"github.com/user/campus-assistant/internal/repository"
	"github.com/user/campus-assistant/pkg/utils"
)

const latestResultPrefix = "dashboard:latest:"

// LatestResultRepoImpl keeps the most recent scrape result per mobile number in Redis.
type LatestResultRepoImpl struct {
	client *redis.Client
}

// NewLatestResultRepo creates a new instance of LatestResultRepoImpl.
func NewLatestResultRepo(client *redis.Client) *LatestResultRepoImpl {
	return &LatestResultRepoImpl{client: client}
}

// generateKey hashes the mobile number so raw numbers never appear in Redis.
func generateKey(mobileNumber string) string {
	return fmt.Sprintf("%s%s", latestResultPrefix, utils.HashMobile(mobileNumber))
}

// Put replaces the cached result for the mobile number. A zero ttl keeps it
// until overwritten.
func (r *LatestResultRepoImpl) Put(ctx context.Context, mobileNumber string, result *entity.ScrapeResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode scrape result: %w", err)
	}
	return r.client.Set(ctx, generateKey(mobileNumber), data, ttl).Err()
}

func (r *LatestResultRepoImpl) Get(ctx context.Context, mobileNumber string) (*entity.ScrapeResult, error) {
	data, err := r.client.Get(ctx, generateKey(mobileNumber)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var result entity.ScrapeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode cached scrape result: %w", err)
	}
	return &result, nil
}

func (r *LatestResultRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
