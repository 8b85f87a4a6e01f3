package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"trainhub/internal/model"
)

// ScoreBoard handles the Redis ZSET of each learner's best percentage per module
type ScoreBoard interface {
	RecordBest(ctx context.Context, moduleID int, learner string, percentage int) error
	GetTop(ctx context.Context, moduleID int, limit int) ([]model.ScoreEntry, error)
	GetRank(ctx context.Context, moduleID int, learner string) (int64, error)
}

type scoreBoard struct {
	client *redis.Client
}

// NewScoreBoard creates a new score board
func NewScoreBoard(client *redis.Client) ScoreBoard {
	return &scoreBoard{
		client: client,
	}
}

func (c *scoreBoard) key(moduleID int) string {
	return fmt.Sprintf("module:%d:best", moduleID)
}

// RecordBest stores percentage unless the learner already has a higher one
func (c *scoreBoard) RecordBest(ctx context.Context, moduleID int, learner string, percentage int) error {
	return c.client.ZAddGT(ctx, c.key(moduleID), redis.Z{
		Score:  float64(percentage),
		Member: learner,
	}).Err()
}

func (c *scoreBoard) GetTop(ctx context.Context, moduleID int, limit int) ([]model.ScoreEntry, error) {
	if limit <= 0 {
		return []model.ScoreEntry{}, nil
	}
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(moduleID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.ScoreEntry, len(results))
	for i, z := range results {
		entries[i] = model.ScoreEntry{
			Learner:    z.Member.(string),
			Percentage: int(z.Score),
			Rank:       i + 1,
		}
	}
	return entries, nil
}

// GetRank returns the 1-indexed rank, -1 if the learner has no score
func (c *scoreBoard) GetRank(ctx context.Context, moduleID int, learner string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(moduleID), learner).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err
}
