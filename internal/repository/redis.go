package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/client"
)

// latestField is the hash field that holds the most recent summary.
const latestField = "latest"

// RedisRepository keeps the card in a string key and the summaries in a
// hash keyed by attempt number. Every write refreshes the TTL.
type RedisRepository struct {
	rdb *client.RedisClient
	ttl time.Duration
}

// NewRedisRepository creates a new RedisRepository. A zero ttl keeps
// documents forever.
func NewRedisRepository(rdb *client.RedisClient, ttl time.Duration) *RedisRepository {
	return &RedisRepository{rdb: rdb, ttl: ttl}
}

func cardKey(key capt.LessonKey) string {
	return fmt.Sprintf("capt:%s:%s:guidance", key.UserID, key.LessonID)
}

func attemptsKey(key capt.LessonKey) string {
	return fmt.Sprintf("capt:%s:%s:attempts", key.UserID, key.LessonID)
}

func (r *RedisRepository) SaveGuidanceCard(ctx context.Context, key capt.LessonKey, card *capt.GuidanceCard) error {
	data, err := encode(card)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, cardKey(key), data, r.ttl); err != nil {
		return fmt.Errorf("failed to save guidance card: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetGuidanceCard(ctx context.Context, key capt.LessonKey) (*capt.GuidanceCard, error) {
	data, err := r.rdb.Get(ctx, cardKey(key))
	if errors.Is(err, client.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guidance card: %w", err)
	}
	return decodeCard(data)
}

func (r *RedisRepository) SaveAttemptSummary(ctx context.Context, key capt.LessonKey, s *capt.AttemptSummary) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	err = r.rdb.HSet(ctx, attemptsKey(key), r.ttl,
		strconv.Itoa(s.AttemptNumber), data,
		latestField, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save attempt summary: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetLatestAttemptSummary(ctx context.Context, key capt.LessonKey) (*capt.AttemptSummary, error) {
	fields, err := r.rdb.HGetAll(ctx, attemptsKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt summary: %w", err)
	}
	data, ok := fields[latestField]
	if !ok {
		return nil, ErrNotFound
	}
	return decodeSummary([]byte(data))
}
