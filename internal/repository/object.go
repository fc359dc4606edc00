package repository

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/client"
)

const jsonContentType = "application/json"

// ObjectRepository stores documents in a bucket (R2 or GCS) using the same
// names as FileRepository under {prefix}/{user}/.
type ObjectRepository struct {
	store  client.ObjectStore
	prefix string
}

// NewObjectRepository creates a repository on top of store.
func NewObjectRepository(store client.ObjectStore, prefix string) *ObjectRepository {
	return &ObjectRepository{store: store, prefix: prefix}
}

func (r *ObjectRepository) objectKey(key capt.LessonKey, name string) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	return path.Join(r.prefix, key.UserID, name), nil
}

func (r *ObjectRepository) put(ctx context.Context, key capt.LessonKey, name string, v any) error {
	k, err := r.objectKey(key, name)
	if err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, k, data, jsonContentType); err != nil {
		return fmt.Errorf("failed to store %s: %w", k, err)
	}
	return nil
}

func (r *ObjectRepository) get(ctx context.Context, key capt.LessonKey, name string) ([]byte, error) {
	k, err := r.objectKey(key, name)
	if err != nil {
		return nil, err
	}
	data, err := r.store.Get(ctx, k)
	if errors.Is(err, client.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", k, err)
	}
	return data, nil
}

func (r *ObjectRepository) SaveGuidanceCard(ctx context.Context, key capt.LessonKey, card *capt.GuidanceCard) error {
	return r.put(ctx, key, guidanceName(key), card)
}

func (r *ObjectRepository) GetGuidanceCard(ctx context.Context, key capt.LessonKey) (*capt.GuidanceCard, error) {
	data, err := r.get(ctx, key, guidanceName(key))
	if err != nil {
		return nil, err
	}
	return decodeCard(data)
}

func (r *ObjectRepository) SaveAttemptSummary(ctx context.Context, key capt.LessonKey, s *capt.AttemptSummary) error {
	if err := r.put(ctx, key, attemptName(key, s.AttemptNumber), s); err != nil {
		return err
	}
	return r.put(ctx, key, latestName(key), s)
}

func (r *ObjectRepository) GetLatestAttemptSummary(ctx context.Context, key capt.LessonKey) (*capt.AttemptSummary, error) {
	data, err := r.get(ctx, key, latestName(key))
	if err != nil {
		return nil, err
	}
	return decodeSummary(data)
}
