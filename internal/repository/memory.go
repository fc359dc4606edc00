package repository

import (
	"context"
	"sync"

	"github.com/windfall/phonoecho_service/internal/capt"
)

// InMemoryRepository keeps encoded documents in process memory. Stored values
// are copies, so callers cannot mutate persisted state.
type InMemoryRepository struct {
	mu       sync.RWMutex
	cards    map[capt.LessonKey][]byte
	attempts map[capt.LessonKey]map[int][]byte
	latest   map[capt.LessonKey]int
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		cards:    make(map[capt.LessonKey][]byte),
		attempts: make(map[capt.LessonKey]map[int][]byte),
		latest:   make(map[capt.LessonKey]int),
	}
}

func (r *InMemoryRepository) SaveGuidanceCard(ctx context.Context, key capt.LessonKey, card *capt.GuidanceCard) error {
	data, err := encode(card)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[key] = data
	return nil
}

func (r *InMemoryRepository) GetGuidanceCard(ctx context.Context, key capt.LessonKey) (*capt.GuidanceCard, error) {
	r.mu.RLock()
	data, ok := r.cards[key]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeCard(data)
}

func (r *InMemoryRepository) SaveAttemptSummary(ctx context.Context, key capt.LessonKey, s *capt.AttemptSummary) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempts[key] == nil {
		r.attempts[key] = make(map[int][]byte)
	}
	r.attempts[key][s.AttemptNumber] = data
	r.latest[key] = s.AttemptNumber
	return nil
}

func (r *InMemoryRepository) GetLatestAttemptSummary(ctx context.Context, key capt.LessonKey) (*capt.AttemptSummary, error) {
	r.mu.RLock()
	n, ok := r.latest[key]
	data := r.attempts[key][n]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeSummary(data)
}
