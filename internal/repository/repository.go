package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/windfall/phonoecho_service/internal/capt"
)

// CoachingRepository persists the guidance card and attempt summaries of
// each practice series. Documents use the JSON layout of the capt types.
type CoachingRepository interface {
	SaveGuidanceCard(ctx context.Context, key capt.LessonKey, card *capt.GuidanceCard) error
	// GetGuidanceCard returns ErrNotFound when no card was saved and an
	// error wrapping ErrCorrupt when the stored document cannot be decoded.
	GetGuidanceCard(ctx context.Context, key capt.LessonKey) (*capt.GuidanceCard, error)

	// SaveAttemptSummary stores s under its attempt number, replacing any
	// earlier summary with the same number, and makes it the latest.
	SaveAttemptSummary(ctx context.Context, key capt.LessonKey, s *capt.AttemptSummary) error
	// GetLatestAttemptSummary returns the most recently saved summary, with
	// the same error contract as GetGuidanceCard.
	GetLatestAttemptSummary(ctx context.Context, key capt.LessonKey) (*capt.AttemptSummary, error)
}

// Common repository errors
var (
	ErrNotFound = &RepositoryError{Code: "NOT_FOUND", Message: "document not found"}
	ErrCorrupt  = &RepositoryError{Code: "CORRUPT", Message: "document cannot be decoded"}
)

// RepositoryError represents a repository error.
type RepositoryError struct {
	Code    string
	Message string
}

func (e *RepositoryError) Error() string {
	return e.Code + ": " + e.Message
}

// Document names shared by the file and object backends.
func guidanceName(key capt.LessonKey) string {
	return fmt.Sprintf("lesson_%s_guidance.json", key.LessonID)
}

func attemptName(key capt.LessonKey, n int) string {
	return fmt.Sprintf("lesson_%s_attempt_%d.json", key.LessonID, n)
}

func latestName(key capt.LessonKey) string {
	return fmt.Sprintf("lesson_%s_attempt_latest.json", key.LessonID)
}

func encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func decodeCard(data []byte) (*capt.GuidanceCard, error) {
	var card capt.GuidanceCard
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("%w: guidance card: %v", ErrCorrupt, err)
	}
	return &card, nil
}

func decodeSummary(data []byte) (*capt.AttemptSummary, error) {
	var s capt.AttemptSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: attempt summary: %v", ErrCorrupt, err)
	}
	return &s, nil
}

// IsMissing reports whether err means there is no usable stored document,
// either because none was saved or because it is corrupt.
func IsMissing(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorrupt)
}
