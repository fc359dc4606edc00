package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/client"
)

// PostgresRepository stores documents as jsonb rows in the
// guidance_cards and attempt_summaries tables.
type PostgresRepository struct {
	db *client.PostgresClient
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *client.PostgresClient) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SaveGuidanceCard(ctx context.Context, key capt.LessonKey, card *capt.GuidanceCard) error {
	doc, err := encode(card)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO guidance_cards (user_id, lesson_id, document, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, lesson_id)
		DO UPDATE SET document = EXCLUDED.document, updated_at = now()`
	if _, err := r.db.Pool.Exec(ctx, query, key.UserID, key.LessonID, doc); err != nil {
		return fmt.Errorf("failed to save guidance card: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetGuidanceCard(ctx context.Context, key capt.LessonKey) (*capt.GuidanceCard, error) {
	query := `SELECT document FROM guidance_cards WHERE user_id = $1 AND lesson_id = $2`
	var doc []byte
	err := r.db.Pool.QueryRow(ctx, query, key.UserID, key.LessonID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guidance card: %w", err)
	}
	return decodeCard(doc)
}

func (r *PostgresRepository) SaveAttemptSummary(ctx context.Context, key capt.LessonKey, s *capt.AttemptSummary) error {
	doc, err := encode(s)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO attempt_summaries (user_id, lesson_id, attempt_number, overall_score, document, updated_at)
		VALUES ($1, $2, $3, $4, $5, clock_timestamp())
		ON CONFLICT (user_id, lesson_id, attempt_number)
		DO UPDATE SET overall_score = EXCLUDED.overall_score, document = EXCLUDED.document, updated_at = clock_timestamp()`
	if _, err := r.db.Pool.Exec(ctx, query, key.UserID, key.LessonID, s.AttemptNumber, s.Scores.Overall, doc); err != nil {
		return fmt.Errorf("failed to save attempt summary: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetLatestAttemptSummary(ctx context.Context, key capt.LessonKey) (*capt.AttemptSummary, error) {
	query := `
		SELECT document FROM attempt_summaries
		WHERE user_id = $1 AND lesson_id = $2
		ORDER BY updated_at DESC, attempt_number DESC
		LIMIT 1`
	var doc []byte
	err := r.db.Pool.QueryRow(ctx, query, key.UserID, key.LessonID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt summary: %w", err)
	}
	return decodeSummary(doc)
}
