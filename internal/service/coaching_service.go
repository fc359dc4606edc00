package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/errors"
	"github.com/windfall/phonoecho_service/internal/logger"
	"github.com/windfall/phonoecho_service/internal/observe"
	"github.com/windfall/phonoecho_service/internal/repository"
)

// EventPublisher receives an event after every processed attempt.
// client.PubSubClient implements it.
type EventPublisher interface {
	PublishWithAttributes(ctx context.Context, data interface{}, attrs map[string]string) error
}

// ProcessOptions selects how text feedback is produced for an attempt.
type ProcessOptions struct {
	// UseLLM asks for generated feedback instead of the formatted
	// structured feedback.
	UseLLM   bool
	Provider string
}

// AttemptResult is everything produced for one processed attempt.
type AttemptResult struct {
	AttemptID      string                  `json:"attempt_id"`
	UserID         string                  `json:"user_id"`
	LessonID       string                  `json:"lesson_id"`
	NewSeries      bool                    `json:"new_series"`
	Feedback       string                  `json:"feedback"`
	FeedbackSource capt.FeedbackSource     `json:"feedback_source"`
	Structured     capt.StructuredFeedback `json:"structured_feedback"`
	GuidanceCard   *capt.GuidanceCard      `json:"guidance_card"`
	Summary        *capt.AttemptSummary    `json:"attempt_summary"`
}

// Progress compares the latest attempt of a series with its guidance card.
// The attempt fields are nil when no attempt summary is available.
type Progress struct {
	LessonID      string   `json:"lesson_id"`
	TargetText    string   `json:"target_text"`
	InitialScore  float64  `json:"initial_score"`
	CurrentScore  *float64 `json:"current_score,omitempty"`
	AttemptNumber *int     `json:"attempt_number,omitempty"`
	Improvement   *float64 `json:"improvement,omitempty"`
	ImprovedWords *int     `json:"improved_words,omitempty"`
	CurrentErrors *int     `json:"current_errors,omitempty"`
	// CriticalErrors counts current word errors below the critical threshold.
	CriticalErrors   *int  `json:"critical_errors,omitempty"`
	ProsodyNeedsWork *bool `json:"prosody_needs_work,omitempty"`
}

// AttemptEvent is published after an attempt summary has been persisted.
type AttemptEvent struct {
	AttemptID     string    `json:"attempt_id"`
	UserID        string    `json:"user_id"`
	LessonID      string    `json:"lesson_id"`
	AttemptNumber int       `json:"attempt_number"`
	OverallScore  float64   `json:"overall_score"`
	InitialScore  float64   `json:"initial_score"`
	NewSeries     bool      `json:"new_series"`
	ImprovedWords []string  `json:"improved_words"`
	OmittedWords  []string  `json:"omitted_words"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// lessonState is the in-memory view of one practice series.
type lessonState struct {
	mu     sync.Mutex
	loaded bool
	card   *capt.GuidanceCard
	last   *capt.AttemptSummary
}

// CoachingService runs attempts through the guidance card and attempt summary
// builders and keeps the per-series baseline. Attempts for the same
// (user, lesson) are serialized; different series run independently.
type CoachingService struct {
	repo    repository.CoachingRepository
	cfg     capt.FeedbackConfig
	ai      *AIService
	events  EventPublisher
	metrics *observe.Metrics
	log     zerolog.Logger

	mu      sync.Mutex
	lessons map[capt.LessonKey]*lessonState
	now     func() time.Time
}

// NewCoachingService creates a new CoachingService. ai, events and metrics
// may be nil.
func NewCoachingService(
	repo repository.CoachingRepository,
	cfg capt.FeedbackConfig,
	ai *AIService,
	events EventPublisher,
	metrics *observe.Metrics,
	log zerolog.Logger,
) *CoachingService {
	return &CoachingService{
		repo:    repo,
		cfg:     cfg,
		ai:      ai,
		events:  events,
		metrics: metrics,
		log:     log,
		lessons: make(map[capt.LessonKey]*lessonState),
		now:     time.Now,
	}
}

// FeedbackConfig returns the thresholds and caps in use.
func (s *CoachingService) FeedbackConfig() capt.FeedbackConfig {
	return s.cfg
}

func (s *CoachingService) state(key capt.LessonKey) *lessonState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.lessons[key]
	if !ok {
		st = &lessonState{}
		s.lessons[key] = st
	}
	return st
}

// load reads the persisted card and latest summary the first time a series
// is used. Missing and corrupt documents both leave the state empty.
// Callers hold st.mu.
func (s *CoachingService) load(ctx context.Context, key capt.LessonKey, st *lessonState) {
	if st.loaded {
		return
	}
	log := logger.ForLesson(s.log, key.UserID, key.LessonID)

	card, err := s.repo.GetGuidanceCard(ctx, key)
	switch {
	case err == nil:
		st.card = card
	case errors.Is(err, repository.ErrNotFound):
		log.Debug().Msg("No stored guidance card")
	case repository.IsMissing(err):
		log.Warn().Err(err).Msg("Stored guidance card is corrupt, starting a new series")
	default:
		log.Warn().Err(err).Msg("Failed to load guidance card, starting a new series")
	}

	if st.card != nil {
		last, err := s.repo.GetLatestAttemptSummary(ctx, key)
		switch {
		case err == nil:
			st.last = last
		case errors.Is(err, repository.ErrNotFound):
		case repository.IsMissing(err):
			log.Warn().Err(err).Msg("Stored attempt summary is corrupt")
		default:
			log.Warn().Err(err).Msg("Failed to load latest attempt summary")
		}
	}
	st.loaded = true
}

func validateKey(key capt.LessonKey) error {
	if err := key.Validate(); err != nil {
		return errors.Validation(err.Error())
	}
	return nil
}

// ProcessAttempt turns one assessment result into feedback. The first
// attempt of a series, or any attempt while no guidance card is available,
// builds and stores a new card and is recorded as attempt 1 with the card as
// its only baseline. Later attempts are compared with the last summary.
func (s *CoachingService) ProcessAttempt(ctx context.Context, key capt.LessonKey, raw *capt.RawAssessment, attemptNumber int, opts ProcessOptions) (result *AttemptResult, err error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if attemptNumber < 1 {
		return nil, errors.Validation("attempt_number must be at least 1")
	}

	log := logger.ForLesson(s.log, key.UserID, key.LessonID)
	path := observe.PathAttempt
	defer func() { s.metrics.RecordAttempt(ctx, path, err) }()

	st := s.state(key)
	st.mu.Lock()
	defer st.mu.Unlock()
	s.load(ctx, key, st)

	n, err := capt.Normalize(raw, s.cfg)
	if err != nil {
		return nil, err
	}

	result = &AttemptResult{
		AttemptID: uuid.New().String(),
		UserID:    key.UserID,
		LessonID:  key.LessonID,
	}

	var summary *capt.AttemptSummary
	if st.card == nil || attemptNumber == 1 {
		path = observe.PathGuidance
		card := capt.NewGuidanceCard(n, s.cfg)
		if err := s.repo.SaveGuidanceCard(ctx, key, card); err != nil {
			return nil, errors.Storage("failed to save guidance card", err)
		}
		st.card = card
		st.last = nil
		result.NewSeries = true
		summary = capt.NewAttemptSummary(n, 1, card, nil, s.cfg)
	} else {
		summary = capt.NewAttemptSummary(n, attemptNumber, st.card, st.last, s.cfg)
	}

	if err := s.repo.SaveAttemptSummary(ctx, key, summary); err != nil {
		return nil, errors.Storage("failed to save attempt summary", err)
	}
	st.last = summary

	result.GuidanceCard = st.card
	result.Summary = summary
	result.Structured = capt.NewStructuredFeedback(st.card, summary, s.cfg)
	s.composeFeedback(ctx, log, result, opts)

	log.Info().
		Str("attempt_id", result.AttemptID).
		Int("attempt", summary.AttemptNumber).
		Float64("overall", summary.Scores.Overall).
		Bool("new_series", result.NewSeries).
		Str("feedback_source", string(result.FeedbackSource)).
		Msg("Attempt processed")

	s.publish(ctx, log, result)
	return result, nil
}

func (s *CoachingService) composeFeedback(ctx context.Context, log zerolog.Logger, result *AttemptResult, opts ProcessOptions) {
	if opts.UseLLM {
		gen, err := s.ai.Generator(opts.Provider)
		if err == nil {
			fb := capt.ComposeFeedback(ctx, result.GuidanceCard, result.Summary, gen, s.cfg)
			if fb.Err != nil {
				log.Warn().Err(fb.Err).Str("provider", gen.Provider()).Msg("Feedback generation failed, using fallback")
			}
			result.Feedback, result.FeedbackSource = fb.Text, fb.Source
			s.metrics.RecordFeedback(ctx, string(fb.Source))
			return
		}
		log.Warn().Err(err).Msg("LLM feedback requested but unavailable")
	}
	result.Feedback = result.Structured.Format()
	result.FeedbackSource = capt.SourceStructured
	s.metrics.RecordFeedback(ctx, string(capt.SourceStructured))
}

func (s *CoachingService) publish(ctx context.Context, log zerolog.Logger, result *AttemptResult) {
	if s.events == nil {
		return
	}
	event := AttemptEvent{
		AttemptID:     result.AttemptID,
		UserID:        result.UserID,
		LessonID:      result.LessonID,
		AttemptNumber: result.Summary.AttemptNumber,
		OverallScore:  result.Summary.Scores.Overall,
		InitialScore:  result.GuidanceCard.Reference.Overall,
		NewSeries:     result.NewSeries,
		ImprovedWords: result.Summary.ImprovedWords,
		OmittedWords:  result.Summary.OmittedWords,
		ProcessedAt:   s.now().UTC(),
	}
	attrs := map[string]string{
		"event":          "attempt.processed",
		"user_id":        result.UserID,
		"lesson_id":      result.LessonID,
		"attempt_number": strconv.Itoa(event.AttemptNumber),
	}
	if err := s.events.PublishWithAttributes(ctx, event, attrs); err != nil {
		log.Warn().Err(err).Str("attempt_id", result.AttemptID).Msg("Failed to publish attempt event")
	}
}

// ResetLesson forgets the in-memory card and last summary of a series. The
// stored documents are kept, and the next attempt starts a new series.
func (s *CoachingService) ResetLesson(key capt.LessonKey) error {
	if err := validateKey(key); err != nil {
		return err
	}
	st := s.state(key)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.card = nil
	st.last = nil
	st.loaded = true
	log := logger.ForLesson(s.log, key.UserID, key.LessonID)
	log.Info().Msg("Lesson reset")
	return nil
}

// ProgressSummary reports the progress of a series. It fails with NOT_FOUND
// before the first attempt.
func (s *CoachingService) ProgressSummary(ctx context.Context, key capt.LessonKey) (*Progress, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	st := s.state(key)
	st.mu.Lock()
	defer st.mu.Unlock()
	s.load(ctx, key, st)

	if st.card == nil {
		return nil, errors.NotFound("progress for lesson " + key.LessonID)
	}
	p := &Progress{
		LessonID:     key.LessonID,
		TargetText:   st.card.TargetText,
		InitialScore: st.card.Reference.Overall,
	}
	if last := st.last; last != nil {
		current := last.Scores.Overall
		improvement := current - st.card.Reference.Overall
		attempt := last.AttemptNumber
		improved := len(last.ImprovedWords)
		errs := len(last.CurrentWordErrors)
		critical := 0
		for _, w := range last.CurrentWordErrors {
			if w.Score != nil && s.cfg.IsCriticalWord(*w.Score) {
				critical++
			}
		}
		prosody := s.cfg.IsProsodyIssue(last.Scores.Prosody)
		p.CurrentScore = &current
		p.Improvement = &improvement
		p.AttemptNumber = &attempt
		p.ImprovedWords = &improved
		p.CurrentErrors = &errs
		p.CriticalErrors = &critical
		p.ProsodyNeedsWork = &prosody
	}
	return p, nil
}

// Snapshot returns the current card and last summary of a series.
func (s *CoachingService) Snapshot(ctx context.Context, key capt.LessonKey) (*capt.GuidanceCard, *capt.AttemptSummary, error) {
	if err := validateKey(key); err != nil {
		return nil, nil, err
	}
	st := s.state(key)
	st.mu.Lock()
	defer st.mu.Unlock()
	s.load(ctx, key, st)

	if st.card == nil || st.last == nil {
		return nil, nil, errors.NotFound("attempt for lesson " + key.LessonID)
	}
	return st.card, st.last, nil
}

// StreamFeedback streams generated feedback for the latest attempt of a
// series through onChunk. The series lock is not held while streaming.
func (s *CoachingService) StreamFeedback(ctx context.Context, key capt.LessonKey, provider string, onChunk func(string) error) (capt.Feedback, error) {
	card, last, err := s.Snapshot(ctx, key)
	if err != nil {
		return capt.Feedback{}, err
	}
	gen, err := s.ai.Generator(provider)
	if err != nil {
		return capt.Feedback{}, err
	}

	fb := capt.StreamFeedback(ctx, card, last, gen, s.cfg, onChunk)
	if fb.Err != nil {
		log := logger.ForLesson(s.log, key.UserID, key.LessonID)
		log.Warn().Err(fb.Err).
			Str("provider", gen.Provider()).
			Str("source", string(fb.Source)).
			Msg("Feedback stream ended with error")
	}
	s.metrics.RecordFeedback(ctx, string(fb.Source))
	return fb, nil
}
