package http

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/errors"
	"github.com/windfall/phonoecho_service/internal/middleware"
	"github.com/windfall/phonoecho_service/internal/service"
	"github.com/windfall/phonoecho_service/pkg/response"
)

const (
	// maxAudioSize bounds multipart uploads.
	maxAudioSize = 10 << 20
	maxJSONBody  = 1 << 20
)

// CoachingHandler handles the pronunciation coaching endpoints.
type CoachingHandler struct {
	log      zerolog.Logger
	coaching *service.CoachingService
	speech   *service.SpeechService
}

// NewCoachingHandler creates a new CoachingHandler. speech may be nil, in
// which case audio uploads are rejected.
func NewCoachingHandler(log zerolog.Logger, coaching *service.CoachingService, speech *service.SpeechService) *CoachingHandler {
	return &CoachingHandler{
		log:      log,
		coaching: coaching,
		speech:   speech,
	}
}

func lessonKey(r *http.Request) capt.LessonKey {
	return capt.LessonKey{
		UserID:   middleware.GetUserID(r.Context()),
		LessonID: chi.URLParam(r, "lessonID"),
	}
}

// AttemptRequest is the body of POST /lessons/{lessonID}/attempts.
type AttemptRequest struct {
	AttemptNumber int             `json:"attempt_number"`
	Assessment    json.RawMessage `json:"assessment"`
	UseLLM        bool            `json:"use_llm"`
	Provider      string          `json:"provider"`
}

// SubmitAttempt handles POST /api/v1/lessons/{lessonID}/attempts
func (h *CoachingHandler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var req AttemptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.AppError(w, err)
		return
	}
	if len(req.Assessment) == 0 {
		response.AppError(w, errors.Validation("assessment is required"))
		return
	}

	// A malformed assessment is the caller's fault here, not an upstream one.
	raw, err := capt.ParseAssessment(req.Assessment)
	if err != nil {
		response.AppError(w, clientAssessmentError(err))
		return
	}

	result, err := h.coaching.ProcessAttempt(r.Context(), lessonKey(r), raw, req.AttemptNumber, service.ProcessOptions{
		UseLLM:   req.UseLLM,
		Provider: req.Provider,
	})
	if err != nil {
		h.handleError(w, clientAssessmentError(err))
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// AudioAttemptResponse is an AttemptResult plus the archived recording key.
type AudioAttemptResponse struct {
	*service.AttemptResult
	AudioKey string `json:"audio_key,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

// SubmitAudio handles POST /api/v1/lessons/{lessonID}/attempts/audio
//
// Request: multipart/form-data with "audio", "reference_text",
// "attempt_number" and optional "use_llm" and "provider" fields.
func (h *CoachingHandler) SubmitAudio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.speech.Configured() {
		response.AppError(w, errors.New(errors.ErrAIService, "Azure Speech client not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioSize+1<<20)
	if err := r.ParseMultipartForm(maxAudioSize); err != nil {
		response.AppError(w, errors.Validation("failed to parse multipart form"))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		response.AppError(w, errors.Validation("audio is required"))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		response.AppError(w, errors.Validation("failed to read audio file"))
		return
	}

	attemptNumber, err := strconv.Atoi(r.FormValue("attempt_number"))
	if err != nil {
		response.AppError(w, errors.Validation("attempt_number must be an integer"))
		return
	}
	useLLM, _ := strconv.ParseBool(r.FormValue("use_llm"))

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}

	raw, err := h.speech.Assess(ctx, audio, contentType, r.FormValue("reference_text"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	key := lessonKey(r)
	result, err := h.coaching.ProcessAttempt(ctx, key, raw, attemptNumber, service.ProcessOptions{
		UseLLM:   useLLM,
		Provider: r.FormValue("provider"),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	resp := AudioAttemptResponse{AttemptResult: result}
	resp.AudioKey, err = h.speech.ArchiveAudio(ctx, key, result.AttemptID, audio, contentType)
	if err != nil {
		h.log.Warn().Err(err).Str("attempt_id", result.AttemptID).Msg("Failed to archive attempt audio")
	}
	resp.AudioURL = h.speech.AudioURL(resp.AudioKey)

	response.JSON(w, http.StatusOK, resp)
}

// Progress handles GET /api/v1/lessons/{lessonID}/progress
func (h *CoachingHandler) Progress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.coaching.ProgressSummary(r.Context(), lessonKey(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, progress)
}

// Recordings handles GET /api/v1/lessons/{lessonID}/recordings
func (h *CoachingHandler) Recordings(w http.ResponseWriter, r *http.Request) {
	recordings, err := h.speech.Recordings(r.Context(), lessonKey(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"recordings": recordings,
	})
}

// Reset handles POST /api/v1/lessons/{lessonID}/reset
func (h *CoachingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.coaching.ResetLesson(lessonKey(r)); err != nil {
		h.handleError(w, err)
		return
	}
	response.NoContent(w)
}

// PromptRequest is the body of POST /feedback/prompt.
type PromptRequest struct {
	GuidanceCard   *capt.GuidanceCard   `json:"guidance_card"`
	AttemptSummary *capt.AttemptSummary `json:"attempt_summary"`
	Language       string               `json:"language"`
}

// Prompt handles POST /api/v1/feedback/prompt and returns the assembled
// feedback prompt without calling a model.
func (h *CoachingHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.AppError(w, err)
		return
	}
	if req.GuidanceCard == nil || req.AttemptSummary == nil {
		response.AppError(w, errors.Validation("guidance_card and attempt_summary are required"))
		return
	}

	cfg := h.coaching.FeedbackConfig()
	if req.Language != "" {
		cfg.FeedbackLanguage = req.Language
	}
	prompt := capt.BuildPrompt(req.GuidanceCard, req.AttemptSummary, cfg)

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"prompt":      prompt.Format(),
		"max_tokens":  prompt.MaxTokens,
		"temperature": prompt.Temperature,
		"language":    prompt.Language,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.Validation("request body too large")
		}
		return errors.Validation("invalid request body")
	}
	return nil
}

func clientAssessmentError(err error) error {
	if appErr, ok := errors.As(err); ok && appErr.Code == errors.ErrMalformedAssessment {
		return errors.Wrap(errors.ErrValidation, appErr.Message, err)
	}
	return err
}

func (h *CoachingHandler) handleError(w http.ResponseWriter, err error) {
	if _, ok := errors.As(err); !ok {
		h.log.Error().Err(err).Msg("Unhandled coaching error")
	}
	response.AppError(w, err)
}
