package ws

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/errors"
	"github.com/windfall/phonoecho_service/internal/service"
)

// MessageType constants
const (
	TypePing          = "ping"
	TypePong          = "pong"
	TypeFeedback      = "feedback"
	TypeFeedbackChunk = "feedback_chunk"
	TypeFeedbackDone  = "feedback_done"
	TypeError         = "error"
)

// SendFunc delivers one encoded message to the client.
type SendFunc func(msg []byte) error

// FeedbackStreamer streams generated feedback for the latest attempt of a
// lesson. service.CoachingService implements it.
type FeedbackStreamer interface {
	StreamFeedback(ctx context.Context, key capt.LessonKey, provider string, onChunk func(string) error) (capt.Feedback, error)
}

var _ FeedbackStreamer = (*service.CoachingService)(nil)

// Handler handles WebSocket messages.
type Handler struct {
	log      zerolog.Logger
	feedback FeedbackStreamer
}

// NewHandler creates a new WebSocket handler.
func NewHandler(log zerolog.Logger, feedback FeedbackStreamer) *Handler {
	return &Handler{log: log, feedback: feedback}
}

// Response represents a WebSocket response.
type Response struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Handle processes one incoming message from userID's connection. Replies
// go through send; a returned error means send itself failed.
func (h *Handler) Handle(ctx context.Context, clientID, userID, msgType string, payload json.RawMessage, send SendFunc) error {
	h.log.Debug().
		Str("client_id", clientID).
		Str("type", msgType).
		Msg("Handling WebSocket message")

	switch msgType {
	case TypePing:
		return h.reply(send, TypePong, map[string]string{"message": "pong"})

	case TypeFeedback:
		return h.handleFeedback(ctx, clientID, userID, payload, send)

	default:
		return h.errorReply(send, "unknown message type: "+msgType)
	}
}

// FeedbackPayload asks for streamed feedback on the latest attempt.
type FeedbackPayload struct {
	LessonID string `json:"lesson_id"`
	Provider string `json:"provider"`
}

// ChunkPayload carries one piece of streamed feedback.
type ChunkPayload struct {
	LessonID string `json:"lesson_id"`
	Text     string `json:"text"`
}

// DonePayload closes a feedback stream with the complete text.
type DonePayload struct {
	LessonID string              `json:"lesson_id"`
	Source   capt.FeedbackSource `json:"source"`
	Feedback string              `json:"feedback"`
}

func (h *Handler) handleFeedback(ctx context.Context, clientID, userID string, payload json.RawMessage, send SendFunc) error {
	var req FeedbackPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.errorReply(send, "invalid feedback payload")
	}

	key := capt.LessonKey{UserID: userID, LessonID: req.LessonID}
	fb, err := h.feedback.StreamFeedback(ctx, key, req.Provider, func(chunk string) error {
		return h.reply(send, TypeFeedbackChunk, ChunkPayload{LessonID: req.LessonID, Text: chunk})
	})
	if err != nil {
		h.log.Warn().Err(err).Str("client_id", clientID).Str("lesson_id", req.LessonID).Msg("Feedback stream rejected")
		if appErr, ok := errors.As(err); ok {
			return h.errorReply(send, appErr.Message)
		}
		return h.errorReply(send, "failed to stream feedback")
	}

	return h.reply(send, TypeFeedbackDone, DonePayload{
		LessonID: req.LessonID,
		Source:   fb.Source,
		Feedback: fb.Text,
	})
}

func (h *Handler) reply(send SendFunc, msgType string, payload interface{}) error {
	msg, err := json.Marshal(Response{Type: msgType, Payload: payload})
	if err != nil {
		return err
	}
	return send(msg)
}

func (h *Handler) errorReply(send SendFunc, message string) error {
	return h.reply(send, TypeError, map[string]string{"error": message})
}
