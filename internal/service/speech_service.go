package service

import (
	"context"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/errors"
	"github.com/windfall/phonoecho_service/internal/observe"
)

// PronunciationAssessor scores a recording against its reference text.
// client.AzureSpeechClient implements it.
type PronunciationAssessor interface {
	AssessPronunciation(ctx context.Context, audio []byte, contentType, referenceText, language string) ([]byte, error)
}

// AudioArchive stores raw recordings. client.CloudflareClient and
// client.StorageClient implement it.
type AudioArchive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// publicURLer is implemented by archives that serve objects publicly.
type publicURLer interface {
	ObjectURL(key string) string
}

// Recording is one archived attempt recording.
type Recording struct {
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
}

// SpeechService sends recordings for assessment and optionally archives them.
type SpeechService struct {
	assessor PronunciationAssessor
	archive  AudioArchive
	language string
	metrics  *observe.Metrics
}

// NewSpeechService creates a new Speech service. archive may be nil.
func NewSpeechService(assessor PronunciationAssessor, archive AudioArchive, language string, metrics *observe.Metrics) *SpeechService {
	return &SpeechService{
		assessor: assessor,
		archive:  archive,
		language: language,
		metrics:  metrics,
	}
}

// Configured reports whether recordings can be assessed.
func (s *SpeechService) Configured() bool {
	return s != nil && s.assessor != nil
}

// Assess scores audio against referenceText and decodes the result.
func (s *SpeechService) Assess(ctx context.Context, audio []byte, contentType, referenceText string) (*capt.RawAssessment, error) {
	if !s.Configured() {
		return nil, errors.New(errors.ErrAIService, "Azure Speech client not configured")
	}
	if len(audio) == 0 {
		return nil, errors.Validation("audio is empty")
	}
	if referenceText == "" {
		return nil, errors.Validation("reference_text is required")
	}

	start := time.Now()
	body, err := s.assessor.AssessPronunciation(ctx, audio, contentType, referenceText, s.language)
	s.metrics.RecordAssessment(ctx, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return capt.ParseAssessment(body)
}

// ArchiveAudio stores the recording of an attempt and returns its key. It
// does nothing and returns "" when no archive is configured.
func (s *SpeechService) ArchiveAudio(ctx context.Context, key capt.LessonKey, attemptID string, audio []byte, contentType string) (string, error) {
	if s == nil || s.archive == nil {
		return "", nil
	}
	objectKey := path.Join(recordingPrefix(key), attemptID+audioExtension(contentType))
	if err := s.archive.Put(ctx, objectKey, audio, contentType); err != nil {
		return "", errors.Storage(fmt.Sprintf("failed to archive %s", objectKey), err)
	}
	return objectKey, nil
}

// AudioURL returns the public URL of an archived recording, or "" when the
// archive does not serve objects publicly.
func (s *SpeechService) AudioURL(objectKey string) string {
	if s == nil || objectKey == "" {
		return ""
	}
	if u, ok := s.archive.(publicURLer); ok {
		return u.ObjectURL(objectKey)
	}
	return ""
}

// Recordings lists the archived recordings of a series in key order.
func (s *SpeechService) Recordings(ctx context.Context, key capt.LessonKey) ([]Recording, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if s == nil || s.archive == nil {
		return nil, errors.NotFound("audio archive")
	}

	keys, err := s.archive.List(ctx, recordingPrefix(key)+"/")
	if err != nil {
		return nil, errors.Storage("failed to list recordings", err)
	}
	sort.Strings(keys)

	out := make([]Recording, 0, len(keys))
	for _, k := range keys {
		out = append(out, Recording{Key: k, URL: s.AudioURL(k)})
	}
	return out, nil
}

func recordingPrefix(key capt.LessonKey) string {
	return path.Join("audio", key.UserID, key.LessonID)
}

func audioExtension(contentType string) string {
	switch contentType {
	case "audio/wav", "audio/wave", "audio/x-wav":
		return ".wav"
	case "audio/ogg", "audio/ogg; codecs=opus":
		return ".ogg"
	case "audio/webm", "audio/webm; codecs=opus":
		return ".webm"
	case "audio/mpeg":
		return ".mp3"
	default:
		return ".bin"
	}
}
