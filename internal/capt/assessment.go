package capt

import (
	"encoding/json"

	apperrors "github.com/windfall/phonoecho_service/internal/errors"
)

// RawAssessment mirrors the pronunciation-assessment JSON returned by Azure
// Speech. Both the SDK layout (scores nested under PronunciationAssessment)
// and the short-audio REST layout (scores flattened onto the entry) decode
// into it. Pointer fields distinguish absent values from zero.
type RawAssessment struct {
	RecognitionStatus string          `json:"RecognitionStatus,omitempty"`
	DisplayText       string          `json:"DisplayText"`
	NBest             []RawHypothesis `json:"NBest"`
}

// RawHypothesis is one recognition candidate.
type RawHypothesis struct {
	Confidence              float64    `json:"Confidence,omitempty"`
	Lexical                 string     `json:"Lexical"`
	Display                 string     `json:"Display,omitempty"`
	PronunciationAssessment *RawScores `json:"PronunciationAssessment,omitempty"`
	RawScores
	Words []RawWord `json:"Words"`
}

// RawScores is the sentence-level score block.
type RawScores struct {
	AccuracyScore     *float64 `json:"AccuracyScore,omitempty"`
	FluencyScore      *float64 `json:"FluencyScore,omitempty"`
	ProsodyScore      *float64 `json:"ProsodyScore,omitempty"`
	CompletenessScore *float64 `json:"CompletenessScore,omitempty"`
	PronScore         *float64 `json:"PronScore,omitempty"`
}

// RawWord is one word of the best hypothesis. Offset and Duration are in
// 100-nanosecond ticks.
type RawWord struct {
	Word                    string             `json:"Word"`
	Offset                  *float64           `json:"Offset,omitempty"`
	Duration                *float64           `json:"Duration,omitempty"`
	PronunciationAssessment *RawWordAssessment `json:"PronunciationAssessment,omitempty"`
	RawWordAssessment
	Phonemes []RawPhoneme `json:"Phonemes,omitempty"`
}

// RawWordAssessment is the per-word score block.
type RawWordAssessment struct {
	AccuracyScore *float64     `json:"AccuracyScore,omitempty"`
	ErrorType     *string      `json:"ErrorType,omitempty"`
	Feedback      *RawFeedback `json:"Feedback,omitempty"`
}

type RawFeedback struct {
	Prosody *RawProsodyFeedback `json:"Prosody,omitempty"`
}

type RawProsodyFeedback struct {
	Break      *RawBreak      `json:"Break,omitempty"`
	Intonation *RawIntonation `json:"Intonation,omitempty"`
}

type RawBreak struct {
	ErrorTypes      []string       `json:"ErrorTypes,omitempty"`
	UnexpectedBreak *RawConfidence `json:"UnexpectedBreak,omitempty"`
	MissingBreak    *RawConfidence `json:"MissingBreak,omitempty"`
	BreakLength     float64        `json:"BreakLength,omitempty"`
}

type RawConfidence struct {
	Confidence float64 `json:"Confidence"`
}

type RawIntonation struct {
	ErrorTypes []string     `json:"ErrorTypes,omitempty"`
	Monotone   *RawMonotone `json:"Monotone,omitempty"`
}

type RawMonotone struct {
	SyllablePitchDeltaConfidence float64 `json:"SyllablePitchDeltaConfidence"`
}

// RawPhoneme is one phoneme of a word.
type RawPhoneme struct {
	Phoneme                 string                `json:"Phoneme"`
	PronunciationAssessment *RawPhonemeAssessment `json:"PronunciationAssessment,omitempty"`
	AccuracyScore           *float64              `json:"AccuracyScore,omitempty"`
}

type RawPhonemeAssessment struct {
	AccuracyScore *float64           `json:"AccuracyScore,omitempty"`
	NBestPhonemes []RawPhonemeChoice `json:"NBestPhonemes,omitempty"`
}

type RawPhonemeChoice struct {
	Phoneme string  `json:"Phoneme"`
	Score   float64 `json:"Score"`
}

// ParseAssessment decodes a provider response. Invalid JSON is reported as
// a malformed assessment.
func ParseAssessment(data []byte) (*RawAssessment, error) {
	var raw RawAssessment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedAssessment, "assessment failed, please retry the recording", err)
	}
	return &raw, nil
}

func (h RawHypothesis) scores() ScoreSet {
	pick := func(nested func(*RawScores) *float64) float64 {
		if h.PronunciationAssessment != nil {
			if v := nested(h.PronunciationAssessment); v != nil {
				return *v
			}
		}
		if v := nested(&h.RawScores); v != nil {
			return *v
		}
		return 0
	}
	return ScoreSet{
		Accuracy:     pick(func(s *RawScores) *float64 { return s.AccuracyScore }),
		Fluency:      pick(func(s *RawScores) *float64 { return s.FluencyScore }),
		Prosody:      pick(func(s *RawScores) *float64 { return s.ProsodyScore }),
		Completeness: pick(func(s *RawScores) *float64 { return s.CompletenessScore }),
		Overall:      pick(func(s *RawScores) *float64 { return s.PronScore }),
	}
}

func (w RawWord) accuracy() *float64 {
	if w.PronunciationAssessment != nil && w.PronunciationAssessment.AccuracyScore != nil {
		return w.PronunciationAssessment.AccuracyScore
	}
	return w.AccuracyScore
}

// errorLabel returns the raw classification label, "" when absent.
func (w RawWord) errorLabel() string {
	if w.PronunciationAssessment != nil && w.PronunciationAssessment.ErrorType != nil {
		return *w.PronunciationAssessment.ErrorType
	}
	if w.ErrorType != nil {
		return *w.ErrorType
	}
	return ""
}

func (w RawWord) prosody() *RawProsodyFeedback {
	if w.PronunciationAssessment != nil && w.PronunciationAssessment.Feedback != nil {
		return w.PronunciationAssessment.Feedback.Prosody
	}
	if w.Feedback != nil {
		return w.Feedback.Prosody
	}
	return nil
}

func (p RawPhoneme) accuracy() float64 {
	if p.PronunciationAssessment != nil && p.PronunciationAssessment.AccuracyScore != nil {
		return *p.PronunciationAssessment.AccuracyScore
	}
	if p.AccuracyScore != nil {
		return *p.AccuracyScore
	}
	return 0
}

// expected returns the provider's top candidate when it differs from the
// scored phoneme.
func (p RawPhoneme) expected() string {
	if p.PronunciationAssessment == nil || len(p.PronunciationAssessment.NBestPhonemes) == 0 {
		return ""
	}
	top := p.PronunciationAssessment.NBestPhonemes[0].Phoneme
	if top == p.Phoneme {
		return ""
	}
	return top
}
