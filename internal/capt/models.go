package capt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ErrorType is the word-level classification reported by the assessment
// provider. Unknown labels normalize to ErrorTypeNone.
type ErrorType string

const (
	ErrorTypeNone             ErrorType = "None"
	ErrorTypeMispronunciation ErrorType = "Mispronunciation"
	ErrorTypeOmission         ErrorType = "Omission"
	ErrorTypeInsertion        ErrorType = "Insertion"
)

// ParseErrorType maps a provider label to an ErrorType.
func ParseErrorType(s string) ErrorType {
	switch ErrorType(s) {
	case ErrorTypeMispronunciation, ErrorTypeOmission, ErrorTypeInsertion:
		return ErrorType(s)
	default:
		return ErrorTypeNone
	}
}

// UnmarshalJSON normalizes unknown labels instead of failing.
func (t *ErrorType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = ParseErrorType(s)
	return nil
}

// ProsodyIssueType is the kind of rhythm or intonation problem.
type ProsodyIssueType string

const (
	ProsodyUnexpectedBreak ProsodyIssueType = "UnexpectedBreak"
	ProsodyMissingBreak    ProsodyIssueType = "MissingBreak"
	ProsodyMonotone        ProsodyIssueType = "Monotone"
)

// UnmarshalJSON rejects labels outside the closed set.
func (t *ProsodyIssueType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch ProsodyIssueType(s) {
	case ProsodyUnexpectedBreak, ProsodyMissingBreak, ProsodyMonotone:
		*t = ProsodyIssueType(s)
		return nil
	default:
		return fmt.Errorf("unknown prosody issue type %q", s)
	}
}

// ScoreSet is the five overall scores of one attempt.
type ScoreSet struct {
	Accuracy     float64 `json:"accuracy"`
	Fluency      float64 `json:"fluency"`
	Prosody      float64 `json:"prosody"`
	Completeness float64 `json:"completeness"`
	Overall      float64 `json:"overall"`
}

// PhonemeError is a phoneme scored below the error threshold.
type PhonemeError struct {
	Phoneme         string  `json:"phoneme"`
	Score           float64 `json:"score"`
	Word            string  `json:"word"`
	Position        int     `json:"position"`
	ExpectedPhoneme string  `json:"expected_phoneme,omitempty"`
}

// PhonemeKey identifies a phoneme across attempts. Position is not part of
// it because word segmentation can shift between recordings.
type PhonemeKey struct {
	Phoneme string
	Word    string
}

func (p PhonemeError) Key() PhonemeKey {
	return PhonemeKey{Phoneme: p.Phoneme, Word: p.Word}
}

// Label renders the key as "r in 'rocket'".
func (k PhonemeKey) Label() string {
	return fmt.Sprintf("%s in '%s'", k.Phoneme, k.Word)
}

// WordError is a word with a non-None classification or a low score.
// Score is nil exactly when ErrorType is ErrorTypeOmission.
type WordError struct {
	Word          string         `json:"word"`
	Score         *float64       `json:"score"`
	ErrorType     ErrorType      `json:"error_type"`
	PhonemeErrors []PhonemeError `json:"phoneme_errors"`
	OffsetMs      int64          `json:"offset_ms"`
	DurationMs    int64          `json:"duration_ms"`
}

// ScoreOr returns the word score, or fallback for omitted words.
func (w WordError) ScoreOr(fallback float64) float64 {
	if w.Score == nil {
		return fallback
	}
	return *w.Score
}

// ProsodyIssue is a detected pause or intonation problem around a word.
type ProsodyIssue struct {
	IssueType     ProsodyIssueType `json:"issue_type"`
	Word          string           `json:"word"`
	Confidence    float64          `json:"confidence"`
	BreakLengthMs int64            `json:"break_length_ms"`
	Description   string           `json:"description"`
}

// GuidanceCard is the frozen profile of the learner's first attempt.
type GuidanceCard struct {
	TargetText          string         `json:"target_text"`
	TargetDisplay       string         `json:"target_display"`
	TotalWords          int            `json:"total_words"`
	TotalPhonemes       int            `json:"total_phonemes"`
	ChallengingPhonemes []PhonemeError `json:"challenging_phonemes"`
	ChallengingWords    []WordError    `json:"challenging_words"`
	ProsodyPatterns     []ProsodyIssue `json:"prosody_patterns"`
	Reference           ScoreSet       `json:"reference"`
}

// Summary returns a short multi-line description of the card.
func (g *GuidanceCard) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target: '%s'\n", g.TargetText)
	fmt.Fprintf(&b, "Words: %d, Phonemes: %d\n", g.TotalWords, g.TotalPhonemes)
	fmt.Fprintf(&b, "Challenging phonemes: %d\n", len(g.ChallengingPhonemes))
	fmt.Fprintf(&b, "Challenging words: %d\n", len(g.ChallengingWords))
	fmt.Fprintf(&b, "Prosody patterns: %d\n", len(g.ProsodyPatterns))
	fmt.Fprintf(&b, "Initial scores - Overall: %.0f, Accuracy: %.0f, Fluency: %.0f, Prosody: %.0f",
		g.Reference.Overall, g.Reference.Accuracy, g.Reference.Fluency, g.Reference.Prosody)
	return b.String()
}

// AttemptSummary is the bounded record of one attempt and its changes
// against the baseline.
type AttemptSummary struct {
	AttemptNumber        int            `json:"attempt_number"`
	Scores               ScoreSet       `json:"scores"`
	CurrentPhonemeErrors []PhonemeError `json:"current_phoneme_errors"`
	CurrentWordErrors    []WordError    `json:"current_word_errors"`
	CurrentProsodyIssues []ProsodyIssue `json:"current_prosody_issues"`
	ImprovedPhonemes     []string       `json:"improved_phonemes"`
	ImprovedWords        []string       `json:"improved_words"`
	RegressedPhonemes    []string       `json:"regressed_phonemes"`
	RegressedWords       []string       `json:"regressed_words"`
	OmittedWords         []string       `json:"omitted_words"`
	InsertedWords        []string       `json:"inserted_words"`
}

// Summary returns a short multi-line description of the attempt.
func (a *AttemptSummary) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attempt #%d\n", a.AttemptNumber)
	fmt.Fprintf(&b, "Scores - Overall: %.0f, Accuracy: %.0f, Fluency: %.0f, Prosody: %.0f\n",
		a.Scores.Overall, a.Scores.Accuracy, a.Scores.Fluency, a.Scores.Prosody)
	fmt.Fprintf(&b, "Errors - Phonemes: %d, Words: %d, Prosody: %d\n",
		len(a.CurrentPhonemeErrors), len(a.CurrentWordErrors), len(a.CurrentProsodyIssues))
	fmt.Fprintf(&b, "Improvements: %d words, %d phonemes\n", len(a.ImprovedWords), len(a.ImprovedPhonemes))
	fmt.Fprintf(&b, "Omitted: %d, Inserted: %d", len(a.OmittedWords), len(a.InsertedWords))
	return b.String()
}

func float64Ptr(v float64) *float64 {
	return &v
}

var lessonKeyPart = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// LessonKey identifies one learner's practice series for one sentence.
type LessonKey struct {
	UserID   string `json:"user_id"`
	LessonID string `json:"lesson_id"`
}

func (k LessonKey) String() string {
	return k.UserID + "/" + k.LessonID
}

// Validate checks that both parts are safe to use in file paths and
// storage keys.
func (k LessonKey) Validate() error {
	if !lessonKeyPart.MatchString(k.UserID) {
		return fmt.Errorf("invalid user id %q", k.UserID)
	}
	if !lessonKeyPart.MatchString(k.LessonID) {
		return fmt.Errorf("invalid lesson id %q", k.LessonID)
	}
	return nil
}
