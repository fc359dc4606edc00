package capt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/windfall/phonoecho_service/internal/errors"
)

func TestNormalizeRejectsMissingHypothesis(t *testing.T) {
	cfg := DefaultFeedbackConfig()

	tests := []struct {
		name string
		raw  *RawAssessment
	}{
		{name: "nil result", raw: nil},
		{name: "no NBest", raw: &RawAssessment{DisplayText: "hello"}},
		{name: "empty NBest", raw: &RawAssessment{NBest: []RawHypothesis{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw, cfg)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrMalformedAssessment))

			_, err = BuildGuidanceCard(tt.raw, cfg)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrMalformedAssessment))

			_, err = BuildAttemptSummary(tt.raw, 2, &GuidanceCard{}, nil, cfg)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrMalformedAssessment))
		})
	}
}

func TestParseAssessmentInvalidJSON(t *testing.T) {
	_, err := ParseAssessment([]byte(`{"NBest": [`))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrMalformedAssessment))
}

func TestParseAssessmentFlattenedLayout(t *testing.T) {
	body := `{
		"RecognitionStatus": "Success",
		"DisplayText": "Red rocket.",
		"NBest": [{
			"Lexical": "red rocket",
			"AccuracyScore": 72, "FluencyScore": 81, "ProsodyScore": 68,
			"CompletenessScore": 100, "PronScore": 74,
			"Words": [
				{"Word": "red", "AccuracyScore": 91, "ErrorType": "None", "Offset": 500000, "Duration": 2500000,
				 "Phonemes": [{"Phoneme": "r", "AccuracyScore": 88}]},
				{"Word": "rocket", "AccuracyScore": 52, "ErrorType": "Mispronunciation", "Offset": 3100000, "Duration": 4200000,
				 "Phonemes": [{"Phoneme": "r", "AccuracyScore": 35}, {"Phoneme": "ɑ", "AccuracyScore": 80}]}
			]
		}]
	}`

	raw, err := ParseAssessment([]byte(body))
	require.NoError(t, err)

	n, err := Normalize(raw, DefaultFeedbackConfig())
	require.NoError(t, err)

	assert.Equal(t, ScoreSet{Accuracy: 72, Fluency: 81, Prosody: 68, Completeness: 100, Overall: 74}, n.Scores)
	assert.Equal(t, "red rocket", n.TargetText)
	assert.Equal(t, "Red rocket.", n.DisplayText)
	assert.Equal(t, 2, n.TotalWords)
	assert.Equal(t, 3, n.TotalPhonemes)

	require.Len(t, n.WordErrors, 1)
	assert.Equal(t, "rocket", n.WordErrors[0].Word)
	assert.Equal(t, ErrorTypeMispronunciation, n.WordErrors[0].ErrorType)
	assert.Equal(t, int64(310), n.WordErrors[0].OffsetMs)
	assert.Equal(t, int64(420), n.WordErrors[0].DurationMs)

	require.Len(t, n.PhonemeErrors, 1)
	assert.Equal(t, PhonemeError{Phoneme: "r", Score: 35, Word: "rocket", Position: 0}, n.PhonemeErrors[0])
}

func TestNormalizeNestedLayoutPrefersAssessmentBlock(t *testing.T) {
	raw := result("Rain.", 80, RawWord{
		Word:     "rain",
		Duration: fp(2_000_000),
		// The nested block wins over the flattened fields.
		RawWordAssessment:       RawWordAssessment{AccuracyScore: fp(10), ErrorType: sp("Mispronunciation")},
		PronunciationAssessment: &RawWordAssessment{AccuracyScore: fp(93), ErrorType: sp("None")},
		Phonemes: []RawPhoneme{{
			Phoneme: "r",
			PronunciationAssessment: &RawPhonemeAssessment{
				AccuracyScore: fp(30),
				NBestPhonemes: []RawPhonemeChoice{{Phoneme: "l", Score: 80}, {Phoneme: "r", Score: 30}},
			},
		}},
	})

	n, err := Normalize(raw, DefaultFeedbackConfig())
	require.NoError(t, err)

	assert.Empty(t, n.WordErrors)
	assert.Equal(t, 1, n.TotalWords)

	require.Len(t, n.PhonemeErrors, 1)
	assert.Equal(t, "l", n.PhonemeErrors[0].ExpectedPhoneme)
}

func TestNormalizeDefaultsMissingFields(t *testing.T) {
	raw := &RawAssessment{NBest: []RawHypothesis{{
		Lexical: "cat",
		Words: []RawWord{{
			Word:     "cat",
			Duration: fp(1_500_000),
			Phonemes: []RawPhoneme{{Phoneme: "k"}},
		}},
	}}}

	n, err := Normalize(raw, DefaultFeedbackConfig())
	require.NoError(t, err)

	assert.Equal(t, ScoreSet{}, n.Scores)
	require.Len(t, n.WordErrors, 1)
	assert.Equal(t, ErrorTypeNone, n.WordErrors[0].ErrorType)
	require.NotNil(t, n.WordErrors[0].Score)
	assert.Equal(t, 0.0, *n.WordErrors[0].Score)

	// An unscored phoneme counts as 0.
	require.Len(t, n.PhonemeErrors, 1)
	assert.Equal(t, 0.0, n.PhonemeErrors[0].Score)
}

func TestNormalizeOmissionHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		word     RawWord
		wantType ErrorType
		omitted  bool
	}{
		{
			name:     "no duration, no score, no classification",
			word:     RawWord{Word: "the", Duration: fp(0)},
			wantType: ErrorTypeOmission,
			omitted:  true,
		},
		{
			name:     "absent duration and zero score",
			word:     RawWord{Word: "the", RawWordAssessment: RawWordAssessment{AccuracyScore: fp(0)}},
			wantType: ErrorTypeOmission,
			omitted:  true,
		},
		{
			name: "tagged Mispronunciation without audio",
			word: RawWord{Word: "the", PronunciationAssessment: &RawWordAssessment{
				AccuracyScore: fp(0), ErrorType: sp("Mispronunciation"),
			}},
			wantType: ErrorTypeOmission,
			omitted:  true,
		},
		{
			name:     "explicit Omission with a score",
			word:     word("the", 40, "Omission"),
			wantType: ErrorTypeOmission,
			omitted:  true,
		},
		{
			name: "Insertion never triggers the fallback",
			word: RawWord{Word: "um", PronunciationAssessment: &RawWordAssessment{
				AccuracyScore: fp(0), ErrorType: sp("Insertion"),
			}},
			wantType: ErrorTypeInsertion,
		},
		{
			name:     "spoken word with zero score",
			word:     RawWord{Word: "the", Duration: fp(2_000_000), RawWordAssessment: RawWordAssessment{AccuracyScore: fp(0)}},
			wantType: ErrorTypeNone,
		},
		{
			name:     "silent word with a score",
			word:     RawWord{Word: "the", Duration: fp(0), RawWordAssessment: RawWordAssessment{AccuracyScore: fp(55)}},
			wantType: ErrorTypeNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Normalize(result("The.", 50, tt.word), DefaultFeedbackConfig())
			require.NoError(t, err)
			require.Len(t, n.WordErrors, 1)

			we := n.WordErrors[0]
			assert.Equal(t, tt.wantType, we.ErrorType)
			if tt.omitted {
				assert.Nil(t, we.Score)
				assert.Equal(t, []string{tt.word.Word}, n.Omitted)
			} else {
				assert.NotNil(t, we.Score)
				assert.Empty(t, n.Omitted)
			}
		})
	}
}

func TestNormalizeUnknownErrorTypeIsNone(t *testing.T) {
	n, err := Normalize(result("Dog.", 90, word("dog", 95, "UnexpectedBreak")), DefaultFeedbackConfig())
	require.NoError(t, err)
	assert.Empty(t, n.WordErrors)
	assert.Empty(t, n.Omitted)
	assert.Empty(t, n.Inserted)
}

func TestNormalizeProsodyIssues(t *testing.T) {
	w := word("rocket", 90, "None")
	w.PronunciationAssessment.Feedback = &RawFeedback{Prosody: &RawProsodyFeedback{
		Break: &RawBreak{
			ErrorTypes:      []string{"UnexpectedBreak"},
			UnexpectedBreak: &RawConfidence{Confidence: 0.82},
			MissingBreak:    &RawConfidence{Confidence: 0.4},
			BreakLength:     5_000_000,
		},
		Intonation: &RawIntonation{Monotone: &RawMonotone{SyllablePitchDeltaConfidence: 0.6}},
	}}
	quiet := word("red", 90, "None")
	quiet.PronunciationAssessment.Feedback = &RawFeedback{Prosody: &RawProsodyFeedback{
		Break: &RawBreak{MissingBreak: &RawConfidence{Confidence: 0.7}},
	}}

	n, err := Normalize(result("Red rocket.", 85, quiet, w), DefaultFeedbackConfig())
	require.NoError(t, err)

	require.Len(t, n.ProsodyIssues, 3)
	assert.Equal(t, ProsodyIssue{
		IssueType:   ProsodyMissingBreak,
		Word:        "red",
		Confidence:  0.7,
		Description: "Missing pause after 'red'",
	}, n.ProsodyIssues[0])
	assert.Equal(t, ProsodyIssue{
		IssueType:     ProsodyUnexpectedBreak,
		Word:          "rocket",
		Confidence:    0.82,
		BreakLengthMs: 500,
		Description:   "Unexpected pause before 'rocket' (500ms)",
	}, n.ProsodyIssues[1])
	assert.Equal(t, ProsodyMonotone, n.ProsodyIssues[2].IssueType)
}

func TestNormalizeOmissionScoreInvariant(t *testing.T) {
	raw := result("A b c d e.", 50,
		word("a", 40, "Mispronunciation"),
		word("b", 0, "Omission"),
		word("c", 20, "Insertion"),
		word("d", 55, "None"),
		RawWord{Word: "e"},
	)

	n, err := Normalize(raw, DefaultFeedbackConfig())
	require.NoError(t, err)
	require.Len(t, n.WordErrors, 5)

	for _, we := range n.WordErrors {
		if we.ErrorType == ErrorTypeOmission {
			assert.Nil(t, we.Score, we.Word)
		} else {
			assert.NotNil(t, we.Score, we.Word)
		}
	}
	assert.Equal(t, []string{"b", "e"}, n.Omitted)
	assert.Equal(t, []string{"c"}, n.Inserted)
}
