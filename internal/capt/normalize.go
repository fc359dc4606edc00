package capt

import (
	"fmt"

	apperrors "github.com/windfall/phonoecho_service/internal/errors"
)

// ticksPerMillisecond converts the provider's 100-nanosecond ticks.
const ticksPerMillisecond = 10_000

// NormalizedAssessment is a flat view of one assessment result. Every list
// keeps source word and phoneme order.
type NormalizedAssessment struct {
	Scores        ScoreSet
	TargetText    string
	DisplayText   string
	TotalWords    int
	TotalPhonemes int

	WordErrors    []WordError
	PhonemeErrors []PhonemeError
	Omitted       []string
	Inserted      []string
	ProsodyIssues []ProsodyIssue
}

// Normalize flattens raw into error and score records. It fails with a
// MALFORMED_ASSESSMENT error when there is no best hypothesis; every other
// missing field defaults silently.
func Normalize(raw *RawAssessment, cfg FeedbackConfig) (*NormalizedAssessment, error) {
	if raw == nil || len(raw.NBest) == 0 {
		return nil, apperrors.MalformedAssessment("assessment has no NBest hypothesis")
	}
	best := raw.NBest[0]

	n := &NormalizedAssessment{
		Scores:        best.scores(),
		TargetText:    best.Lexical,
		DisplayText:   raw.DisplayText,
		TotalWords:    len(best.Words),
		WordErrors:    []WordError{},
		PhonemeErrors: []PhonemeError{},
		Omitted:       []string{},
		Inserted:      []string{},
		ProsodyIssues: []ProsodyIssue{},
	}
	if n.DisplayText == "" {
		n.DisplayText = best.Display
	}

	for _, rw := range best.Words {
		n.TotalPhonemes += len(rw.Phonemes)

		we := normalizeWord(rw, cfg)
		n.PhonemeErrors = append(n.PhonemeErrors, we.PhonemeErrors...)

		switch we.ErrorType {
		case ErrorTypeOmission:
			n.Omitted = append(n.Omitted, we.Word)
		case ErrorTypeInsertion:
			n.Inserted = append(n.Inserted, we.Word)
		}
		if we.ErrorType != ErrorTypeNone || (we.Score != nil && cfg.IsWordError(*we.Score)) {
			n.WordErrors = append(n.WordErrors, we)
		}

		n.ProsodyIssues = append(n.ProsodyIssues, prosodyIssues(rw, cfg)...)
	}

	return n, nil
}

func normalizeWord(rw RawWord, cfg FeedbackConfig) WordError {
	label := rw.errorLabel()
	errType := ParseErrorType(label)
	score := rw.accuracy()

	we := WordError{
		Word:          rw.Word,
		ErrorType:     errType,
		PhonemeErrors: []PhonemeError{},
	}
	if rw.Offset != nil {
		we.OffsetMs = int64(*rw.Offset) / ticksPerMillisecond
	}
	if rw.Duration != nil {
		we.DurationMs = int64(*rw.Duration) / ticksPerMillisecond
	}

	if isOmitted(rw, label, errType, score) {
		we.ErrorType = ErrorTypeOmission
	} else if score != nil {
		we.Score = float64Ptr(*score)
	} else {
		we.Score = float64Ptr(0)
	}

	for i, rp := range rw.Phonemes {
		ps := rp.accuracy()
		if !cfg.IsPhonemeError(ps) {
			continue
		}
		we.PhonemeErrors = append(we.PhonemeErrors, PhonemeError{
			Phoneme:         rp.Phoneme,
			Score:           ps,
			Word:            rw.Word,
			Position:        i,
			ExpectedPhoneme: rp.expected(),
		})
	}
	return we
}

// isOmitted applies the explicit Omission label, or the fallback for
// untagged omissions: no duration, no score, and a classification that is
// empty or Mispronunciation. Insertion never triggers the fallback.
func isOmitted(rw RawWord, label string, errType ErrorType, score *float64) bool {
	if errType == ErrorTypeOmission {
		return true
	}
	noDuration := rw.Duration == nil || *rw.Duration == 0
	noScore := score == nil || *score == 0
	untagged := label == "" || errType == ErrorTypeMispronunciation
	return noDuration && noScore && untagged
}

func prosodyIssues(rw RawWord, cfg FeedbackConfig) []ProsodyIssue {
	fb := rw.prosody()
	if fb == nil {
		return nil
	}

	var issues []ProsodyIssue
	if br := fb.Break; br != nil {
		if br.UnexpectedBreak != nil && br.UnexpectedBreak.Confidence >= cfg.BreakConfidenceThreshold {
			ms := int64(br.BreakLength) / ticksPerMillisecond
			issues = append(issues, ProsodyIssue{
				IssueType:     ProsodyUnexpectedBreak,
				Word:          rw.Word,
				Confidence:    br.UnexpectedBreak.Confidence,
				BreakLengthMs: ms,
				Description:   fmt.Sprintf("Unexpected pause before '%s' (%dms)", rw.Word, ms),
			})
		}
		if br.MissingBreak != nil && br.MissingBreak.Confidence >= cfg.BreakConfidenceThreshold {
			issues = append(issues, ProsodyIssue{
				IssueType:   ProsodyMissingBreak,
				Word:        rw.Word,
				Confidence:  br.MissingBreak.Confidence,
				Description: fmt.Sprintf("Missing pause after '%s'", rw.Word),
			})
		}
	}
	if in := fb.Intonation; in != nil && in.Monotone != nil {
		if c := in.Monotone.SyllablePitchDeltaConfidence; c >= cfg.MonotoneConfidenceThreshold {
			issues = append(issues, ProsodyIssue{
				IssueType:   ProsodyMonotone,
				Word:        rw.Word,
				Confidence:  c,
				Description: fmt.Sprintf("Monotone intonation around '%s'", rw.Word),
			})
		}
	}
	return issues
}
