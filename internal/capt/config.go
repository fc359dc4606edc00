// Package capt turns pronunciation-assessment results into compact coaching
// feedback across repeated practice attempts of the same sentence.
//
// The first attempt of a lesson produces a GuidanceCard that stays frozen for
// the rest of the series. Every attempt produces an AttemptSummary that holds
// the attempt's own bounded error lists plus improvements and regressions
// against a baseline. The Feedback functions render both into a short prompt,
// an LLM response, a deterministic fallback, or a structured view.
package capt

import "fmt"

// ScoreCategory is the band an overall score falls into.
type ScoreCategory string

const (
	CategoryExcellent ScoreCategory = "excellent"
	CategoryGood      ScoreCategory = "good"
	CategoryFair      ScoreCategory = "fair"
	CategoryPoor      ScoreCategory = "poor"
)

// FeedbackConfig holds every tunable threshold and cap used by the pipeline.
// Scores are on the 0-100 scale returned by the assessment provider and
// confidences are in [0, 1].
type FeedbackConfig struct {
	ExcellentThreshold float64 `json:"excellent_threshold"`
	GoodThreshold      float64 `json:"good_threshold"`
	FairThreshold      float64 `json:"fair_threshold"`
	PoorThreshold      float64 `json:"poor_threshold"`

	PhonemeErrorThreshold    float64 `json:"phoneme_error_threshold"`
	PhonemeCriticalThreshold float64 `json:"phoneme_critical_threshold"`
	WordErrorThreshold       float64 `json:"word_error_threshold"`
	WordCriticalThreshold    float64 `json:"word_critical_threshold"`
	ProsodyErrorThreshold    float64 `json:"prosody_error_threshold"`

	BreakConfidenceThreshold    float64 `json:"break_confidence_threshold"`
	MonotoneConfidenceThreshold float64 `json:"monotone_confidence_threshold"`

	FluencyMinAcceptable      float64 `json:"fluency_min_acceptable"`
	CompletenessMinAcceptable float64 `json:"completeness_min_acceptable"`

	MaxGuidancePhonemes    int `json:"max_guidance_phonemes"`
	MaxGuidanceWords       int `json:"max_guidance_words"`
	GuidanceProsodyIssues  int `json:"guidance_prosody_issues"`
	MaxAttemptErrors       int `json:"max_attempt_errors"`
	MaxAttemptImprovements int `json:"max_attempt_improvements"`

	FeedbackMaxTokens   int     `json:"feedback_max_tokens"`
	FeedbackTemperature float64 `json:"feedback_temperature"`
	FeedbackLanguage    string  `json:"feedback_language"`

	// ErrorTypePriorities orders word errors; higher weights are shown first.
	ErrorTypePriorities map[ErrorType]int `json:"error_type_priorities"`

	ScoreLabels map[ScoreCategory]string `json:"score_labels"`
}

// DefaultFeedbackConfig returns the stock configuration.
func DefaultFeedbackConfig() FeedbackConfig {
	return FeedbackConfig{
		ExcellentThreshold: 90,
		GoodThreshold:      75,
		FairThreshold:      60,
		PoorThreshold:      40,

		PhonemeErrorThreshold:    70,
		PhonemeCriticalThreshold: 40,
		WordErrorThreshold:       70,
		WordCriticalThreshold:    50,
		ProsodyErrorThreshold:    65,

		BreakConfidenceThreshold:    0.7,
		MonotoneConfidenceThreshold: 0.5,

		FluencyMinAcceptable:      70,
		CompletenessMinAcceptable: 80,

		MaxGuidancePhonemes:    5,
		MaxGuidanceWords:       3,
		GuidanceProsodyIssues:  3,
		MaxAttemptErrors:       5,
		MaxAttemptImprovements: 3,

		FeedbackMaxTokens:   150,
		FeedbackTemperature: 0.7,
		FeedbackLanguage:    "ja",

		ErrorTypePriorities: map[ErrorType]int{
			ErrorTypeMispronunciation: 3,
			ErrorTypeOmission:         2,
			ErrorTypeInsertion:        1,
			ErrorTypeNone:             0,
		},
		ScoreLabels: map[ScoreCategory]string{
			CategoryExcellent: "優秀 (Excellent)",
			CategoryGood:      "良好 (Good)",
			CategoryFair:      "普通 (Fair)",
			CategoryPoor:      "要改善 (Needs Improvement)",
		},
	}
}

// ClassifyScore maps an overall score to its band.
func (c FeedbackConfig) ClassifyScore(score float64) ScoreCategory {
	switch {
	case score >= c.ExcellentThreshold:
		return CategoryExcellent
	case score >= c.GoodThreshold:
		return CategoryGood
	case score >= c.FairThreshold:
		return CategoryFair
	default:
		return CategoryPoor
	}
}

// ScoreLabel returns the display label for the band of score.
func (c FeedbackConfig) ScoreLabel(score float64) string {
	return c.ScoreLabels[c.ClassifyScore(score)]
}

func (c FeedbackConfig) IsPhonemeError(score float64) bool {
	return score < c.PhonemeErrorThreshold
}

func (c FeedbackConfig) IsCriticalPhoneme(score float64) bool {
	return score < c.PhonemeCriticalThreshold
}

func (c FeedbackConfig) IsWordError(score float64) bool {
	return score < c.WordErrorThreshold
}

func (c FeedbackConfig) IsCriticalWord(score float64) bool {
	return score < c.WordCriticalThreshold
}

func (c FeedbackConfig) IsProsodyIssue(score float64) bool {
	return score < c.ProsodyErrorThreshold
}

// Priority returns the configured weight for an error classification.
func (c FeedbackConfig) Priority(t ErrorType) int {
	return c.ErrorTypePriorities[t]
}

// Validate checks that the bands are ordered and the caps are usable.
func (c FeedbackConfig) Validate() error {
	if !(c.ExcellentThreshold >= c.GoodThreshold && c.GoodThreshold >= c.FairThreshold && c.FairThreshold >= c.PoorThreshold) {
		return fmt.Errorf("score bands must be non-increasing: excellent=%v good=%v fair=%v poor=%v",
			c.ExcellentThreshold, c.GoodThreshold, c.FairThreshold, c.PoorThreshold)
	}
	if c.PhonemeCriticalThreshold > c.PhonemeErrorThreshold {
		return fmt.Errorf("phoneme critical threshold %v exceeds error threshold %v",
			c.PhonemeCriticalThreshold, c.PhonemeErrorThreshold)
	}
	if c.WordCriticalThreshold > c.WordErrorThreshold {
		return fmt.Errorf("word critical threshold %v exceeds error threshold %v",
			c.WordCriticalThreshold, c.WordErrorThreshold)
	}
	for name, v := range map[string]float64{
		"break_confidence_threshold":    c.BreakConfidenceThreshold,
		"monotone_confidence_threshold": c.MonotoneConfidenceThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, v)
		}
	}
	for name, v := range map[string]int{
		"max_guidance_phonemes":    c.MaxGuidancePhonemes,
		"max_guidance_words":       c.MaxGuidanceWords,
		"guidance_prosody_issues":  c.GuidanceProsodyIssues,
		"max_attempt_errors":       c.MaxAttemptErrors,
		"max_attempt_improvements": c.MaxAttemptImprovements,
		"feedback_max_tokens":      c.FeedbackMaxTokens,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}
	if c.FeedbackLanguage != "ja" && c.FeedbackLanguage != "en" {
		return fmt.Errorf("unsupported feedback language %q", c.FeedbackLanguage)
	}
	return nil
}

// FeedbackOverrides carries an optional replacement for any subset of
// FeedbackConfig fields. Nil fields keep the base value.
type FeedbackOverrides struct {
	ExcellentThreshold *float64 `yaml:"excellent_threshold"`
	GoodThreshold      *float64 `yaml:"good_threshold"`
	FairThreshold      *float64 `yaml:"fair_threshold"`
	PoorThreshold      *float64 `yaml:"poor_threshold"`

	PhonemeErrorThreshold    *float64 `yaml:"phoneme_error_threshold"`
	PhonemeCriticalThreshold *float64 `yaml:"phoneme_critical_threshold"`
	WordErrorThreshold       *float64 `yaml:"word_error_threshold"`
	WordCriticalThreshold    *float64 `yaml:"word_critical_threshold"`
	ProsodyErrorThreshold    *float64 `yaml:"prosody_error_threshold"`

	BreakConfidenceThreshold    *float64 `yaml:"break_confidence_threshold"`
	MonotoneConfidenceThreshold *float64 `yaml:"monotone_confidence_threshold"`

	FluencyMinAcceptable      *float64 `yaml:"fluency_min_acceptable"`
	CompletenessMinAcceptable *float64 `yaml:"completeness_min_acceptable"`

	MaxGuidancePhonemes    *int `yaml:"max_guidance_phonemes"`
	MaxGuidanceWords       *int `yaml:"max_guidance_words"`
	GuidanceProsodyIssues  *int `yaml:"guidance_prosody_issues"`
	MaxAttemptErrors       *int `yaml:"max_attempt_errors"`
	MaxAttemptImprovements *int `yaml:"max_attempt_improvements"`

	FeedbackMaxTokens   *int     `yaml:"feedback_max_tokens"`
	FeedbackTemperature *float64 `yaml:"feedback_temperature"`
	FeedbackLanguage    *string  `yaml:"feedback_language"`

	// Entries are merged into the base maps key by key.
	ErrorTypePriorities map[string]int    `yaml:"error_type_priorities"`
	ScoreLabels         map[string]string `yaml:"score_labels"`
}

// Validate rejects map keys that do not name an error type or score band.
func (o FeedbackOverrides) Validate() error {
	for k := range o.ErrorTypePriorities {
		switch ErrorType(k) {
		case ErrorTypeNone, ErrorTypeMispronunciation, ErrorTypeOmission, ErrorTypeInsertion:
		default:
			return fmt.Errorf("error_type_priorities: unknown error type %q", k)
		}
	}
	for k := range o.ScoreLabels {
		switch ScoreCategory(k) {
		case CategoryExcellent, CategoryGood, CategoryFair, CategoryPoor:
		default:
			return fmt.Errorf("score_labels: unknown score category %q", k)
		}
	}
	return nil
}

// Apply returns a copy of base with every non-nil override applied.
func (o FeedbackOverrides) Apply(base FeedbackConfig) FeedbackConfig {
	out := base
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setI := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}

	setF(&out.ExcellentThreshold, o.ExcellentThreshold)
	setF(&out.GoodThreshold, o.GoodThreshold)
	setF(&out.FairThreshold, o.FairThreshold)
	setF(&out.PoorThreshold, o.PoorThreshold)
	setF(&out.PhonemeErrorThreshold, o.PhonemeErrorThreshold)
	setF(&out.PhonemeCriticalThreshold, o.PhonemeCriticalThreshold)
	setF(&out.WordErrorThreshold, o.WordErrorThreshold)
	setF(&out.WordCriticalThreshold, o.WordCriticalThreshold)
	setF(&out.ProsodyErrorThreshold, o.ProsodyErrorThreshold)
	setF(&out.BreakConfidenceThreshold, o.BreakConfidenceThreshold)
	setF(&out.MonotoneConfidenceThreshold, o.MonotoneConfidenceThreshold)
	setF(&out.FluencyMinAcceptable, o.FluencyMinAcceptable)
	setF(&out.CompletenessMinAcceptable, o.CompletenessMinAcceptable)
	setI(&out.MaxGuidancePhonemes, o.MaxGuidancePhonemes)
	setI(&out.MaxGuidanceWords, o.MaxGuidanceWords)
	setI(&out.GuidanceProsodyIssues, o.GuidanceProsodyIssues)
	setI(&out.MaxAttemptErrors, o.MaxAttemptErrors)
	setI(&out.MaxAttemptImprovements, o.MaxAttemptImprovements)
	setI(&out.FeedbackMaxTokens, o.FeedbackMaxTokens)
	setF(&out.FeedbackTemperature, o.FeedbackTemperature)
	if o.FeedbackLanguage != nil {
		out.FeedbackLanguage = *o.FeedbackLanguage
	}

	out.ErrorTypePriorities = make(map[ErrorType]int, len(base.ErrorTypePriorities))
	for k, v := range base.ErrorTypePriorities {
		out.ErrorTypePriorities[k] = v
	}
	for k, v := range o.ErrorTypePriorities {
		out.ErrorTypePriorities[ErrorType(k)] = v
	}

	out.ScoreLabels = make(map[ScoreCategory]string, len(base.ScoreLabels))
	for k, v := range base.ScoreLabels {
		out.ScoreLabels[k] = v
	}
	for k, v := range o.ScoreLabels {
		out.ScoreLabels[ScoreCategory(k)] = v
	}
	return out
}
