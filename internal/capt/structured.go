package capt

import (
	"fmt"
	"strings"
)

// Number of entries taken from each list when building StructuredFeedback.
const (
	structuredWords    = 3
	structuredPhonemes = 2
	structuredImproved = 2
)

// StructuredFeedback is a display-oriented view of one attempt.
type StructuredFeedback struct {
	OverallScore    float64       `json:"overall_score"`
	ScoreCategory   ScoreCategory `json:"score_category"`
	ScoreLabel      string        `json:"score_label"`
	MainIssues      []string      `json:"main_issues"`
	Improvements    []string      `json:"improvements"`
	Recommendations []string      `json:"recommendations"`
	Encouragement   string        `json:"encouragement"`
	AttemptNumber   int           `json:"attempt_number"`
	TargetText      string        `json:"target_text,omitempty"`
}

var encouragements = map[ScoreCategory]string{
	CategoryExcellent: "素晴らしい発音です！この調子で続けてください。",
	CategoryGood:      "良い発音です。あと少しでパーフェクトです！",
	CategoryFair:      "着実に進歩しています。練習を続けましょう。",
	CategoryPoor:      "諦めずに練習すれば、必ず上達します！",
}

// NewStructuredFeedback builds the structured view of summary. card only
// contributes the target text and may be nil.
func NewStructuredFeedback(card *GuidanceCard, s *AttemptSummary, cfg FeedbackConfig) StructuredFeedback {
	category := cfg.ClassifyScore(s.Scores.Overall)
	out := StructuredFeedback{
		OverallScore:    s.Scores.Overall,
		ScoreCategory:   category,
		ScoreLabel:      cfg.ScoreLabels[category],
		MainIssues:      []string{},
		Improvements:    []string{},
		Recommendations: []string{},
		Encouragement:   encouragements[category],
		AttemptNumber:   s.AttemptNumber,
	}
	if card != nil {
		out.TargetText = card.TargetDisplay
	}

	for _, w := range capList(s.CurrentWordErrors, structuredWords) {
		switch {
		case w.ErrorType == ErrorTypeOmission:
			out.MainIssues = append(out.MainIssues, fmt.Sprintf("'%s'が省略されました", w.Word))
		case w.Score == nil:
			out.MainIssues = append(out.MainIssues, fmt.Sprintf("'%s'の発音 (N/A)", w.Word))
		default:
			out.MainIssues = append(out.MainIssues, fmt.Sprintf("'%s'の発音 (%.0f点)", w.Word, *w.Score))
		}
	}
	for _, p := range capList(s.CurrentPhonemeErrors, structuredPhonemes) {
		out.MainIssues = append(out.MainIssues, fmt.Sprintf("/%s/の音 in '%s' (%.0f点)", p.Phoneme, p.Word, p.Score))
	}

	limit := cfg.MaxAttemptImprovements
	for _, w := range capList(s.ImprovedWords, structuredImproved) {
		if len(out.Improvements) >= limit {
			break
		}
		out.Improvements = append(out.Improvements, fmt.Sprintf("'%s'が改善されました", w))
	}
	for _, p := range capList(s.ImprovedPhonemes, structuredImproved) {
		if len(out.Improvements) >= limit {
			break
		}
		out.Improvements = append(out.Improvements, p+"が改善されました")
	}

	if len(s.CurrentPhonemeErrors) > 0 {
		out.Recommendations = append(out.Recommendations,
			fmt.Sprintf("/%s/の発音を重点的に練習しましょう", s.CurrentPhonemeErrors[0].Phoneme))
	}
	if len(s.CurrentProsodyIssues) > 0 {
		out.Recommendations = append(out.Recommendations, s.CurrentProsodyIssues[0].Description)
	}
	if s.Scores.Fluency < cfg.FluencyMinAcceptable {
		out.Recommendations = append(out.Recommendations, "もう少しゆっくり、はっきりと話してみましょう")
	}
	if s.Scores.Completeness < cfg.CompletenessMinAcceptable && len(s.OmittedWords) > 0 {
		out.Recommendations = append(out.Recommendations, "すべての単語を省略せずに読んでみましょう")
	}
	return out
}

// Format renders the feedback as plain text for terminals and chat.
func (f StructuredFeedback) Format() string {
	var lines []string
	lines = append(lines,
		fmt.Sprintf("📊 総合スコア: %.0f点", f.OverallScore),
		"   評価: "+f.ScoreLabel,
		"",
	)

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		lines = append(lines, title)
		for _, it := range items {
			lines = append(lines, "   • "+it)
		}
		lines = append(lines, "")
	}
	section("🎯 主な課題:", f.MainIssues)
	section("✅ 改善点:", f.Improvements)
	section("💡 アドバイス:", f.Recommendations)

	lines = append(lines, "💪 "+f.Encouragement)
	return strings.Join(lines, "\n")
}
