package capt

import (
	"fmt"
	"strings"
)

// Number of entries each prompt section shows.
const (
	highlightPhonemes = 3
	highlightWords    = 2
	highlightProsody  = 1
	blockItems        = 2
)

// FeedbackPrompt is the assembled LLM request for one attempt.
type FeedbackPrompt struct {
	TargetText         string
	GuidanceHighlights string
	AttemptSummary     string
	Language           string
	MaxTokens          int
	Temperature        float64
}

// BuildPrompt renders the guidance highlights and attempt block of card and
// summary into a prompt using the sampling parameters of cfg.
func BuildPrompt(card *GuidanceCard, summary *AttemptSummary, cfg FeedbackConfig) FeedbackPrompt {
	if card == nil {
		card = &GuidanceCard{}
	}
	return FeedbackPrompt{
		TargetText:         card.TargetDisplay,
		GuidanceHighlights: GuidanceHighlights(card),
		AttemptSummary:     AttemptBlock(summary, cfg),
		Language:           cfg.FeedbackLanguage,
		MaxTokens:          cfg.FeedbackMaxTokens,
		Temperature:        cfg.FeedbackTemperature,
	}
}

// Options returns the sampling parameters for a Generator call.
func (p FeedbackPrompt) Options() GenerateOptions {
	return GenerateOptions{
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Language:    p.Language,
	}
}

// Format returns the prompt text. Any language other than "ja" uses the
// English template.
func (p FeedbackPrompt) Format() string {
	if p.Language == "ja" {
		return fmt.Sprintf(japanesePrompt, p.TargetText, p.GuidanceHighlights, p.AttemptSummary)
	}
	return fmt.Sprintf(englishPrompt, p.TargetText, p.GuidanceHighlights, p.AttemptSummary)
}

const japanesePrompt = `あなたは発音トレーニングの専門家です。以下の情報に基づいて、簡潔で具体的なフィードバックを提供してください。

【目標文】
%s

【重点ポイント】
%s

【今回の結果】
%s

**指示:**
- フィードバックは3-4文で簡潔に
- 具体的な改善点を1-2つに絞る
- ポジティブな言葉遣いで励ます
- 専門用語は最小限に`

const englishPrompt = `You are a pronunciation training expert. Provide concise, specific feedback based on the following information.

【Target Sentence】
%s

【Key Focus Areas】
%s

【Current Attempt】
%s

**Instructions:**
- Keep feedback to 3-4 sentences
- Focus on 1-2 specific improvement areas
- Use encouraging, positive language
- Minimize technical jargon`

// GuidanceHighlights renders the top entries of the card, one line each,
// followed by the reference overall score.
func GuidanceHighlights(card *GuidanceCard) string {
	var lines []string

	if len(card.ChallengingPhonemes) > 0 {
		parts := make([]string, 0, highlightPhonemes)
		for _, p := range capList(card.ChallengingPhonemes, highlightPhonemes) {
			parts = append(parts, fmt.Sprintf("/%s/ in '%s' (%.0f)", p.Phoneme, p.Word, p.Score))
		}
		lines = append(lines, "難しい音素: "+strings.Join(parts, ", "))
	}

	if len(card.ChallengingWords) > 0 {
		parts := make([]string, 0, highlightWords)
		for _, w := range capList(card.ChallengingWords, highlightWords) {
			if w.Score == nil {
				parts = append(parts, fmt.Sprintf("'%s' (省略)", w.Word))
				continue
			}
			parts = append(parts, fmt.Sprintf("'%s' (%.0f)", w.Word, *w.Score))
		}
		lines = append(lines, "難しい単語: "+strings.Join(parts, ", "))
	}

	for _, pi := range capList(card.ProsodyPatterns, highlightProsody) {
		lines = append(lines, "リズム: "+pi.Description)
	}

	lines = append(lines, fmt.Sprintf("初回スコア: %.0f点", card.Reference.Overall))
	return strings.Join(lines, "\n")
}

// AttemptBlock renders the attempt's score, breakdown and top errors.
// Sections with nothing to report are left out.
func AttemptBlock(s *AttemptSummary, cfg FeedbackConfig) string {
	lines := []string{
		fmt.Sprintf("第%d回: %.0f点 (%s)", s.AttemptNumber, s.Scores.Overall, cfg.ScoreLabel(s.Scores.Overall)),
		fmt.Sprintf("正確性: %.0f, 流暢性: %.0f, 韻律: %.0f", s.Scores.Accuracy, s.Scores.Fluency, s.Scores.Prosody),
	}

	if len(s.CurrentWordErrors) > 0 {
		parts := make([]string, 0, blockItems)
		for _, w := range capList(s.CurrentWordErrors, blockItems) {
			parts = append(parts, fmt.Sprintf("'%s' (%s)", w.Word, w.ErrorType))
		}
		lines = append(lines, "エラー: "+strings.Join(parts, ", "))
	}

	if len(s.CurrentPhonemeErrors) > 0 {
		parts := make([]string, 0, blockItems)
		for _, p := range capList(s.CurrentPhonemeErrors, blockItems) {
			parts = append(parts, fmt.Sprintf("/%s/ in '%s'", p.Phoneme, p.Word))
		}
		lines = append(lines, "音素エラー: "+strings.Join(parts, ", "))
	}

	if len(s.ImprovedWords) > 0 {
		lines = append(lines, "✅ 改善: "+strings.Join(capList(s.ImprovedWords, blockItems), ", "))
	}
	if len(s.OmittedWords) > 0 {
		lines = append(lines, "⚠️ 省略: "+strings.Join(capList(s.OmittedWords, blockItems), ", "))
	}
	return strings.Join(lines, "\n")
}
