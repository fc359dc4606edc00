package capt

// BuildGuidanceCard normalizes a first-attempt result and selects its
// worst phonemes, words and prosody issues.
func BuildGuidanceCard(raw *RawAssessment, cfg FeedbackConfig) (*GuidanceCard, error) {
	n, err := Normalize(raw, cfg)
	if err != nil {
		return nil, err
	}
	return NewGuidanceCard(n, cfg), nil
}

// NewGuidanceCard builds a card from an already normalized result.
func NewGuidanceCard(n *NormalizedAssessment, cfg FeedbackConfig) *GuidanceCard {
	return &GuidanceCard{
		TargetText:          n.TargetText,
		TargetDisplay:       n.DisplayText,
		TotalWords:          n.TotalWords,
		TotalPhonemes:       n.TotalPhonemes,
		ChallengingPhonemes: rankPhonemes(n.PhonemeErrors, cfg, false, cfg.MaxGuidancePhonemes),
		ChallengingWords:    rankWords(n.WordErrors, cfg, cfg.MaxGuidanceWords),
		ProsodyPatterns:     rankProsody(n.ProsodyIssues, cfg.GuidanceProsodyIssues),
		Reference:           n.Scores,
	}
}
