package capt

// BuildAttemptSummary normalizes an attempt result and compares it with
// the baseline: prev when given, otherwise card.
func BuildAttemptSummary(raw *RawAssessment, attemptNumber int, card *GuidanceCard, prev *AttemptSummary, cfg FeedbackConfig) (*AttemptSummary, error) {
	n, err := Normalize(raw, cfg)
	if err != nil {
		return nil, err
	}
	return NewAttemptSummary(n, attemptNumber, card, prev, cfg), nil
}

// NewAttemptSummary builds a summary from an already normalized result.
//
// Improvements are baseline problems absent from the current bounded lists.
// Regressions are current problems absent from prev, and are only computed
// when prev is non-nil. Both are pure set differences over the bounded
// lists, so an entity can count as improved just by dropping out of the
// top N.
func NewAttemptSummary(n *NormalizedAssessment, attemptNumber int, card *GuidanceCard, prev *AttemptSummary, cfg FeedbackConfig) *AttemptSummary {
	s := &AttemptSummary{
		AttemptNumber:        attemptNumber,
		Scores:               n.Scores,
		CurrentPhonemeErrors: rankPhonemes(n.PhonemeErrors, cfg, true, cfg.MaxAttemptErrors),
		CurrentWordErrors:    rankWords(n.WordErrors, cfg, cfg.MaxAttemptErrors),
		CurrentProsodyIssues: rankProsody(n.ProsodyIssues, cfg.MaxAttemptErrors),
		ImprovedPhonemes:     []string{},
		ImprovedWords:        []string{},
		RegressedPhonemes:    []string{},
		RegressedWords:       []string{},
		OmittedWords:         append([]string{}, n.Omitted...),
		InsertedWords:        append([]string{}, n.Inserted...),
	}

	var basePhonemes []PhonemeError
	var baseWords []WordError
	switch {
	case prev != nil:
		basePhonemes, baseWords = prev.CurrentPhonemeErrors, prev.CurrentWordErrors
	case card != nil:
		basePhonemes, baseWords = card.ChallengingPhonemes, card.ChallengingWords
	}

	s.ImprovedPhonemes = phonemeDiff(basePhonemes, s.CurrentPhonemeErrors)
	s.ImprovedWords = wordDiff(baseWords, s.CurrentWordErrors)
	if prev != nil {
		s.RegressedPhonemes = phonemeDiff(s.CurrentPhonemeErrors, prev.CurrentPhonemeErrors)
		s.RegressedWords = wordDiff(s.CurrentWordErrors, prev.CurrentWordErrors)
	}
	return s
}

// phonemeDiff returns labels of keys in from that are missing in minus,
// in the order of from and without duplicates.
func phonemeDiff(from, minus []PhonemeError) []string {
	exclude := make(map[PhonemeKey]struct{}, len(minus))
	for _, p := range minus {
		exclude[p.Key()] = struct{}{}
	}
	out := []string{}
	for _, p := range from {
		k := p.Key()
		if _, ok := exclude[k]; ok {
			continue
		}
		exclude[k] = struct{}{}
		out = append(out, k.Label())
	}
	return out
}

func wordDiff(from, minus []WordError) []string {
	exclude := make(map[string]struct{}, len(minus))
	for _, w := range minus {
		exclude[w.Word] = struct{}{}
	}
	out := []string{}
	for _, w := range from {
		if _, ok := exclude[w.Word]; ok {
			continue
		}
		exclude[w.Word] = struct{}{}
		out = append(out, w.Word)
	}
	return out
}
