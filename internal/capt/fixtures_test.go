package capt

import "strings"

func fp(v float64) *float64 { return &v }

func sp(s string) *string { return &s }

// word builds an SDK-style word entry with a non-zero duration.
func word(text string, score float64, errType string, phonemes ...RawPhoneme) RawWord {
	wa := &RawWordAssessment{AccuracyScore: fp(score)}
	if errType != "" {
		wa.ErrorType = sp(errType)
	}
	return RawWord{
		Word:                    text,
		Offset:                  fp(1_000_000),
		Duration:                fp(3_000_000),
		PronunciationAssessment: wa,
		Phonemes:                phonemes,
	}
}

func phoneme(p string, score float64) RawPhoneme {
	return RawPhoneme{Phoneme: p, PronunciationAssessment: &RawPhonemeAssessment{AccuracyScore: fp(score)}}
}

func result(display string, overall float64, words ...RawWord) *RawAssessment {
	return &RawAssessment{
		RecognitionStatus: "Success",
		DisplayText:       display,
		NBest: []RawHypothesis{{
			Lexical: strings.ToLower(strings.Trim(display, ".!?")),
			PronunciationAssessment: &RawScores{
				AccuracyScore:     fp(overall),
				FluencyScore:      fp(overall),
				ProsodyScore:      fp(overall),
				CompletenessScore: fp(100),
				PronScore:         fp(overall),
			},
			Words: words,
		}},
	}
}

// helloWorld is the two-word lesson used by the progression scenarios.
func helloWorld(helloScore float64) *RawAssessment {
	return result("Hello world.", helloScore,
		word("hello", helloScore, "None", phoneme("h", 95), phoneme("ɛ", helloScore), phoneme("l", 96), phoneme("oʊ", 97)),
		word("world", 96, "None", phoneme("w", 96), phoneme("ɝ", 95), phoneme("l", 97), phoneme("d", 98)),
	)
}
