package capt

import "sort"

// omittedSortScore places omitted words first within their priority tier.
const omittedSortScore = -1

func capList[T any](s []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(s) > n {
		s = s[:n]
	}
	return s
}

// rankPhonemes orders phoneme errors worst first. With criticalFirst,
// phonemes under the critical threshold come before the rest.
func rankPhonemes(errs []PhonemeError, cfg FeedbackConfig, criticalFirst bool, limit int) []PhonemeError {
	out := append(make([]PhonemeError, 0, len(errs)), errs...)
	sort.SliceStable(out, func(i, j int) bool {
		if criticalFirst {
			ci, cj := cfg.IsCriticalPhoneme(out[i].Score), cfg.IsCriticalPhoneme(out[j].Score)
			if ci != cj {
				return ci
			}
		}
		return out[i].Score < out[j].Score
	})
	return capList(out, limit)
}

// rankWords orders word errors by classification priority, then score.
func rankWords(errs []WordError, cfg FeedbackConfig, limit int) []WordError {
	out := append(make([]WordError, 0, len(errs)), errs...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := cfg.Priority(out[i].ErrorType), cfg.Priority(out[j].ErrorType)
		if pi != pj {
			return pi > pj
		}
		return out[i].ScoreOr(omittedSortScore) < out[j].ScoreOr(omittedSortScore)
	})
	return capList(out, limit)
}

func rankProsody(issues []ProsodyIssue, limit int) []ProsodyIssue {
	out := append(make([]ProsodyIssue, 0, len(issues)), issues...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return capList(out, limit)
}
