package capt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreeAttemptProgression(t *testing.T) {
	cfg := DefaultFeedbackConfig()

	card, err := BuildGuidanceCard(helloWorld(60), cfg)
	require.NoError(t, err)
	require.Len(t, card.ChallengingWords, 1)
	assert.Equal(t, "hello", card.ChallengingWords[0].Word)

	first, err := BuildAttemptSummary(helloWorld(60), 1, card, nil, cfg)
	require.NoError(t, err)
	assert.Empty(t, first.ImprovedWords)
	assert.Empty(t, first.RegressedWords)

	second, err := BuildAttemptSummary(helloWorld(90), 2, card, first, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, second.ImprovedWords)
	assert.Equal(t, []string{"ɛ in 'hello'"}, second.ImprovedPhonemes)
	assert.Empty(t, second.RegressedWords)
	assert.Empty(t, second.CurrentWordErrors)

	third, err := BuildAttemptSummary(helloWorld(65), 3, card, second, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, third.RegressedWords)
	assert.Equal(t, []string{"ɛ in 'hello'"}, third.RegressedPhonemes)
	assert.Empty(t, third.ImprovedWords)

	// Against the card alone "hello" is still a known problem, not a new one.
	againstCard, err := BuildAttemptSummary(helloWorld(65), 3, card, nil, cfg)
	require.NoError(t, err)
	assert.Empty(t, againstCard.RegressedWords)
	assert.Empty(t, againstCard.ImprovedWords)
}

func TestBaselinePrecedence(t *testing.T) {
	cfg := DefaultFeedbackConfig()
	withRocket := result("Red rocket.", 60,
		word("red", 92, "None"),
		word("rocket", 48, "Mispronunciation", phoneme("r", 35)),
	)
	fixed := result("Red rocket.", 90,
		word("red", 92, "None"),
		word("rocket", 91, "None", phoneme("r", 90)),
	)

	card, err := BuildGuidanceCard(withRocket, cfg)
	require.NoError(t, err)
	prev, err := BuildAttemptSummary(withRocket, 1, card, nil, cfg)
	require.NoError(t, err)

	tests := []struct {
		name string
		prev *AttemptSummary
	}{
		{name: "previous attempt", prev: prev},
		{name: "guidance card only", prev: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := BuildAttemptSummary(fixed, 2, card, tt.prev, cfg)
			require.NoError(t, err)
			assert.Contains(t, s.ImprovedWords, "rocket")
			assert.Contains(t, s.ImprovedPhonemes, "r in 'rocket'")
		})
	}
}

func TestPreviousAttemptOverridesCard(t *testing.T) {
	cfg := DefaultFeedbackConfig()
	card := &GuidanceCard{
		ChallengingWords: []WordError{{Word: "card", Score: fp(40), ErrorType: ErrorTypeMispronunciation}},
	}
	prev := &AttemptSummary{
		CurrentWordErrors: []WordError{{Word: "prev", Score: fp(40), ErrorType: ErrorTypeMispronunciation}},
	}

	s, err := BuildAttemptSummary(result("Clean.", 95, word("clean", 95, "None")), 2, card, prev, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"prev"}, s.ImprovedWords)
}

func TestImprovedAndRegressedAreDisjoint(t *testing.T) {
	cfg := DefaultFeedbackConfig()
	attempts := []*RawAssessment{
		result("A b c.", 50, word("a", 40, "Mispronunciation"), word("b", 90, "None"), word("c", 55, "None")),
		result("A b c.", 60, word("a", 95, "None"), word("b", 45, "Mispronunciation"), word("c", 58, "None")),
		result("A b c.", 70, word("a", 50, "None"), word("b", 96, "None"), word("c", 0, "Omission")),
		result("A b c.", 75, word("a", 97, "None"), word("b", 20, "Insertion"), word("c", 98, "None")),
	}

	card, err := BuildGuidanceCard(attempts[0], cfg)
	require.NoError(t, err)

	var prev *AttemptSummary
	for i, raw := range attempts {
		s, err := BuildAttemptSummary(raw, i+1, card, prev, cfg)
		require.NoError(t, err)

		regressed := make(map[string]bool, len(s.RegressedWords))
		for _, w := range s.RegressedWords {
			regressed[w] = true
		}
		for _, w := range s.ImprovedWords {
			assert.False(t, regressed[w], "attempt %d: %q both improved and regressed", i+1, w)
		}
		prev = s
	}
}

func TestDiffsKeepSourceOrderWithoutDuplicates(t *testing.T) {
	base := []PhonemeError{
		{Phoneme: "r", Word: "rocket", Position: 0},
		{Phoneme: "θ", Word: "think", Position: 0},
		{Phoneme: "r", Word: "rocket", Position: 4},
		{Phoneme: "l", Word: "light", Position: 0},
	}
	current := []PhonemeError{{Phoneme: "θ", Word: "think", Position: 0}}

	assert.Equal(t, []string{"r in 'rocket'", "l in 'light'"}, phonemeDiff(base, current))
	assert.Equal(t, []string{"w", "x"}, wordDiff(
		[]WordError{{Word: "w"}, {Word: "y"}, {Word: "w"}, {Word: "x"}},
		[]WordError{{Word: "y"}},
	))
}

func TestAttemptPhonemesCriticalFirst(t *testing.T) {
	raw := result("Word.", 50, word("word", 50, "Mispronunciation",
		phoneme("w", 65), phoneme("ɝ", 39), phoneme("d", 45), phoneme("x", 10),
	))

	s, err := BuildAttemptSummary(raw, 1, nil, nil, DefaultFeedbackConfig())
	require.NoError(t, err)

	var got []string
	for _, p := range s.CurrentPhonemeErrors {
		got = append(got, p.Phoneme)
	}
	assert.Equal(t, []string{"x", "ɝ", "d", "w"}, got)
}

func TestAttemptSummaryOmittedAndInserted(t *testing.T) {
	raw := result("I like it.", 60,
		word("i", 90, "None"),
		word("really", 50, "Insertion"),
		word("like", 0, "Omission"),
		word("it", 88, "None"),
	)

	s, err := BuildAttemptSummary(raw, 2, &GuidanceCard{}, nil, DefaultFeedbackConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"like"}, s.OmittedWords)
	assert.Equal(t, []string{"really"}, s.InsertedWords)
	assert.Equal(t, 2, s.AttemptNumber)
}
