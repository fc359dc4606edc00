package capt

import (
	"context"
	"fmt"
	"strings"
)

// GenerateOptions carries the sampling parameters for one generation call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	Language    string
}

// Generator turns a prompt into coaching text.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return f(ctx, prompt, opts)
}

// StreamGenerator yields coaching text incrementally through onChunk.
type StreamGenerator interface {
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions, onChunk func(string) error) error
}

// FeedbackSource says where a feedback text came from.
type FeedbackSource string

const (
	SourcePrompt     FeedbackSource = "prompt"
	SourceGenerated  FeedbackSource = "generated"
	SourceFallback   FeedbackSource = "fallback"
	SourceStructured FeedbackSource = "structured"
)

// Feedback is the outcome of composing text feedback for one attempt.
// Err records a swallowed generation failure.
type Feedback struct {
	Text   string         `json:"text"`
	Source FeedbackSource `json:"source"`
	Prompt string         `json:"-"`
	Err    error          `json:"-"`
}

// GenerateFeedback returns the generated coaching text for summary, the
// prompt itself when gen is nil, or the deterministic fallback when gen
// fails. It never returns an error.
func GenerateFeedback(ctx context.Context, card *GuidanceCard, summary *AttemptSummary, gen Generator, cfg FeedbackConfig) string {
	return ComposeFeedback(ctx, card, summary, gen, cfg).Text
}

// ComposeFeedback is GenerateFeedback with the source and any swallowed
// error reported. The generator is called at most once.
func ComposeFeedback(ctx context.Context, card *GuidanceCard, summary *AttemptSummary, gen Generator, cfg FeedbackConfig) Feedback {
	prompt := BuildPrompt(card, summary, cfg)
	text := prompt.Format()
	if gen == nil {
		return Feedback{Text: text, Source: SourcePrompt, Prompt: text}
	}

	out, err := safeGenerate(ctx, gen, text, prompt.Options())
	if err != nil {
		return Feedback{Text: FallbackFeedback(summary, cfg), Source: SourceFallback, Prompt: text, Err: err}
	}
	return Feedback{Text: out, Source: SourceGenerated, Prompt: text}
}

// StreamFeedback streams generated text through onChunk. When gen is nil the
// prompt is sent as a single chunk. When generation fails before any chunk
// was delivered the fallback text is sent instead; a failure after partial
// output keeps the partial text. An error from onChunk stops the stream and
// is recorded in the result.
func StreamFeedback(ctx context.Context, card *GuidanceCard, summary *AttemptSummary, gen StreamGenerator, cfg FeedbackConfig, onChunk func(string) error) Feedback {
	prompt := BuildPrompt(card, summary, cfg)
	text := prompt.Format()
	if gen == nil {
		return Feedback{Text: text, Source: SourcePrompt, Prompt: text, Err: onChunk(text)}
	}

	var b strings.Builder
	var sinkErr error
	err := safeStream(ctx, gen, text, prompt.Options(), func(chunk string) error {
		if chunk == "" {
			return nil
		}
		if sinkErr = onChunk(chunk); sinkErr != nil {
			return sinkErr
		}
		b.WriteString(chunk)
		return nil
	})

	switch {
	case sinkErr != nil:
		return Feedback{Text: b.String(), Source: SourceGenerated, Prompt: text, Err: sinkErr}
	case err != nil && b.Len() == 0:
		fallback := FallbackFeedback(summary, cfg)
		if sendErr := onChunk(fallback); sendErr != nil {
			err = sendErr
		}
		return Feedback{Text: fallback, Source: SourceFallback, Prompt: text, Err: err}
	case err != nil:
		return Feedback{Text: b.String(), Source: SourceGenerated, Prompt: text, Err: err}
	default:
		return Feedback{Text: b.String(), Source: SourceGenerated, Prompt: text}
	}
}

func safeGenerate(ctx context.Context, gen Generator, prompt string, opts GenerateOptions) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	return gen.Generate(ctx, prompt, opts)
}

func safeStream(ctx context.Context, gen StreamGenerator, prompt string, opts GenerateOptions, onChunk func(string) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	return gen.GenerateStream(ctx, prompt, opts, onChunk)
}

// FallbackFeedback is the rule-based message used when generation fails. It
// depends only on the score band, the worst current error, the first
// improvement and whether this is a repeat attempt.
func FallbackFeedback(s *AttemptSummary, cfg FeedbackConfig) string {
	t := fallbackJA
	if cfg.FeedbackLanguage == "en" {
		t = fallbackEN
	}

	var b strings.Builder
	fmt.Fprintf(&b, t.opening[cfg.ClassifyScore(s.Scores.Overall)]+"\n", s.Scores.Overall)

	switch {
	case len(s.CurrentWordErrors) > 0:
		fmt.Fprintf(&b, t.word+"\n", s.CurrentWordErrors[0].Word)
	case len(s.CurrentPhonemeErrors) > 0:
		fmt.Fprintf(&b, t.phoneme+"\n", s.CurrentPhonemeErrors[0].Phoneme)
	}

	if len(s.ImprovedWords) > 0 {
		fmt.Fprintf(&b, t.improved+"\n", s.ImprovedWords[0])
	}

	if s.AttemptNumber > 1 {
		b.WriteString(t.keepGoing)
	} else {
		b.WriteString(t.nextTime)
	}
	return b.String()
}

type fallbackText struct {
	opening   map[ScoreCategory]string
	word      string
	phoneme   string
	improved  string
	keepGoing string
	nextTime  string
}

var fallbackJA = fallbackText{
	opening: map[ScoreCategory]string{
		CategoryExcellent: "素晴らしい発音です！スコア: %.0f点",
		CategoryGood:      "良い発音です。スコア: %.0f点",
		CategoryFair:      "まずまずの発音です。スコア: %.0f点",
		CategoryPoor:      "もう少し練習しましょう。スコア: %.0f点",
	},
	word:      "'%s'の発音に注目してください。",
	phoneme:   "/%s/の音に注意しましょう。",
	improved:  "'%s'が改善されました！",
	keepGoing: "継続して練習することで、さらに上達します！",
	nextTime:  "次回はもっと良くなるはずです！",
}

var fallbackEN = fallbackText{
	opening: map[ScoreCategory]string{
		CategoryExcellent: "Excellent pronunciation! Score: %.0f",
		CategoryGood:      "Good pronunciation. Score: %.0f",
		CategoryFair:      "Fair pronunciation. Score: %.0f",
		CategoryPoor:      "Let's keep practicing. Score: %.0f",
	},
	word:      "Pay attention to how you say '%s'.",
	phoneme:   "Watch the /%s/ sound.",
	improved:  "'%s' has improved!",
	keepGoing: "Keep practicing and you will improve even more!",
	nextTime:  "You will do even better next time!",
}
