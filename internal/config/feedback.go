package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/windfall/phonoecho_service/internal/capt"
)

// LoadFeedbackConfig returns the default feedback configuration with the
// overrides from the YAML file at path applied. An empty path yields the
// defaults. Unknown keys are rejected.
func LoadFeedbackConfig(path string) (capt.FeedbackConfig, error) {
	if path == "" {
		return capt.DefaultFeedbackConfig(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return capt.FeedbackConfig{}, fmt.Errorf("open feedback config: %w", err)
	}
	defer f.Close()

	return DecodeFeedbackConfig(f)
}

// DecodeFeedbackConfig reads YAML overrides from r and applies them to the
// defaults. Map keys must name a known error type or score band.
func DecodeFeedbackConfig(r io.Reader) (capt.FeedbackConfig, error) {
	var o capt.FeedbackOverrides
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return capt.FeedbackConfig{}, fmt.Errorf("decode feedback config: %w", err)
	}

	if err := o.Validate(); err != nil {
		return capt.FeedbackConfig{}, fmt.Errorf("invalid feedback config: %w", err)
	}

	cfg := o.Apply(capt.DefaultFeedbackConfig())
	if err := cfg.Validate(); err != nil {
		return capt.FeedbackConfig{}, fmt.Errorf("invalid feedback config: %w", err)
	}
	return cfg, nil
}
