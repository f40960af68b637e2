package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Materialize.validate(); err != nil {
		return fmt.Errorf("materialize: %w", err)
	}

	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return fmt.Errorf("storage.bucket is required")
	}

	if c.Vision.MaxLabels < 1 {
		return fmt.Errorf("vision.max_labels must be >= 1 (got %d)", c.Vision.MaxLabels)
	}

	if c.Speech.SampleRateHertz <= 0 {
		return fmt.Errorf("speech.sample_rate_hertz must be > 0 (got %d)", c.Speech.SampleRateHertz)
	}

	return nil
}

func (m *MaterializeConfig) validate() error {
	m.PivotLanguage = strings.ToLower(strings.TrimSpace(m.PivotLanguage))
	if m.PivotLanguage == "" {
		return fmt.Errorf("pivot_language is required")
	}
	if m.BulkConcurrency < 1 {
		return fmt.Errorf("bulk_concurrency must be >= 1 (got %d)", m.BulkConcurrency)
	}

	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"translate_timeout", m.TranslateTimeout},
		{"synthesize_timeout", m.SynthesizeTimeout},
		{"upload_timeout", m.UploadTimeout},
		{"recognize_timeout", m.RecognizeTimeout},
		{"speech_timeout", m.SpeechTimeout},
	}
	for _, to := range timeouts {
		if to.d <= 0 {
			return fmt.Errorf("%s must be > 0 (got %v)", to.name, to.d)
		}
	}

	return nil
}
