package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// Validate ensures the configuration is usable. It first runs struct-tag
// validation (required/gt/oneof constraints declared on Config's fields),
// then cross-field checks that validator tags can't express.
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return translateValidationError(err)
	}
	if err := ensurePositiveMap(map[string]int{
		"upload.timeout_s":                              c.Upload.TimeoutS,
		"upload.max_retries":                            c.Upload.MaxRetries,
		"generation.max_model_retries":                  c.Generation.MaxModelRetries,
		"generation.quota_cooldown_s":                   c.Generation.QuotaCooldownS,
		"scheduling.poll_interval_s":                    c.Scheduling.PollIntervalS,
		"scheduling.max_concurrent_segment_extractions": c.Scheduling.MaxConcurrentSegmentExtractions,
		"cleanup.retention_s":                           c.Cleanup.RetentionS,
		"cleanup.sweep_interval_s":                      c.Cleanup.SweepIntervalS,
	}); err != nil {
		return err
	}
	if c.Quality.MinTranslationScore > 1 || c.Quality.MinCulturalScore > 1 {
		return errors.New("quality thresholds must be in [0, 1]")
	}
	if len(c.Admission.AdmittedCodecs) == 0 {
		return errors.New("admission.admitted_codecs must not be empty")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func translateValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return fmt.Errorf("config: field %s failed %q constraint", first.Namespace(), first.Tag())
	}
	return fmt.Errorf("config: %w", err)
}
