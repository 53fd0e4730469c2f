package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeSegmentation()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.JobStoreDir, err = expandPath(c.Paths.JobStoreDir); err != nil {
		return fmt.Errorf("paths.job_store_dir: %w", err)
	}
	if c.Paths.PromptTemplateRegistry, err = expandPath(c.Paths.PromptTemplateRegistry); err != nil {
		return fmt.Errorf("paths.prompt_template_registry_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeSegmentation() {
	for i, codec := range c.Admission.AdmittedCodecs {
		c.Admission.AdmittedCodecs[i] = strings.ToLower(strings.TrimSpace(codec))
	}
	c.Segmentation.SegmenterBinary = strings.TrimSpace(c.Segmentation.SegmenterBinary)
	if c.Segmentation.SegmenterBinary == "" {
		c.Segmentation.SegmenterBinary = "ffmpeg"
	}
}
