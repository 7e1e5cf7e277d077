package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateLanguage(); err != nil {
		return err
	}
	if err := c.validateGateway(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.max_workers":          c.Workflow.MaxWorkers,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.job_timeout":          c.Workflow.JobTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.IntervalSeconds <= 0 {
		return errors.New("pipeline.interval_seconds must be positive")
	}
	if err := ensurePositiveMap(map[string]int{
		"pipeline.region_min_width":  c.Pipeline.RegionMinWidth,
		"pipeline.region_min_height": c.Pipeline.RegionMinHeight,
		"pipeline.line_tolerance":    c.Pipeline.LineTolerance,
	}); err != nil {
		return err
	}
	if c.Pipeline.RegionPadding < 0 {
		return errors.New("pipeline.region_padding must not be negative")
	}
	if c.Pipeline.CueGapSeconds < 0 {
		return errors.New("pipeline.cue_gap_seconds must not be negative")
	}
	if c.Pipeline.MinCueSeconds < 0 {
		return errors.New("pipeline.min_cue_seconds must not be negative")
	}
	if c.Pipeline.DefaultCueSeconds <= 0 {
		return errors.New("pipeline.default_cue_seconds must be positive")
	}
	return nil
}

func (c *Config) validateOCR() error {
	switch c.OCR.Threshold {
	case ThresholdAdaptive, ThresholdOtsu:
	default:
		return fmt.Errorf("ocr.threshold must be %q or %q, got %q", ThresholdAdaptive, ThresholdOtsu, c.OCR.Threshold)
	}
	if strings.TrimSpace(c.OCR.Whitelist) == "" {
		return errors.New("ocr.whitelist must not be empty")
	}
	return nil
}

func (c *Config) validateLanguage() error {
	switch c.Language.Policy {
	case PolicyKeepOnly, PolicyKeepAll:
	default:
		return fmt.Errorf("language.policy must be %q or %q, got %q", PolicyKeepOnly, PolicyKeepAll, c.Language.Policy)
	}
	if c.Language.MinConfidence < 0 || c.Language.MinConfidence > 1 {
		return errors.New("language.min_confidence must be between 0 and 1")
	}
	if c.Language.Policy == PolicyKeepOnly && strings.TrimSpace(c.Language.Target) == "" {
		return errors.New("language.target must be set when language.policy is keep-only")
	}
	return nil
}

func (c *Config) validateGateway() error {
	if c.Gateway.MaxUploadMB <= 0 {
		return errors.New("gateway.max_upload_mb must be positive")
	}
	if c.Gateway.EventBuffer <= 0 {
		return errors.New("gateway.event_buffer must be positive")
	}
	return nil
}

func (c *Config) validateRetention() error {
	return ensurePositiveMap(map[string]int{
		"retention.job_days":               c.Retention.JobDays,
		"retention.staging_max_age_hours":  c.Retention.StagingMaxAgeHours,
		"retention.sweep_interval_minutes": c.Retention.SweepIntervalMinutes,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
