package config

import (
	"fmt"
	"os"
	"strings"

	"subextract/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGateway()
	c.normalizeMedia()
	c.normalizeOCR()
	c.normalizeLanguage()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InboxDir) == "" {
		c.Paths.InboxDir = defaultInboxDir
	}
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = defaultSocketPath
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeGateway() {
	c.Gateway.Listen = strings.TrimSpace(c.Gateway.Listen)
	if c.Gateway.Listen == "" {
		c.Gateway.Listen = defaultGatewayListen
	}
	c.Gateway.APIToken = strings.TrimSpace(c.Gateway.APIToken)
	if c.Gateway.APIToken == "" {
		if value, ok := os.LookupEnv("SUBEXTRACT_API_TOKEN"); ok {
			c.Gateway.APIToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeOCR() {
	c.OCR.TesseractBinary = strings.TrimSpace(c.OCR.TesseractBinary)
	if c.OCR.TesseractBinary == "" {
		c.OCR.TesseractBinary = defaultTesseractBinary
	}
	c.OCR.Threshold = strings.ToLower(strings.TrimSpace(c.OCR.Threshold))
	if c.OCR.Threshold == "" {
		c.OCR.Threshold = defaultOCRThreshold
	}
	langs := make([]string, 0, len(c.OCR.Languages))
	seen := make(map[string]struct{}, len(c.OCR.Languages))
	for _, lang := range c.OCR.Languages {
		trimmed := strings.TrimSpace(lang)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		langs = append(langs, trimmed)
	}
	if len(langs) == 0 {
		langs = append(langs, defaultOCRLanguages...)
	}
	c.OCR.Languages = langs
}

func (c *Config) normalizeLanguage() {
	c.Language.Policy = strings.ToLower(strings.TrimSpace(c.Language.Policy))
	switch c.Language.Policy {
	case "":
		c.Language.Policy = defaultLanguagePolicy
	case "keep_only", "keeponly":
		c.Language.Policy = PolicyKeepOnly
	case "keep_all", "keepall", "all":
		c.Language.Policy = PolicyKeepAll
	}
	if target := language.ToISO2(c.Language.Target); target != "" {
		c.Language.Target = target
	} else if strings.TrimSpace(c.Language.Target) == "" {
		c.Language.Target = defaultLanguageTarget
	}
	candidates := language.NormalizeList(c.Language.Candidates)
	if len(candidates) == 0 {
		candidates = append(candidates, defaultLanguageCandidates...)
	}
	if c.Language.Policy == PolicyKeepOnly && !contains(candidates, c.Language.Target) {
		candidates = append(candidates, c.Language.Target)
	}
	c.Language.Candidates = candidates
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
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

func contains(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}
