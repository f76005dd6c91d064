package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DataPath == "" {
		return errors.New("data_path must be set")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("max_upload_mb must be positive")
	}
	if c.UploadRateLimit < 0 {
		return errors.New("upload_rate_limit must be zero (disabled) or positive")
	}
	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("public_base_url must be an absolute http(s) URL, got %q", c.PublicBaseURL)
		}
	}
	if err := c.validateAssemblyAI(); err != nil {
		return err
	}
	if c.Refine.MaxTokens <= 0 {
		return errors.New("refine.max_tokens must be positive")
	}
	if c.Refine.Model == "" {
		return errors.New("refine.model must be set")
	}
	return c.validateLogging()
}

func (c *Config) validateAssemblyAI() error {
	d, err := parseInterval(c.AssemblyAI.PollInterval)
	if err != nil {
		return fmt.Errorf("assemblyai.poll_interval: %w", err)
	}
	if d <= 0 {
		return errors.New("assemblyai.poll_interval must be positive")
	}
	if c.AssemblyAI.MaxPollAttempts <= 0 {
		return errors.New("assemblyai.max_poll_attempts must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("logging.format must be auto, text or json; got %q", c.Logging.Format)
	}
	return nil
}
