package config

import (
	"errors"
	"fmt"
	"strings"

	"aaxconv/internal/encoding"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if _, err := encoding.ParseContainer(c.Encoding.Container); err != nil {
		return fmt.Errorf("encoding.container: %w", err)
	}
	if _, err := encoding.ParseQuality(c.Encoding.Quality); err != nil {
		return fmt.Errorf("encoding.quality: %w", err)
	}
	if c.Encoding.Workers <= 0 {
		return errors.New("encoding.workers must be positive")
	}
	return nil
}

func (c *Config) validateMetadata() error {
	if !strings.HasPrefix(c.Metadata.BaseURL, "http://") && !strings.HasPrefix(c.Metadata.BaseURL, "https://") {
		return fmt.Errorf("metadata.base_url must be an http(s) url, got %q", c.Metadata.BaseURL)
	}
	if c.Metadata.TimeoutSeconds <= 0 {
		return errors.New("metadata.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.poll_interval_ms":     c.Workflow.PollIntervalMillis,
		"workflow.progress_interval_ms": c.Workflow.ProgressIntervalMillis,
		"workflow.chunk_size_kib":       c.Workflow.ChunkSizeKiB,
	}); err != nil {
		return err
	}
	if c.Workflow.ProgressIntervalMillis < c.Workflow.PollIntervalMillis {
		return errors.New("workflow.progress_interval_ms must not be shorter than workflow.poll_interval_ms")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
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

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) url, got %q", topic)
	}
	return nil
}
