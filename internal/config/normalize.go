package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoding()
	c.normalizeMetadata()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("AAXCONV_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoding() {
	c.Encoding.Container = strings.ToLower(strings.TrimSpace(c.Encoding.Container))
	if c.Encoding.Container == "" {
		c.Encoding.Container = defaultContainer
	}
	c.Encoding.Quality = strings.ToLower(strings.TrimSpace(c.Encoding.Quality))
	if c.Encoding.Quality == "" {
		c.Encoding.Quality = defaultQuality
	}
	c.Encoding.FFmpegBinary = defaultIfBlank(c.Encoding.FFmpegBinary, defaultFFmpegBinary)
	c.Encoding.OpusencBinary = defaultIfBlank(c.Encoding.OpusencBinary, defaultOpusencBinary)
	c.Encoding.MkvmergeBinary = defaultIfBlank(c.Encoding.MkvmergeBinary, defaultMkvmergeBinary)
}

func (c *Config) normalizeMetadata() {
	if value, ok := os.LookupEnv("AAXCONV_METADATA_URL"); ok && strings.TrimSpace(value) != "" {
		c.Metadata.BaseURL = value
	}
	c.Metadata.BaseURL = strings.TrimRight(defaultIfBlank(c.Metadata.BaseURL, defaultMetadataBaseURL), "/")
	c.Metadata.UserAgent = defaultIfBlank(c.Metadata.UserAgent, defaultMetadataUserAgent)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(defaultIfBlank(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(defaultIfBlank(c.Logging.Level, defaultLogLevel))
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("AAXCONV_NTFY_TOPIC"); ok {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSeconds
	}
}

func defaultIfBlank(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
