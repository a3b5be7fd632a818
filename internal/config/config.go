package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"aaxconv/internal/encoding"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Encoding contains output format and external tool configuration.
type Encoding struct {
	Container            string `toml:"container"`
	Quality              string `toml:"quality"`
	Workers              int    `toml:"workers"`
	CombineChapterTitles bool   `toml:"combine_chapter_titles"`
	FFmpegBinary         string `toml:"ffmpeg_binary"`
	OpusencBinary        string `toml:"opusenc_binary"`
	MkvmergeBinary       string `toml:"mkvmerge_binary"`
}

// Metadata contains configuration for the remote metadata service.
type Metadata struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Workflow contains scheduler timing and pipe tuning.
type Workflow struct {
	PollIntervalMillis     int `toml:"poll_interval_ms"`
	ProgressIntervalMillis int `toml:"progress_interval_ms"`
	ChunkSizeKiB           int `toml:"chunk_size_kib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History contains configuration for the run ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Notifications contains ntfy delivery configuration.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Config encapsulates all configuration values for aaxconv.
//
// Configuration sections by subsystem:
//   - Paths: output, log, and state directories
//   - Encoding: container/quality selection, worker limit, tool binaries
//   - Metadata: remote metadata service endpoint
//   - Workflow: polling/progress intervals and transcode chunk size
//   - Logging: log format and level
//   - History: sqlite run ledger
//   - Notifications: ntfy run summaries
type Config struct {
	Paths    Paths    `toml:"paths"`
	Encoding Encoding `toml:"encoding"`
	Metadata Metadata `toml:"metadata"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
	History  History  `toml:"history"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/aaxconv/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("aaxconv.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories. The output
// directory is never created: it must already exist so its permissions can
// be inherited by per-book directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PollInterval is the scheduler/process cancellation check interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.PollIntervalMillis) * time.Millisecond
}

// ProgressInterval is the progress line refresh interval.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Workflow.ProgressIntervalMillis) * time.Millisecond
}

// ChunkSize is the transcode pipe copy chunk in bytes.
func (c *Config) ChunkSize() int {
	return c.Workflow.ChunkSizeKiB * 1024
}

// MetadataTimeout bounds a single metadata request.
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.Metadata.TimeoutSeconds) * time.Second
}

// HistoryPath returns the sqlite ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the single-run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "convert.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Tools returns the configured external binaries.
func (c *Config) Tools() encoding.Tools {
	return encoding.Tools{
		FFmpeg:   c.Encoding.FFmpegBinary,
		Opusenc:  c.Encoding.OpusencBinary,
		Mkvmerge: c.Encoding.MkvmergeBinary,
	}
}

// Container returns the validated output container.
func (c *Config) Container() encoding.Container {
	container, _ := encoding.ParseContainer(c.Encoding.Container)
	return container
}

// Quality returns the validated encoding quality.
func (c *Config) Quality() encoding.Quality {
	quality, _ := encoding.ParseQuality(c.Encoding.Quality)
	return quality
}
