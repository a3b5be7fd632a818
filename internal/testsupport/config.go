package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"aaxconv/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The output directory is created because conversions require it to exist.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Metadata.BaseURL = "http://127.0.0.1:0"
	cfgVal.Workflow.PollIntervalMillis = 10
	cfgVal.Workflow.ProgressIntervalMillis = 20

	if err := os.MkdirAll(cfgVal.Paths.OutputDir, 0o755); err != nil {
		t.Fatalf("mkdir output dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMetadataURL points the metadata client at a test server.
func WithMetadataURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metadata.BaseURL = url
	}
}

// WithContainer selects the output container.
func WithContainer(container string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.Container = container
	}
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and prepends them to PATH. If names is empty, the default external
// tools are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "opusenc", "mkvmerge"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteStub(b.t, binDir, name, "exit 0")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WithStub writes a stub executable with the given shell body and points the
// matching binary setting at it.
func WithStub(name, body string) ConfigOption {
	return func(b *configBuilder) {
		path := WriteStub(b.t, filepath.Join(b.baseDir, "bin"), name, body)
		switch name {
		case "ffmpeg":
			b.cfg.Encoding.FFmpegBinary = path
		case "opusenc":
			b.cfg.Encoding.OpusencBinary = path
		case "mkvmerge":
			b.cfg.Encoding.MkvmergeBinary = path
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
