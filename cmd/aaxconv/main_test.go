package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"aaxconv/internal/config"
	"aaxconv/internal/scheduler"
	"aaxconv/internal/testsupport"
)

const (
	ffmpegStub = `eval last=\${$#}
if [ "$last" = "-" ]; then printf 'RIFFfakeaudio'; exit 0; fi
cp "$4" "$last"`
	opusencStub  = `eval last=\${$#}; exec cat > "$last"`
	mkvmergeStub = `eval last=\${$#}; cp "$last" "$2"`
	sampleASIN   = "B000TEST01"
	metadataJSON = `{"asin":"B000TEST01","title":"The Sample Book","authors":[{"name":"Jane Doe"}],` +
		`"narrators":[{"name":"Sam Reader"}],"genres":[{"name":"Fiction","type":"genre"}],` +
		`"language":"english","releaseDate":"2021-03-04T00:00:00.000Z","summary":"<p>Hi</p>"}`
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	sourceDir  string
}

func setupCLITestEnv(t *testing.T, ffmpegBody string) *cliTestEnv {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books/"+sampleASIN {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(metadataJSON))
	}))
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithMetadataURL(srv.URL),
		testsupport.WithStub("ffmpeg", ffmpegBody),
		testsupport.WithStub("opusenc", opusencStub),
		testsupport.WithStub("mkvmerge", mkvmergeStub),
	)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	sourceDir := filepath.Join(base, "source")
	testsupport.WriteBook(t, sourceDir, testsupport.DefaultBookFixture("Sample_Book", sampleASIN))

	return &cliTestEnv{cfg: cfg, configPath: configPath, sourceDir: sourceDir}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// newLockHolder takes the run lock from a separate file description, the way
// a second aaxconv process would hold it.
func newLockHolder(t *testing.T, path string) func() {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir lock dir: %v", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock = %v, %v", locked, err)
	}
	return func() { _ = lock.Unlock() }
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConvertDirectoryEndToEnd(t *testing.T) {
	env := setupCLITestEnv(t, ffmpegStub)

	out, _, err := runCLI(t, []string{"convert", env.sourceDir, "-c", "ogg", "-t", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	requireContains(t, out, "Enqueued 1 jobs at: ")
	requireContains(t, out, "Progress: 1/1")
	requireContains(t, out, "successfully, elapsed: ")

	final := filepath.Join(env.cfg.Paths.OutputDir, "Jane Doe", "The Sample Book", "The Sample Book.opus")
	content, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("expected output at %s: %v", final, err)
	}
	if string(content) != "RIFFfakeaudio" {
		t.Fatalf("unexpected output content %q", content)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "ogg/stereo-voice")
	requireContains(t, out, "ok")
}

func TestConvertOutputFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t, ffmpegStub)
	target := filepath.Join(t.TempDir(), "elsewhere")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}

	_, _, err := runCLI(t, []string{"convert", env.sourceDir, "-o", target, "--quiet"}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "Jane Doe", "The Sample Book", "The Sample Book.opus")); err != nil {
		t.Fatalf("expected output under -o directory: %v", err)
	}
}

func TestConvertWebMRemux(t *testing.T) {
	env := setupCLITestEnv(t, ffmpegStub)

	out, _, err := runCLI(t, []string{"convert", env.sourceDir, "-c", "webm", "-q", "mono-voice"}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	bookDir := filepath.Join(env.cfg.Paths.OutputDir, "Jane Doe", "The Sample Book")
	for _, name := range []string{"The Sample Book.webm", "cover.jpg"} {
		if _, err := os.Stat(filepath.Join(bookDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	for _, name := range []string{"tags", "chapters", "The Sample Book.partial.opus"} {
		if _, err := os.Stat(filepath.Join(bookDir, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be cleaned up, stat err = %v", name, err)
		}
	}
}

func TestConvertFailureExitsNonZero(t *testing.T) {
	env := setupCLITestEnv(t, "exit 1")

	out, _, err := runCLI(t, []string{"convert", env.sourceDir}, env.configPath)
	var exitErr exitCodeError
	if !errors.As(err, &exitErr) || exitErr.code != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
	requireContains(t, out, "exec failed with code 1")
	requireContains(t, out, "with 1 failure, elapsed: ")

	outDir := filepath.Join(env.cfg.Paths.OutputDir, "Jane Doe", "The Sample Book")
	entries, _ := os.ReadDir(outDir)
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".partial") {
			t.Fatalf("partial file left behind: %s", entry.Name())
		}
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "failed")
}

func TestConvertRejectsInvalidFlags(t *testing.T) {
	env := setupCLITestEnv(t, ffmpegStub)

	cases := [][]string{
		{"convert", env.sourceDir, "-c", "flac"},
		{"convert", env.sourceDir, "-q", "loud"},
		{"convert", env.sourceDir, "-t", "0"},
		{"convert", filepath.Join(env.sourceDir, "missing.aaxc")},
	}
	for _, args := range cases {
		if _, _, err := runCLI(t, args, env.configPath); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
}

func TestConvertRefusesConcurrentRun(t *testing.T) {
	env := setupCLITestEnv(t, ffmpegStub)

	holder := newLockHolder(t, env.cfg.LockPath())
	defer holder()

	_, _, err := runCLI(t, []string{"convert", env.sourceDir}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestHistoryRunDetail(t *testing.T) {
	env := setupCLITestEnv(t, ffmpegStub)
	if _, _, err := runCLI(t, []string{"convert", env.sourceDir, "--quiet"}, env.configPath); err != nil {
		t.Fatalf("convert: %v", err)
	}

	store := testsupport.MustOpenHistory(t, env.cfg)
	runs, err := store.RecentRuns(t.Context(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("RecentRuns = %v, %v", runs, err)
	}

	out, _, err := runCLI(t, []string{"history", "--run", runs[0].ID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history --run: %v", err)
	}
	requireContains(t, out, "The Sample Book")
	requireContains(t, out, "completed")
	requireContains(t, out, sampleASIN)
}

func TestCheckReportsMissingTool(t *testing.T) {
	env := setupCLITestEnv(t, ffmpegStub)
	env.cfg.Encoding.OpusencBinary = filepath.Join(t.TempDir(), "no-opusenc")
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	var exitErr exitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected non-zero exit, got %v", err)
	}
	requireContains(t, out, "opusenc")
	requireContains(t, out, "missing")
	requireContains(t, out, "Output directory")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, ffmpegStub)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestFinishLine(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	cases := []struct {
		summary scheduler.Summary
		want    string
	}{
		{scheduler.Summary{Elapsed: 1500 * time.Millisecond}, "Finished at 2024-05-06 07:08:09.000 successfully, elapsed: 1.500s"},
		{scheduler.Summary{Failed: 1}, "with 1 failure, elapsed: 0.000s"},
		{scheduler.Summary{Failed: 2}, "with 2 failures,"},
		{scheduler.Summary{WasCancelled: true}, "after cancellation, elapsed"},
	}
	for _, tc := range cases {
		requireContains(t, finishLine(tc.summary, at), tc.want)
	}
}

func TestConvertSendsRunNotification(t *testing.T) {
	env := setupCLITestEnv(t, ffmpegStub)
	titles := make(chan string, 1)
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles <- r.Header.Get("Title")
	}))
	defer ntfy.Close()
	env.cfg.Notifications.NtfyTopic = ntfy.URL
	writeTestConfig(t, env.configPath, env.cfg)

	if _, _, err := runCLI(t, []string{"convert", env.sourceDir, "--quiet"}, env.configPath); err != nil {
		t.Fatalf("convert: %v", err)
	}
	select {
	case title := <-titles:
		if title != "aaxconv - Finished" {
			t.Fatalf("unexpected notification title %q", title)
		}
	default:
		t.Fatal("expected a run notification")
	}
}

func TestLogsFiltersByRun(t *testing.T) {
	env := setupCLITestEnv(t, ffmpegStub)
	if _, _, err := runCLI(t, []string{"convert", env.sourceDir, "--quiet"}, env.configPath); err != nil {
		t.Fatalf("convert: %v", err)
	}
	store := testsupport.MustOpenHistory(t, env.cfg)
	runs, err := store.RecentRuns(t.Context(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("RecentRuns = %v, %v", runs, err)
	}

	out, _, err := runCLI(t, []string{"logs", "--run", runs[0].ID[:8], "-n", "100"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, runs[0].ID)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.Contains(line, runs[0].ID) {
			t.Fatalf("line without run id: %q", line)
		}
	}
}
