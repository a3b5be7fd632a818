package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aaxconv/internal/services"
	"aaxconv/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckMetadataService_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	result := CheckMetadataService(context.Background(), srv.URL, time.Second)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckMetadataService_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	result := CheckMetadataService(context.Background(), srv.URL, time.Second)
	if result.Passed {
		t.Fatal("expected failure for server error")
	}
}

func TestCheckMetadataService_MissingURL(t *testing.T) {
	result := CheckMetadataService(context.Background(), "  ", time.Second)
	if result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_HealthyConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithMetadataURL(srv.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_SkipsStateDirWithoutHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.Enabled = false

	for _, r := range RunAll(context.Background(), cfg) {
		if r.Name == "State directory" {
			t.Fatal("state directory should not be checked when history is disabled")
		}
	}
}

func TestConversion(t *testing.T) {
	cases := []struct {
		name      string
		container string
		stubs     []string
		missing   string
	}{
		{name: "ogg without mkvmerge", container: "ogg", stubs: []string{"ffmpeg", "opusenc"}},
		{name: "webm needs mkvmerge", container: "webm", stubs: []string{"ffmpeg", "opusenc"}, missing: "mkvmerge"},
		{name: "opusenc missing", container: "mp4", stubs: []string{"ffmpeg"}, missing: "opusenc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PATH", "")
			cfg := testsupport.NewConfig(t,
				testsupport.WithContainer(tc.container),
				testsupport.WithStubbedBinaries(tc.stubs...),
			)
			err := Conversion(cfg, cfg.Paths.OutputDir)
			if tc.missing == "" {
				if err != nil {
					t.Fatalf("Conversion returned %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %s to be reported missing", tc.missing)
			}
			if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), tc.missing) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConversionRejectsMissingOutputDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	err := Conversion(cfg, filepath.Join(t.TempDir(), "absent"))
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing output dir error, got %v", err)
	}
}
