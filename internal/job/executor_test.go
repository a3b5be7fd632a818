package job_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"aaxconv/internal/book"
	"aaxconv/internal/encoding"
	"aaxconv/internal/job"
	"aaxconv/internal/metadata"
	"aaxconv/internal/services"
	"aaxconv/internal/testsupport"
)

const (
	ffmpegStub = `eval last=\${$#}
if [ "$last" = "-" ]; then printf 'RIFFfakeaudio'; exit 0; fi
cp "$4" "$last"`
	opusencStub   = `eval last=\${$#}; exec cat > "$last"`
	mkvmergeStub  = `eval last=\${$#}; cp "$last" "$2"`
	failingStub   = "exit 1"
	endlessStub   = "exec yes"
	sampleASIN    = "B000TEST01"
	expectedTitle = "The Sample Book"
)

type fakeFetcher struct {
	rec   metadata.Record
	err   error
	calls atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, asin string) (metadata.Record, error) {
	f.calls.Add(1)
	if f.err != nil {
		return metadata.Record{}, f.err
	}
	return f.rec, nil
}

func newFetcher() *fakeFetcher {
	return &fakeFetcher{rec: metadata.Record{
		ASIN:    sampleASIN,
		Title:   expectedTitle,
		Authors: []metadata.Person{{Name: "Jane Doe"}},
	}}
}

type harness struct {
	book   *book.Book
	tools  encoding.Tools
	fetch  *fakeFetcher
	mu     sync.Mutex
	states []job.State
}

func newHarness(t *testing.T, ffmpegBody string) *harness {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "bin")
	src := filepath.Join(dir, "src")
	out := filepath.Join(dir, "out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	path := testsupport.WriteBook(t, src, testsupport.DefaultBookFixture("Sample_Book", sampleASIN))
	b, err := book.Load(path, out, book.LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return &harness{
		book: b,
		tools: encoding.Tools{
			FFmpeg:   testsupport.WriteStub(t, bin, "ffmpeg", ffmpegBody),
			Opusenc:  testsupport.WriteStub(t, bin, "opusenc", opusencStub),
			Mkvmerge: testsupport.WriteStub(t, bin, "mkvmerge", mkvmergeStub),
		},
		fetch: newFetcher(),
	}
}

func (h *harness) executor(t *testing.T, container encoding.Container) *job.Executor {
	t.Helper()
	exec, err := job.NewExecutor(job.Options{
		Container: container,
		Quality:   encoding.QualityStereoVoice,
		Tools:     h.tools,
		ChunkSize: 4,
		Metadata:  h.fetch,
		Observer: func(_ *book.Book, state job.State) {
			h.mu.Lock()
			h.states = append(h.states, state)
			h.mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	return exec
}

func partialFiles(t *testing.T, root string) []string {
	t.Helper()
	var found []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err == nil && strings.Contains(d.Name(), ".partial") {
			found = append(found, path)
		}
		return nil
	})
	return found
}

func TestRunOggCompletes(t *testing.T) {
	h := newHarness(t, ffmpegStub)
	outcome := h.executor(t, encoding.ContainerOgg).Run(context.Background(), h.book)

	if outcome.State != job.Completed || outcome.Err != nil {
		t.Fatalf("expected completion, got %v: %v", outcome.State, outcome.Err)
	}
	want := filepath.Join(h.book.OutputBaseDir, "Jane Doe", expectedTitle, expectedTitle+".opus")
	if outcome.OutputPath != want {
		t.Fatalf("output = %q, want %q", outcome.OutputPath, want)
	}
	data, err := os.ReadFile(outcome.OutputPath)
	if err != nil || string(data) != "RIFFfakeaudio" {
		t.Fatalf("unexpected output %q (%v)", data, err)
	}
	if leftovers := partialFiles(t, h.book.OutputBaseDir); len(leftovers) != 0 {
		t.Fatalf("partial files left behind: %v", leftovers)
	}
	wantStates := []job.State{job.MetadataFetch, job.Preparing, job.Transcoding, job.Muxing, job.Finalizing, job.Completed}
	if !slices.Equal(h.states, wantStates) {
		t.Fatalf("states = %v, want %v", h.states, wantStates)
	}
}

func TestRunMuxContainers(t *testing.T) {
	cases := []struct {
		container encoding.Container
		ext       string
		sidecars  []string
	}{
		{encoding.ContainerMP4, "m4b", []string{"ffmetadata"}},
		{encoding.ContainerWebM, "webm", []string{"tags", "chapters"}},
	}
	for _, tc := range cases {
		t.Run(tc.container.String(), func(t *testing.T) {
			h := newHarness(t, ffmpegStub)
			outcome := h.executor(t, tc.container).Run(context.Background(), h.book)
			if outcome.State != job.Completed {
				t.Fatalf("expected completion, got %v: %v", outcome.State, outcome.Err)
			}
			if filepath.Ext(outcome.OutputPath) != "."+tc.ext {
				t.Fatalf("unexpected output %q", outcome.OutputPath)
			}
			if _, err := os.Stat(outcome.OutputPath); err != nil {
				t.Fatalf("final output missing: %v", err)
			}
			for _, name := range append(tc.sidecars, expectedTitle+".partial.opus") {
				if _, err := os.Stat(filepath.Join(h.book.OutputDir, name)); !os.IsNotExist(err) {
					t.Fatalf("%s should have been removed (err=%v)", name, err)
				}
			}
			if _, err := os.Stat(filepath.Join(h.book.OutputDir, "cover.jpg")); err != nil {
				t.Fatalf("cover not copied: %v", err)
			}
		})
	}
}

func TestRunDecodeFailure(t *testing.T) {
	h := newHarness(t, failingStub)
	outcome := h.executor(t, encoding.ContainerMP4).Run(context.Background(), h.book)

	if outcome.State != job.Failed {
		t.Fatalf("expected failure, got %v", outcome.State)
	}
	var procErr *services.ProcessError
	if !errors.As(outcome.Err, &procErr) || procErr.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %v", outcome.Err)
	}
	if procErr.Args[0] != h.tools.FFmpeg || !slices.Contains(procErr.Args, "-audible_key") {
		t.Fatalf("expected decode argv, got %v", procErr.Args)
	}
	if _, err := os.Stat(h.book.OutputPath("m4b")); !os.IsNotExist(err) {
		t.Fatalf("no output may exist at the final path (err=%v)", err)
	}
	if leftovers := partialFiles(t, h.book.OutputBaseDir); len(leftovers) != 0 {
		t.Fatalf("partial files left behind: %v", leftovers)
	}
}

func TestRunMetadataFailure(t *testing.T) {
	h := newHarness(t, ffmpegStub)
	h.fetch.err = services.Wrap(services.ErrMetadata, "metadata", "request", "404", nil)

	outcome := h.executor(t, encoding.ContainerOgg).Run(context.Background(), h.book)
	if outcome.State != job.Failed || !errors.Is(outcome.Err, services.ErrMetadata) {
		t.Fatalf("expected metadata failure, got %v: %v", outcome.State, outcome.Err)
	}
	if services.IsFatal(outcome.Err) {
		t.Fatal("metadata failures must not be fatal to the run")
	}
	entries, _ := os.ReadDir(h.book.OutputBaseDir)
	if len(entries) != 0 {
		t.Fatalf("nothing should be written without metadata, found %d entries", len(entries))
	}
}

func TestRunSecondApplyIsFatal(t *testing.T) {
	h := newHarness(t, ffmpegStub)
	if err := h.book.ApplyMetadata(h.fetch.rec); err != nil {
		t.Fatal(err)
	}
	outcome := h.executor(t, encoding.ContainerOgg).Run(context.Background(), h.book)
	if outcome.State != job.Failed || !services.IsFatal(outcome.Err) {
		t.Fatalf("expected fatal precondition failure, got %v: %v", outcome.State, outcome.Err)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	h := newHarness(t, ffmpegStub)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := h.executor(t, encoding.ContainerOgg).Run(ctx, h.book)
	if outcome.State != job.Cancelled {
		t.Fatalf("expected cancellation, got %v", outcome.State)
	}
	if h.fetch.calls.Load() != 0 {
		t.Fatal("metadata must not be fetched after cancellation")
	}
}

func TestRunCancelledMidTranscode(t *testing.T) {
	h := newHarness(t, endlessStub)
	exec := h.executor(t, encoding.ContainerOgg)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(150*time.Millisecond, cancel)

	start := time.Now()
	outcome := exec.Run(ctx, h.book)
	if outcome.State != job.Cancelled {
		t.Fatalf("expected cancellation, got %v: %v", outcome.State, outcome.Err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation took %v", elapsed)
	}
	if _, err := os.Stat(h.book.OutputPath("opus")); !os.IsNotExist(err) {
		t.Fatalf("no output may exist at the final path (err=%v)", err)
	}
	if leftovers := partialFiles(t, h.book.OutputBaseDir); len(leftovers) != 0 {
		t.Fatalf("partial files left behind: %v", leftovers)
	}
}

func TestStateNames(t *testing.T) {
	if job.MetadataFetch.String() != "metadata_fetch" || job.State(99).String() != "unknown" {
		t.Fatal("unexpected state names")
	}
	if !job.Cancelled.Terminal() || job.Muxing.Terminal() {
		t.Fatal("unexpected terminal classification")
	}
}
