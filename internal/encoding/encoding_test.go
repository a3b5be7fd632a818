package encoding_test

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"aaxconv/internal/book"
	"aaxconv/internal/encoding"
)

func sampleBook() *book.Book {
	tags := book.NewTags()
	tags.Set("asin", "B000TEST01")
	tags.Set("artist", "Jane Doe,Prince")
	tags.Set("title", "Rock & Roll")
	tags.Set("description", "a=b; #1")
	return &book.Book{
		SourcePath:       "/in/Rock-AAX_44_128.aaxc",
		Key:              "KEY",
		IV:               "IV",
		InputStartOffset: 2 * time.Second,
		OutputDuration:   time.Hour + 500*time.Millisecond,
		CoverFile:        "/in/Rock_(500).jpg",
		OutputDir:        "/out/Jane Doe,Prince/Rock & Roll",
		OutputName:       "Rock & Roll",
		Chapters: []book.Chapter{
			{Index: 0, Title: "Intro", Duration: 8 * time.Second},
			{Index: 1, Title: "Part <One>", Duration: time.Hour, OutputOffset: 8 * time.Second},
		},
		Tags: tags,
	}
}

func TestParseContainerAndQuality(t *testing.T) {
	if c, err := encoding.ParseContainer(" MP4 "); err != nil || c != encoding.ContainerMP4 {
		t.Fatalf("ParseContainer = %v, %v", c, err)
	}
	if _, err := encoding.ParseContainer("flac"); err == nil {
		t.Fatal("expected error for unsupported container")
	}
	if q, err := encoding.ParseQuality("stereo-voice"); err != nil || q != encoding.QualityStereoVoice {
		t.Fatalf("ParseQuality = %v, %v", q, err)
	}
	if _, err := encoding.ParseQuality("lossless"); err == nil {
		t.Fatal("expected error for unsupported quality")
	}
}

func TestPolicyTables(t *testing.T) {
	qualities := []struct {
		q       encoding.Quality
		bitrate string
		mono    bool
		speech  bool
	}{
		{encoding.QualityMonoVoice, "32k", true, true},
		{encoding.QualityStereoVoice, "48k", false, true},
		{encoding.QualityStereo, "64k", false, false},
	}
	b := sampleBook()
	tools := encoding.DefaultTools()
	for _, tc := range qualities {
		t.Run(tc.q.String(), func(t *testing.T) {
			enc := tools.EncodeArgs(b, tc.q, encoding.ContainerMP4, "/tmp/out.opus")
			if !slices.Contains(enc, "--bitrate") || enc[slices.Index(enc, "--bitrate")+1] != tc.bitrate {
				t.Fatalf("unexpected bitrate args %v", enc)
			}
			if slices.Contains(enc, "--speech") != tc.speech {
				t.Fatalf("speech flag mismatch in %v", enc)
			}
			dec := tools.DecodeArgs(b, tc.q)
			if slices.Contains(dec, "-ac") != tc.mono {
				t.Fatalf("channel args mismatch in %v", dec)
			}
		})
	}

	if encoding.ContainerOgg.Policy().NeedsMux {
		t.Fatal("ogg must not need a mux pass")
	}
	if !encoding.ContainerMP4.Policy().NeedsMux || encoding.ContainerMP4.Policy().Extension != "m4b" {
		t.Fatalf("unexpected mp4 policy %+v", encoding.ContainerMP4.Policy())
	}
}

func TestDecodeArgs(t *testing.T) {
	args := encoding.Tools{FFmpeg: "/usr/bin/ffmpeg"}.DecodeArgs(sampleBook(), encoding.QualityMonoVoice)
	want := []string{
		"/usr/bin/ffmpeg", "-loglevel", "error",
		"-audible_key", "KEY", "-audible_iv", "IV",
		"-i", "/in/Rock-AAX_44_128.aaxc",
		"-ss", "00:00:02.000", "-t", "01:00:00.500",
		"-map_metadata", "-1", "-ac", "1", "-f", "wav", "-",
	}
	if !slices.Equal(args, want) {
		t.Fatalf("decode args\n got %v\nwant %v", args, want)
	}
}

func TestEncodeArgsOggCarriesInlineMetadata(t *testing.T) {
	args := encoding.DefaultTools().EncodeArgs(sampleBook(), encoding.QualityStereo, encoding.ContainerOgg, "/out/x.opus")
	joined := strings.Join(args, "\x00")
	for _, fragment := range []string{
		"--title\x00Rock & Roll",
		"--artist\x00Jane Doe,Prince",
		"--comment\x00asin=B000TEST01",
		"--picture\x00/in/Rock_(500).jpg",
		"--comment\x00CHAPTER000=00:00:00.000",
		"--comment\x00CHAPTER001NAME=Part <One>",
	} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("missing %q in %v", fragment, args)
		}
	}
	if args[len(args)-2] != "-" || args[len(args)-1] != "/out/x.opus" {
		t.Fatalf("expected stdin input and output path at the end: %v", args)
	}

	plain := encoding.DefaultTools().EncodeArgs(sampleBook(), encoding.QualityStereo, encoding.ContainerWebM, "/out/x.opus")
	if slices.Contains(plain, "--title") || slices.Contains(plain, "--picture") {
		t.Fatalf("non-ogg encode must not carry tags: %v", plain)
	}
}

func TestPlanMuxMP4(t *testing.T) {
	b := sampleBook()
	plan := encoding.DefaultTools().PlanMux(b, encoding.ContainerMP4, "/out/in.opus", "/out/final.m4b")
	if plan == nil || len(plan.Sidecars) != 1 {
		t.Fatalf("expected one sidecar, got %+v", plan)
	}
	if plan.Sidecars[0].Path != filepath.Join(b.OutputDir, "ffmetadata") {
		t.Fatalf("unexpected sidecar path %q", plan.Sidecars[0].Path)
	}
	content := plan.Sidecars[0].Content
	for _, fragment := range []string{
		";FFMETADATA1\n",
		"description=" + `a\=b\; \#1` + "\n",
		"[CHAPTER]\nTIMEBASE=1/1000\nSTART=8000\nEND=3608000\nTITLE=Part <One>\n",
	} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("ffmetadata missing %q:\n%s", fragment, content)
		}
	}
	want := []string{"ffmpeg", "-loglevel", "error", "-i", "/out/in.opus", "-i", plan.Sidecars[0].Path,
		"-map_metadata", "1", "-codec", "copy", "-f", "mp4", "/out/final.m4b"}
	if !slices.Equal(plan.Args, want) {
		t.Fatalf("mux args\n got %v\nwant %v", plan.Args, want)
	}
}

func TestPlanMuxWebM(t *testing.T) {
	b := sampleBook()
	plan := encoding.DefaultTools().PlanMux(b, encoding.ContainerWebM, "/out/in.opus", "/out/final.webm")
	if plan == nil || len(plan.Sidecars) != 2 {
		t.Fatalf("expected two sidecars, got %+v", plan)
	}
	if plan.Args[0] != "mkvmerge" || !slices.Contains(plan.Args, "--webm") {
		t.Fatalf("unexpected mkvmerge args %v", plan.Args)
	}
	if !strings.Contains(plan.Sidecars[0].Content, "<String>Rock &amp; Roll</String>") {
		t.Fatalf("tags not escaped:\n%s", plan.Sidecars[0].Content)
	}
	chapters := plan.Sidecars[1].Content
	for _, fragment := range []string{
		"<ChapterUID>2</ChapterUID>",
		"<ChapterTimeStart>00:00:08.000</ChapterTimeStart>",
		"<ChapterTimeEnd>01:00:08.000</ChapterTimeEnd>",
		"<ChapterString>Part &lt;One&gt;</ChapterString>",
	} {
		if !strings.Contains(chapters, fragment) {
			t.Fatalf("chapters missing %q:\n%s", fragment, chapters)
		}
	}
}

func TestPlanMuxOggIsNil(t *testing.T) {
	if plan := encoding.DefaultTools().PlanMux(sampleBook(), encoding.ContainerOgg, "a", "b"); plan != nil {
		t.Fatalf("expected no mux plan for ogg, got %+v", plan)
	}
}
