package render_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/decide"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/media"
	"github.com/NovoNihilo/clipforge/internal/media/ffprobe"
	"github.com/NovoNihilo/clipforge/internal/render"
	"github.com/NovoNihilo/clipforge/internal/services"
)

type fakeEngine struct {
	jobs      []render.Job
	err       error
	outputLen int
	skipWrite bool
}

func (f *fakeEngine) Render(_ context.Context, job render.Job) error {
	f.jobs = append(f.jobs, job)
	if f.err != nil {
		return f.err
	}
	if f.skipWrite {
		return nil
	}
	size := f.outputLen
	if size == 0 {
		size = 4096
	}
	return os.WriteFile(job.Spec.OutputPath, make([]byte, size), 0o644)
}

type fakeDiarizer struct {
	turns []media.Turn
	err   error
}

func (f *fakeDiarizer) Ready(context.Context) error { return nil }

func (f *fakeDiarizer) Diarize(context.Context, string, media.Segment) ([]media.Turn, error) {
	return f.turns, f.err
}

func stubProbe(t *testing.T) {
	t.Helper()
	restore := render.SetProbeForTests(func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{
			{CodecType: "video", Width: 1080, Height: 1920},
			{CodecType: "audio", Channels: 2},
		}}, nil
	})
	t.Cleanup(restore)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.AssetsDir = t.TempDir()
	return &cfg
}

func testDecision(clip *clips.Clip) *decide.Decision {
	copyFor := func(title string) decide.PlatformCopy {
		return decide.PlatformCopy{
			Title:    title,
			Caption:  "wait for it",
			Hashtags: []string{"#shorts", "#funny"},
		}
	}
	return &decide.Decision{
		ProfileSlug: "funny-clips",
		ClipKey:     clip.ClipKey,
		Segment:     decide.Segment{Start: 0.5, End: 25},
		Layout:      decide.Layout{Mode: "center_crop", Target: "9:16"},
		Captions:    decide.CaptionConfig{Enabled: true, Style: "bold_white", Position: "bottom_center", MaxWords: 3},
		Audio:       decide.AudioConfig{Normalize: true},
		Outputs: map[string]decide.OutputSpec{
			decide.DestinationShorts: {MaxLenSec: 60},
			decide.DestinationTikTok: {MaxLenSec: 60},
			decide.DestinationReels:  {MaxLenSec: 90},
		},
		PostCopy: map[string]decide.PlatformCopy{
			decide.DestinationShorts: copyFor("He pulled it off"),
			decide.DestinationTikTok: copyFor("He pulled it off fr"),
			decide.DestinationReels:  copyFor("He pulled it off"),
		},
		ViralScore: 8,
	}
}

// renderableClip lays out a decided clip with source, transcript, and edit
// decision artifacts in one temp dir.
func renderableClip(t *testing.T) *clips.Clip {
	t.Helper()
	dir := t.TempDir()

	source := filepath.Join(dir, "source.mp4")
	if err := os.WriteFile(source, make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("writing source: %v", err)
	}

	transcript := &media.Transcript{
		Segments: []media.Segment{
			{Start: 1, End: 9, Text: "he really did that shit live"},
			{Start: 9.5, End: 24, Text: "and chat completely lost it"},
		},
		Words: []media.Word{
			{Text: "he", Start: 1.0, End: 1.2},
			{Text: "really", Start: 1.3, End: 1.6},
			{Text: "did", Start: 1.7, End: 1.9},
			{Text: "that", Start: 2.0, End: 2.2},
			{Text: "shit", Start: 2.3, End: 2.6},
			{Text: "live", Start: 2.7, End: 3.0},
			{Text: "and", Start: 9.5, End: 9.7},
			{Text: "chat", Start: 9.8, End: 10.1},
			{Text: "completely", Start: 10.2, End: 10.8},
			{Text: "lost", Start: 10.9, End: 11.2},
			{Text: "it", Start: 11.3, End: 11.5},
		},
		Language: "en",
		Duration: 26,
	}
	transcript.RebuildFullText()
	transcriptPath := filepath.Join(dir, "transcript.json")
	if err := transcript.Save(transcriptPath); err != nil {
		t.Fatalf("writing transcript: %v", err)
	}

	clip := &clips.Clip{
		ID:       11,
		Platform: "twitch",
		ClipKey:  "BraveClipKey-xyz",
		Status:   clips.StatusDecided,
		Metadata: clips.ClipMetadata{Title: "He actually won", CreatorName: "streamdude"},
	}
	clip.Paths.Source = source
	clip.Paths.Transcript = transcriptPath

	decisionPath := filepath.Join(dir, "edit_decision.json")
	if err := testDecision(clip).Save(decisionPath); err != nil {
		t.Fatalf("writing decision: %v", err)
	}
	clip.Paths.EditDecision = decisionPath

	return clip
}

func TestExecuteRendersClip(t *testing.T) {
	stubProbe(t)
	engine := &fakeEngine{}
	clip := renderableClip(t)
	stage := render.NewStage(testConfig(t), engine, &fakeDiarizer{}, logging.NewNop())

	if err := stage.Execute(context.Background(), clip); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	wantOut := filepath.Join(filepath.Dir(clip.Paths.Source), "rendered.mp4")
	if clip.Paths.Rendered != wantOut {
		t.Fatalf("Paths.Rendered = %q, want %q", clip.Paths.Rendered, wantOut)
	}
	if len(engine.jobs) != 1 {
		t.Fatalf("expected one render job, got %d", len(engine.jobs))
	}

	job := engine.jobs[0]
	if job.WorkDir != filepath.Dir(clip.Paths.Source) {
		t.Fatalf("WorkDir = %q", job.WorkDir)
	}
	spec := job.Spec
	if spec.SourcePath != clip.Paths.Source || spec.OutputPath != wantOut {
		t.Fatalf("unexpected spec paths: %+v", spec)
	}
	if spec.Segment != (media.Segment{Start: 0.5, End: 25}) {
		t.Fatalf("spec segment = %+v", spec.Segment)
	}
	if len(spec.Cues) == 0 {
		t.Fatalf("expected caption cues")
	}
	if len(spec.TitleLines) == 0 || spec.TitleLines[0] != "He pulled it off" {
		t.Fatalf("title lines = %v", spec.TitleLines)
	}
	if len(spec.Bleeps) != 1 || spec.Bleeps[0].Word != "shit" || spec.Bleeps[0].Start != 2.3 {
		t.Fatalf("bleeps = %+v", spec.Bleeps)
	}
	if spec.MusicPath != "" {
		t.Fatalf("expected no music bed without a library, got %q", spec.MusicPath)
	}
}

func TestExecuteCensorsCueText(t *testing.T) {
	stubProbe(t)
	engine := &fakeEngine{}
	clip := renderableClip(t)
	stage := render.NewStage(testConfig(t), engine, nil, logging.NewNop())

	if err := stage.Execute(context.Background(), clip); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	censored := false
	for _, cue := range engine.jobs[0].Spec.Cues {
		if strings.Contains(cue.Text, "shit") {
			t.Fatalf("profanity left in cue %q", cue.Text)
		}
		if strings.Contains(cue.Text, "[BLEEP]") {
			censored = true
		}
	}
	if !censored {
		t.Fatalf("expected a censored cue, got %+v", engine.jobs[0].Spec.Cues)
	}
}

func TestExecuteColorsCuesFromDiarization(t *testing.T) {
	stubProbe(t)
	engine := &fakeEngine{}
	clip := renderableClip(t)
	diarizer := &fakeDiarizer{turns: []media.Turn{{Start: 0, End: 26, Speaker: "SPEAKER_01"}}}
	stage := render.NewStage(testConfig(t), engine, diarizer, logging.NewNop())

	if err := stage.Execute(context.Background(), clip); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	for _, cue := range engine.jobs[0].Spec.Cues {
		if cue.Color != "yellow" {
			t.Fatalf("expected speaker color on cue, got %+v", cue)
		}
	}
}

func TestExecuteDiarizerFailureIsNonFatal(t *testing.T) {
	stubProbe(t)
	engine := &fakeEngine{}
	clip := renderableClip(t)
	diarizer := &fakeDiarizer{err: errors.New("uvx: command not found")}
	stage := render.NewStage(testConfig(t), engine, diarizer, logging.NewNop())

	if err := stage.Execute(context.Background(), clip); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	for _, cue := range engine.jobs[0].Spec.Cues {
		if cue.Color != "white" {
			t.Fatalf("expected default speaker color, got %+v", cue)
		}
	}
}

func TestExecuteCaptionsDisabledOmitsCues(t *testing.T) {
	stubProbe(t)
	engine := &fakeEngine{}
	clip := renderableClip(t)
	decision := testDecision(clip)
	decision.Captions.Enabled = false
	if err := decision.Save(clip.Paths.EditDecision); err != nil {
		t.Fatalf("rewriting decision: %v", err)
	}
	stage := render.NewStage(testConfig(t), engine, nil, logging.NewNop())

	if err := stage.Execute(context.Background(), clip); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	spec := engine.jobs[0].Spec
	if len(spec.Cues) != 0 {
		t.Fatalf("expected no cues, got %+v", spec.Cues)
	}
	if len(spec.TitleLines) == 0 {
		t.Fatalf("expected the title overlay to survive disabled captions")
	}
	if len(spec.Bleeps) != 1 {
		t.Fatalf("expected audio bleeps to survive disabled captions, got %+v", spec.Bleeps)
	}
}

func TestExecutePicksMusicBed(t *testing.T) {
	stubProbe(t)
	engine := &fakeEngine{}
	clip := renderableClip(t)
	cfg := testConfig(t)
	track := filepath.Join(cfg.MusicDir(), "funny", "kazoo.mp3")
	if err := os.MkdirAll(filepath.Dir(track), 0o755); err != nil {
		t.Fatalf("creating music dir: %v", err)
	}
	if err := os.WriteFile(track, []byte("riff"), 0o644); err != nil {
		t.Fatalf("writing track: %v", err)
	}
	stage := render.NewStage(cfg, engine, nil, logging.NewNop())

	if err := stage.Execute(context.Background(), clip); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if got := engine.jobs[0].Spec.MusicPath; got != track {
		t.Fatalf("MusicPath = %q, want %q", got, track)
	}

	cfg.Render.MusicEnabled = false
	clip = renderableClip(t)
	if err := stage.Execute(context.Background(), clip); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if got := engine.jobs[1].Spec.MusicPath; got != "" {
		t.Fatalf("expected no music when disabled, got %q", got)
	}
}

func TestExecuteFailsWithoutEditDecision(t *testing.T) {
	stubProbe(t)
	clip := renderableClip(t)
	clip.Paths.EditDecision = ""
	stage := render.NewStage(testConfig(t), &fakeEngine{}, nil, logging.NewNop())

	err := stage.Execute(context.Background(), clip)
	if err == nil {
		t.Fatal("expected error for missing edit decision")
	}
	if got := services.FailureReason(err, ""); got != "render_failed" {
		t.Fatalf("fail reason = %q", got)
	}
	if !errors.Is(err, services.ErrDataIntegrity) {
		t.Fatalf("expected data integrity marker, got %v", err)
	}
}

func TestExecuteEngineFailureMarksRenderFailed(t *testing.T) {
	stubProbe(t)
	engineErr := errors.New("ffmpeg exit status 1")
	clip := renderableClip(t)
	stage := render.NewStage(testConfig(t), &fakeEngine{err: engineErr}, nil, logging.NewNop())

	err := stage.Execute(context.Background(), clip)
	if !errors.Is(err, engineErr) {
		t.Fatalf("expected the engine error in the chain, got %v", err)
	}
	if got := services.FailureReason(err, ""); got != "render_failed" {
		t.Fatalf("fail reason = %q", got)
	}
	if clip.Paths.Rendered != "" {
		t.Fatalf("Paths.Rendered should stay empty, got %q", clip.Paths.Rendered)
	}
}

func TestExecuteRejectsTinyOutput(t *testing.T) {
	stubProbe(t)
	clip := renderableClip(t)
	stage := render.NewStage(testConfig(t), &fakeEngine{outputLen: 64}, nil, logging.NewNop())

	err := stage.Execute(context.Background(), clip)
	if err == nil {
		t.Fatal("expected error for tiny output")
	}
	if got := services.FailureReason(err, ""); got != "render_output_invalid" {
		t.Fatalf("fail reason = %q", got)
	}
	if !errors.Is(err, services.ErrDataIntegrity) {
		t.Fatalf("expected data integrity marker, got %v", err)
	}
}

func TestExecuteRejectsMissingOutput(t *testing.T) {
	stubProbe(t)
	clip := renderableClip(t)
	stage := render.NewStage(testConfig(t), &fakeEngine{skipWrite: true}, nil, logging.NewNop())

	err := stage.Execute(context.Background(), clip)
	if err == nil {
		t.Fatal("expected error for missing output")
	}
	if got := services.FailureReason(err, ""); got != "render_output_invalid" {
		t.Fatalf("fail reason = %q", got)
	}
}

func TestExecuteRejectsUnprobeableOutput(t *testing.T) {
	restore := render.SetProbeForTests(func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("moov atom not found")
	})
	t.Cleanup(restore)

	clip := renderableClip(t)
	stage := render.NewStage(testConfig(t), &fakeEngine{}, nil, logging.NewNop())

	err := stage.Execute(context.Background(), clip)
	if err == nil {
		t.Fatal("expected error for unprobeable output")
	}
	if got := services.FailureReason(err, ""); got != "render_output_invalid" {
		t.Fatalf("fail reason = %q", got)
	}
	if clip.Paths.Rendered != "" {
		t.Fatalf("Paths.Rendered should stay empty, got %q", clip.Paths.Rendered)
	}
}

func TestStageLifecycleShape(t *testing.T) {
	stage := render.NewStage(testConfig(t), &fakeEngine{}, nil, logging.NewNop())
	if stage.Name() != "render" {
		t.Fatalf("Name = %q", stage.Name())
	}
	if stage.From() != clips.StatusDecided || stage.To() != clips.StatusRendered {
		t.Fatalf("lifecycle = %s -> %s", stage.From(), stage.To())
	}
}
