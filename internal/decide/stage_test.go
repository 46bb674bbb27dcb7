package decide_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/decide"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/media"
	"github.com/NovoNihilo/clipforge/internal/profiles"
	"github.com/NovoNihilo/clipforge/internal/services"
)

type fakeCompleter struct {
	response  string
	err       error
	healthErr error
	calls     int
	gotSystem string
	gotUser   string
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.gotSystem = systemPrompt
	f.gotUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeCompleter) HealthCheck(context.Context) error { return f.healthErr }

func writeTranscript(t *testing.T, transcript *media.Transcript) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.json")
	if err := transcript.Save(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func speechTranscript() *media.Transcript {
	return &media.Transcript{
		Segments: []media.Segment{
			{Start: 0.5, End: 14.0, Text: "he really did that live on stream"},
			{Start: 14.5, End: 30.0, Text: "and the chat completely lost it"},
		},
		Duration: 34,
		FullText: "he really did that live on stream and the chat completely lost it",
	}
}

func decidableClip(t *testing.T, transcript *media.Transcript) *clips.Clip {
	t.Helper()
	return &clips.Clip{
		ID:       7,
		Platform: "twitch",
		ClipKey:  "AwkwardClipKey-abc",
		Status:   clips.StatusTranscribed,
		Metadata: clips.ClipMetadata{
			Title:       "He actually won",
			CreatorName: "streamdude",
			ViewCount:   1234567,
		},
		Paths: clips.ArtifactPaths{Transcript: writeTranscript(t, transcript)},
	}
}

func goodVerdictJSON() string {
	return `{
		"segment_start": 2.0,
		"segment_end": 31.5,
		"viral_score": 8,
		"viral_reason": "instant chaos with a clean payoff",
		"hook_description": "chair breaks mid-sentence",
		"content_safe": true,
		"content_flag": "",
		"post_copy": {
			"shorts": {"title": "He actually did it", "caption": "No way this is real", "hashtags": ["#shorts", "#funny"]},
			"tiktok": {"title": "He actually did it #fyp", "caption": "", "hashtags": ["#fyp"]},
			"reels": {"title": "He actually did it", "caption": "", "hashtags": ["#reels"]}
		}
	}`
}

func TestExecuteDecidesClip(t *testing.T) {
	fake := &fakeCompleter{response: goodVerdictJSON()}
	st := decide.NewStage(fake, profiles.Default(), "funny-streamers", logging.NewNop())
	clip := decidableClip(t, speechTranscript())

	if err := st.Execute(context.Background(), clip); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if clip.Paths.EditDecision == "" {
		t.Fatal("edit decision path not recorded")
	}
	if filepath.Dir(clip.Paths.EditDecision) != filepath.Dir(clip.Paths.Transcript) {
		t.Fatalf("decision %q not beside transcript %q", clip.Paths.EditDecision, clip.Paths.Transcript)
	}
	if clip.ViralScore == nil || *clip.ViralScore != 8 {
		t.Fatalf("clip viral score = %v, want 8", clip.ViralScore)
	}

	decision, err := decide.Load(clip.Paths.EditDecision)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if decision.ProfileSlug != "funny-streamers" || decision.ClipKey != "AwkwardClipKey-abc" {
		t.Fatalf("decision identity = %q/%q", decision.ProfileSlug, decision.ClipKey)
	}
	if decision.Segment != (decide.Segment{Start: 2, End: 31.5}) {
		t.Fatalf("segment = %+v", decision.Segment)
	}
	if decision.Layout.Mode != "center_crop" || decision.Layout.Target != "9:16" {
		t.Fatalf("layout = %+v", decision.Layout)
	}
	if !decision.Captions.Enabled || decision.Captions.Style != "bold_white" || decision.Captions.MaxWords != 3 {
		t.Fatalf("captions = %+v", decision.Captions)
	}
	if got := decision.Outputs[decide.DestinationReels].MaxLenSec; got != 90 {
		t.Fatalf("reels ceiling = %v, want 90", got)
	}
	if err := decision.Validate(); err != nil {
		t.Fatalf("saved decision invalid: %v", err)
	}
}

func TestExecutePromptsCarryClipFacts(t *testing.T) {
	fake := &fakeCompleter{response: goodVerdictJSON()}
	st := decide.NewStage(fake, profiles.Default(), "funny-streamers", logging.NewNop())

	if err := st.Execute(context.Background(), decidableClip(t, speechTranscript())); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	for _, want := range []string{"Target length: 12-40 seconds", "content_safe", "ONLY a JSON object"} {
		if !strings.Contains(fake.gotSystem, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, fake.gotSystem)
		}
	}
	for _, want := range []string{
		"Title: He actually won",
		"Creator: streamdude",
		"Views: 1,234,567",
		"Category: Just Chatting",
		"PROFILE NICHE: funny livestreamers",
		"[0.5s - 14.0s] he really did that live on stream",
		"FULL TEXT: he really did that live on stream",
	} {
		if !strings.Contains(fake.gotUser, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, fake.gotUser)
		}
	}
}

func TestExecuteFailsWithoutTranscript(t *testing.T) {
	st := decide.NewStage(&fakeCompleter{}, profiles.Default(), "funny-streamers", logging.NewNop())

	err := st.Execute(context.Background(), &clips.Clip{ID: 1, Status: clips.StatusTranscribed})
	if err == nil {
		t.Fatal("expected error for missing transcript")
	}
	if got := services.FailureReason(err, "fallback"); got != "transcript_missing" {
		t.Fatalf("fail reason = %q, want transcript_missing", got)
	}
	if !errors.Is(err, services.ErrDataIntegrity) {
		t.Fatalf("expected data integrity classification, got %v", err)
	}
}

func TestExecutePreFilterRejectsBeforeModelCall(t *testing.T) {
	transcript := speechTranscript()
	transcript.FullText = "spin the slots at the casino with me tonight"
	fake := &fakeCompleter{response: goodVerdictJSON()}
	st := decide.NewStage(fake, profiles.Default(), "funny-streamers", logging.NewNop())

	err := st.Execute(context.Background(), decidableClip(t, transcript))
	if err == nil {
		t.Fatal("expected pre-filter rejection")
	}
	if got := services.FailureReason(err, "fallback"); got != "hard_reject:gambling_content" {
		t.Fatalf("fail reason = %q", got)
	}
	if !errors.Is(err, services.ErrContentPolicy) {
		t.Fatalf("expected content policy classification, got %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("model called %d times despite pre-filter rejection", fake.calls)
	}
}

func TestExecuteWrapsModelFailure(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("upstream melted")}
	st := decide.NewStage(fake, profiles.Default(), "funny-streamers", logging.NewNop())

	err := st.Execute(context.Background(), decidableClip(t, speechTranscript()))
	if err == nil {
		t.Fatal("expected error from model failure")
	}
	if got := services.FailureReason(err, "fallback"); got != "llm_call_failed" {
		t.Fatalf("fail reason = %q, want llm_call_failed", got)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool classification, got %v", err)
	}
}

func TestExecuteRejectsMalformedVerdict(t *testing.T) {
	fake := &fakeCompleter{response: "sorry, I cannot help with that"}
	st := decide.NewStage(fake, profiles.Default(), "funny-streamers", logging.NewNop())

	err := st.Execute(context.Background(), decidableClip(t, speechTranscript()))
	if err == nil {
		t.Fatal("expected error for malformed verdict")
	}
	if got := services.FailureReason(err, "fallback"); !strings.HasPrefix(got, "edit_decision_invalid:") {
		t.Fatalf("fail reason = %q, want edit_decision_invalid prefix", got)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation classification, got %v", err)
	}
}

func TestExecuteRejectsOutOfRangeScore(t *testing.T) {
	fake := &fakeCompleter{response: strings.Replace(goodVerdictJSON(), `"viral_score": 8`, `"viral_score": 14`, 1)}
	st := decide.NewStage(fake, profiles.Default(), "funny-streamers", logging.NewNop())

	err := st.Execute(context.Background(), decidableClip(t, speechTranscript()))
	if err == nil {
		t.Fatal("expected error for out-of-range score")
	}
	if got := services.FailureReason(err, "fallback"); !strings.HasPrefix(got, "edit_decision_invalid:") {
		t.Fatalf("fail reason = %q", got)
	}
}

func TestExecuteRejectsUnsafeContent(t *testing.T) {
	response := strings.Replace(goodVerdictJSON(), `"content_safe": true`, `"content_safe": false`, 1)
	response = strings.Replace(response, `"content_flag": ""`, `"content_flag": "harassment"`, 1)
	fake := &fakeCompleter{response: response}
	st := decide.NewStage(fake, profiles.Default(), "funny-streamers", logging.NewNop())
	clip := decidableClip(t, speechTranscript())

	err := st.Execute(context.Background(), clip)
	if err == nil {
		t.Fatal("expected unsafe content rejection")
	}
	if got := services.FailureReason(err, "fallback"); got != "content_unsafe:harassment" {
		t.Fatalf("fail reason = %q", got)
	}
	if !errors.Is(err, services.ErrContentPolicy) {
		t.Fatalf("expected content policy classification, got %v", err)
	}
	if clip.Paths.EditDecision != "" {
		t.Fatal("unsafe clip must not record a decision artifact")
	}
}

func TestExecuteRejectsLowViralScore(t *testing.T) {
	fake := &fakeCompleter{response: strings.Replace(goodVerdictJSON(), `"viral_score": 8`, `"viral_score": 2`, 1)}
	st := decide.NewStage(fake, profiles.Default(), "funny-streamers", logging.NewNop())
	clip := decidableClip(t, speechTranscript())

	err := st.Execute(context.Background(), clip)
	if err == nil {
		t.Fatal("expected low score rejection")
	}
	if got := services.FailureReason(err, "fallback"); got != "low_viral_score:2" {
		t.Fatalf("fail reason = %q", got)
	}
	if clip.ViralScore == nil || *clip.ViralScore != 2 {
		t.Fatalf("clip viral score = %v, want 2 recorded for the failure row", clip.ViralScore)
	}
	if clip.Paths.EditDecision != "" {
		t.Fatal("demoted clip must not record a decision artifact")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(clip.Paths.Transcript), "edit_decision.json")); !os.IsNotExist(err) {
		t.Fatalf("edit_decision.json should not exist, stat err = %v", err)
	}
}

func TestExecuteFillsSparseVerdict(t *testing.T) {
	// No segment, no titles, no hashtags: the decision falls back to the full
	// clip duration, the clip title, and the profile hashtag bank.
	fake := &fakeCompleter{response: `{
		"viral_score": 6,
		"content_safe": true,
		"post_copy": {"shorts": {"title": "", "caption": "", "hashtags": []}}
	}`}
	st := decide.NewStage(fake, profiles.Default(), "funny-streamers", logging.NewNop())
	clip := decidableClip(t, speechTranscript())

	if err := st.Execute(context.Background(), clip); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	decision, err := decide.Load(clip.Paths.EditDecision)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if decision.Segment != (decide.Segment{Start: 0, End: 34}) {
		t.Fatalf("segment = %+v, want full duration", decision.Segment)
	}
	if got := decision.PostCopy[decide.DestinationShorts].Title; got != "He actually won" {
		t.Fatalf("shorts title = %q, want clip title fallback", got)
	}
	wantTags := profiles.Default().Hashtags(5)
	gotTags := decision.PostCopy[decide.DestinationTikTok].Hashtags
	if len(gotTags) != len(wantTags) || gotTags[0] != wantTags[0] {
		t.Fatalf("tiktok hashtags = %v, want bank fallback %v", gotTags, wantTags)
	}
	if err := decision.Validate(); err != nil {
		t.Fatalf("sparse decision invalid: %v", err)
	}
}

func TestStageLifecycleShape(t *testing.T) {
	st := decide.NewStage(&fakeCompleter{}, profiles.Default(), "funny-streamers", logging.NewNop())
	if st.From() != clips.StatusTranscribed || st.To() != clips.StatusDecided {
		t.Fatalf("stage edges = %s -> %s", st.From(), st.To())
	}
	if st.Name() != "decide" {
		t.Fatalf("stage name = %q", st.Name())
	}

	if h := st.HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected healthy stage, got %+v", h)
	}
	broken := decide.NewStage(&fakeCompleter{healthErr: errors.New("bad api key")}, profiles.Default(), "funny-streamers", logging.NewNop())
	if h := broken.HealthCheck(context.Background()); h.Ready || !strings.Contains(h.Detail, "bad api key") {
		t.Fatalf("expected unhealthy stage, got %+v", h)
	}
}
