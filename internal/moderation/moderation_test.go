package moderation_test

import (
	"strings"
	"testing"

	"github.com/NovoNihilo/clipforge/internal/media"
	"github.com/NovoNihilo/clipforge/internal/moderation"
)

func fillerText(fillers int, flagged ...string) string {
	words := make([]string, 0, fillers+len(flagged))
	for i := 0; i < fillers; i++ {
		words = append(words, "chat")
	}
	words = append(words, flagged...)
	return strings.Join(words, " ")
}

func repeat(word string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = word
	}
	return out
}

func TestPreFilterHardRejects(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		reason string
	}{
		{
			name:   "obfuscated slur",
			text:   "bro really said n-igga on stream",
			reason: "hard_reject:slur_detected",
		},
		{
			name:   "gambling promo",
			text:   "chat we are spinning slots on stream tonight",
			reason: "hard_reject:gambling_content",
		},
		{
			name:   "casino mention",
			text:   "he lost it all at the casino again",
			reason: "hard_reject:gambling_content",
		},
		{
			name:   "explicit content",
			text:   "she said check my onlyfans in chat",
			reason: "hard_reject:explicit_sexual_content",
		},
		{
			name:   "slur outranks gambling",
			text:   "n-igga check the casino",
			reason: "hard_reject:slur_detected",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := moderation.PreFilter(tc.text)
			if result.Passed {
				t.Fatalf("expected reject for %q", tc.text)
			}
			if result.Reason != tc.reason {
				t.Fatalf("Reason = %q, want %q", result.Reason, tc.reason)
			}
		})
	}
}

func TestPreFilterProfanityCaps(t *testing.T) {
	// 9 flagged out of 60 words trips the absolute cap of 8.
	text := fillerText(51, repeat("damn", 9)...)
	result := moderation.PreFilter(text)
	if result.Passed {
		t.Fatal("expected 9 bleep words to fail")
	}
	if result.Reason != "hard_reject:too_many_profanities(9)" {
		t.Fatalf("Reason = %q", result.Reason)
	}

	// 7 of 60 stays under both the cap and the density ceiling.
	text = fillerText(53, repeat("damn", 7)...)
	result = moderation.PreFilter(text)
	if !result.Passed {
		t.Fatalf("expected 7 of 60 to pass, got %q", result.Reason)
	}

	// 3 of 21 words is only three bleeps but 14% density.
	text = fillerText(18, repeat("shit", 3)...)
	result = moderation.PreFilter(text)
	if result.Passed {
		t.Fatal("expected high density to fail")
	}
	if result.Reason != "hard_reject:profanity_density(14%)" {
		t.Fatalf("Reason = %q", result.Reason)
	}
}

func TestPreFilterCleansPunctuation(t *testing.T) {
	result := moderation.PreFilter(fillerText(5, "SHIT!", "Fuck,", "daMN."))
	if result.Passed {
		// 3 of 8 words is 37% density.
		t.Fatal("expected punctuated profanity to still count")
	}

	if clean := moderation.PreFilter("what a wholesome stream moment everyone"); !clean.Passed {
		t.Fatalf("clean text rejected: %q", clean.Reason)
	}
}

func TestBleepMapWindowsWords(t *testing.T) {
	transcript := &media.Transcript{
		Words: []media.Word{
			{Text: "holy", Start: 0.0, End: 0.4},
			{Text: "shit!", Start: 0.4, End: 0.8},
			{Text: "that", Start: 0.8, End: 1.0},
			{Text: "was", Start: 1.0, End: 1.2},
			{Text: "fucking", Start: 9.5, End: 9.9},
			{Text: "insane", Start: 9.9, End: 10.4},
		},
	}

	spans := moderation.BleepMap(transcript, 0, 5)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Word != "shit!" || spans[0].Replacement != "[BLEEP]" {
		t.Fatalf("unexpected span: %#v", spans[0])
	}
	if spans[0].Start != 0.4 || spans[0].End != 0.8 {
		t.Fatalf("span timing %v..%v", spans[0].Start, spans[0].End)
	}

	spans = moderation.BleepMap(transcript, 0, 11)
	if len(spans) != 2 {
		t.Fatalf("got %d spans over the full clip, want 2", len(spans))
	}

	if got := moderation.BleepMap(&media.Transcript{}, 0, 10); got != nil {
		t.Fatalf("expected nil without word timing, got %#v", got)
	}
}

func TestCensorText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"holy shit that was insane", "holy [BLEEP] that was insane"},
		{"he is such a badass player", "he is such a [BLEEP] player"},
		{"totally clean caption", "totally clean caption"},
		{"DAMN, no way", "[BLEEP] no way"},
	}
	for _, tc := range cases {
		if got := moderation.CensorText(tc.in); got != tc.want {
			t.Errorf("CensorText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
