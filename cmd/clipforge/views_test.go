package main

import (
	"reflect"
	"testing"
	"time"

	"github.com/NovoNihilo/clipforge/internal/clips"
)

func TestFormatStatusLabel(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"discovered", "Discovered"},
		{"failed", "Failed"},
		{"  rendered  ", "Rendered"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := formatStatusLabel(tc.input); got != tc.want {
			t.Errorf("formatStatusLabel(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestFormatScore(t *testing.T) {
	if got := formatScore(nil); got != "-" {
		t.Fatalf("formatScore(nil) = %q, want -", got)
	}
	score := 7
	if got := formatScore(&score); got != "7" {
		t.Fatalf("formatScore(7) = %q", got)
	}
}

func TestFormatDisplayTime(t *testing.T) {
	if got := formatDisplayTime(time.Time{}); got != "" {
		t.Fatalf("zero time should render blank, got %q", got)
	}
	stamp := time.Date(2025, 3, 14, 9, 26, 53, 0, time.FixedZone("PST", -8*3600))
	if got := formatDisplayTime(stamp); got != "2025-03-14 17:26" {
		t.Fatalf("formatDisplayTime = %q", got)
	}
}

func TestBuildClipStatusRowsFollowsPipelineOrder(t *testing.T) {
	stats := map[clips.Status]int{
		clips.StatusFailed:     2,
		clips.StatusDiscovered: 5,
		clips.StatusRendered:   1,
		clips.StatusPackaged:   0,
	}
	rows := buildClipStatusRows(stats)
	want := [][]string{
		{"Discovered", "5"},
		{"Rendered", "1"},
		{"Failed", "2"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("buildClipStatusRows = %v, want %v", rows, want)
	}

	if rows := buildClipStatusRows(nil); rows != nil {
		t.Fatalf("expected nil rows for empty stats, got %v", rows)
	}
}

func TestBuildClipListRowsSortsNewestFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	score := 8
	items := []*clips.Clip{
		{
			ID:         1,
			Platform:   "twitch",
			ClipKey:    "older",
			Status:     clips.StatusPackaged,
			ViralScore: &score,
			Metadata:   clips.ClipMetadata{Title: "Older Clip"},
			CreatedAt:  base,
		},
		{
			ID:        3,
			Platform:  "kick",
			ClipKey:   "newer",
			Status:    clips.StatusDiscovered,
			CreatedAt: base.Add(time.Hour),
		},
		{
			ID:        2,
			Platform:  "twitch",
			ClipKey:   "tied",
			Status:    clips.StatusDiscovered,
			CreatedAt: base.Add(time.Hour),
		},
	}

	rows := buildClipListRows(items)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "3" || rows[1][0] != "2" || rows[2][0] != "1" {
		t.Fatalf("unexpected order: %v", rows)
	}
	if rows[2][1] != "Older Clip" {
		t.Fatalf("expected metadata title, got %q", rows[2][1])
	}
	if rows[0][1] != "newer" {
		t.Fatalf("expected clip key fallback title, got %q", rows[0][1])
	}
	if rows[2][4] != "8" || rows[0][4] != "-" {
		t.Fatalf("unexpected score cells: %v", rows)
	}
	if rows[0][5] != "2025-06-01 13:00" {
		t.Fatalf("unexpected created cell: %q", rows[0][5])
	}
}
