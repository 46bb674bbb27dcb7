package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/NovoNihilo/clipforge/internal/clips"
)

var labelCaser = cases.Title(language.English)

func buildClipStatusRows(stats map[clips.Status]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(stats))
	for _, status := range clips.AllStatuses() {
		count, ok := stats[status]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(string(status)), fmt.Sprintf("%d", count)})
	}
	return rows
}

func buildClipListRows(items []*clips.Clip) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]*clips.Clip, len(items))
	copy(sorted, items)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	rows := make([][]string, 0, len(sorted))
	for _, clip := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", clip.ID),
			clip.Title(),
			clip.Platform,
			formatStatusLabel(string(clip.Status)),
			formatScore(clip.ViralScore),
			formatDisplayTime(clip.CreatedAt),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	return labelCaser.String(strings.ReplaceAll(status, "_", " "))
}

func formatScore(score *int) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *score)
}

func formatDisplayTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format("2006-01-02 15:04")
}
