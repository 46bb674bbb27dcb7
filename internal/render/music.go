package render

import (
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMood names the music folder used when nothing more specific is
// known about a clip.
const DefaultMood = "funny"

var musicExtensions = map[string]struct{}{
	".mp3": {},
	".wav": {},
	".mp4": {},
}

// PickTrack selects a random music bed from root/<mood>, falling back to any
// track anywhere under root. An empty result means no music is available and
// the render proceeds without a bed.
func PickTrack(root, mood string) string {
	if strings.TrimSpace(root) == "" {
		return ""
	}
	if mood != "" {
		if tracks := tracksInDir(filepath.Join(root, mood)); len(tracks) > 0 {
			return tracks[rand.Intn(len(tracks))]
		}
	}
	if tracks := tracksUnder(root); len(tracks) > 0 {
		return tracks[rand.Intn(len(tracks))]
	}
	return ""
}

func tracksInDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var tracks []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := musicExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			tracks = append(tracks, filepath.Join(dir, entry.Name()))
		}
	}
	return tracks
}

func tracksUnder(root string) []string {
	var tracks []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if _, ok := musicExtensions[strings.ToLower(filepath.Ext(path))]; ok {
			tracks = append(tracks, path)
		}
		return nil
	})
	return tracks
}
