package render

import (
	"fmt"
	"strings"
)

const (
	captionFontSize = 80
	captionBorder   = 4
	// captionY places cues in the lower quarter, clear of platform UI chrome.
	captionY = "h*0.78"

	titleFontSize   = 72
	titleLineHeight = 90
	titleBaseY      = 100
	titleBoxColor   = "black@0.55"
	titleBoxBorder  = 12

	// Broadcast-style loudness for speech; platforms renormalize anything
	// hotter.
	loudnormFilter = "loudnorm=I=-14:TP=-1:LRA=11"

	musicVolume     = 0.10
	musicFadeInSec  = 1.0
	musicFadeOutSec = 2.0
)

// escapeDrawtext neutralizes the characters ffmpeg's drawtext parser treats
// specially. Apostrophes become typographic quotes because a quoted filter
// script cannot carry an escaped ASCII one reliably.
func escapeDrawtext(text string) string {
	escaped := strings.ReplaceAll(text, `\`, `\\\\`)
	escaped = strings.ReplaceAll(escaped, "'", "’")
	escaped = strings.ReplaceAll(escaped, ":", `\:`)
	escaped = strings.ReplaceAll(escaped, "%", "%%")
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return escaped
}

// fullProgram serializes the complete filter_complex: blurred-background
// layout with overlays into [vout] and the speech/music program into [aout].
func fullProgram(spec Spec) string {
	video := blurLayout()
	if overlays := overlayChain(spec); overlays != "" {
		video += "," + overlays
	}
	video += "[vout]"
	return video + ";" + audioProgram(spec)
}

// blurLayout scales a blurred copy of the frame to fill the vertical canvas
// and overlays the sharp original centered on it, so no part of the source
// frame is cropped away.
func blurLayout() string {
	return fmt.Sprintf(
		"[0:v]split[bg][fg];"+
			"[bg]scale=%d:%d:force_original_aspect_ratio=increase,"+
			"crop=%d:%d,"+
			"boxblur=20:5[blurred];"+
			"[fg]scale=%d:-2[sharp];"+
			"[blurred][sharp]overlay=(W-w)/2:(H-h)/2",
		FrameWidth, FrameHeight, FrameWidth, FrameHeight, FrameWidth,
	)
}

// simpleVideoChain is the first fallback: scale and pad into the vertical
// frame, keeping captions and title.
func simpleVideoChain(spec Spec) string {
	chain := bareVideoChain()
	if overlays := overlayChain(spec); overlays != "" {
		chain += "," + overlays
	}
	return chain
}

// bareVideoChain is the last fallback: geometry only.
func bareVideoChain() string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		FrameWidth, FrameHeight, FrameWidth, FrameHeight,
	)
}

// overlayChain joins caption and title drawtext filters.
func overlayChain(spec Spec) string {
	filters := append(captionFilters(spec), titleFilters(spec)...)
	return strings.Join(filters, ",")
}

func captionFilters(spec Spec) []string {
	filters := make([]string, 0, len(spec.Cues))
	for _, cue := range spec.Cues {
		text := strings.TrimSpace(cue.Text)
		if text == "" {
			continue
		}
		color := cue.Color
		if color == "" {
			color = "white"
		}
		filters = append(filters, fmt.Sprintf(
			"drawtext=text='%s':fontsize=%d:fontcolor=%s%s:borderw=%d:bordercolor=black:x=(w-text_w)/2:y=%s:enable='between(t\\,%.3f\\,%.3f)'",
			escapeDrawtext(strings.ToUpper(text)),
			captionFontSize,
			color,
			fontFileArg(spec.FontFile),
			captionBorder,
			captionY,
			cue.Start,
			cue.End,
		))
	}
	return filters
}

func titleFilters(spec Spec) []string {
	duration := spec.Duration()
	filters := make([]string, 0, len(spec.TitleLines))
	for i, line := range spec.TitleLines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		filters = append(filters, fmt.Sprintf(
			"drawtext=text='%s':fontsize=%d:fontcolor=white%s:borderw=%d:bordercolor=black:x=(w-text_w)/2:y=%d:box=1:boxcolor=%s:boxborderw=%d:enable='between(t\\,0.0\\,%.1f)'",
			escapeDrawtext(strings.ToUpper(line)),
			titleFontSize,
			fontFileArg(spec.FontFile),
			captionBorder,
			titleBaseY+i*titleLineHeight,
			titleBoxColor,
			titleBoxBorder,
			duration,
		))
	}
	return filters
}

func fontFileArg(fontFile string) string {
	if strings.TrimSpace(fontFile) == "" {
		return ""
	}
	return ":fontfile=" + fontFile
}

// audioProgram builds the labeled audio graph for the full layout. With a
// music path the bed is trimmed to the cut, faded in and out, ducked, and
// mixed under the normalized speech.
func audioProgram(spec Spec) string {
	speech := "[0:a]" + speechFilter(spec)
	if spec.MusicPath == "" {
		return speech + "[aout]"
	}

	duration := spec.Duration()
	fadeStart := duration - musicFadeOutSec
	if fadeStart < 0 {
		fadeStart = 0
	}
	return fmt.Sprintf(
		"%s[speech];"+
			"[1:a]atrim=0:%.1f,"+
			"afade=t=in:st=0:d=%.1f,"+
			"afade=t=out:st=%.1f:d=%.1f,"+
			"volume=%.2f[music];"+
			"[speech][music]amix=inputs=2:duration=first:dropout_transition=2[aout]",
		speech,
		duration,
		musicFadeInSec,
		fadeStart,
		musicFadeOutSec,
		musicVolume,
	)
}

// speechFilter is the unlabeled speech treatment: bleep mutes first, then
// loudness normalization. Used both inside the full program and as a plain
// -af chain by the fallback rungs, so bleeps survive every rung.
func speechFilter(spec Spec) string {
	filters := append(bleepFilters(spec), loudnormFilter)
	return strings.Join(filters, ",")
}

func bleepFilters(spec Spec) []string {
	var filters []string
	duration := spec.Duration()
	for _, span := range spec.Bleeps {
		start := span.Start - spec.Segment.Start
		end := span.End - spec.Segment.Start
		if end <= 0 || start >= duration {
			continue
		}
		if start < 0 {
			start = 0
		}
		if end > duration {
			end = duration
		}
		filters = append(filters, fmt.Sprintf("volume=0:enable='between(t\\,%.3f\\,%.3f)'", start, end))
	}
	return filters
}
