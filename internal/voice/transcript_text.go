package voice

import (
	"regexp"
	"strings"
)

var (
	// whisper.cpp annotates non-speech segments, e.g. [BLANK_AUDIO] or (music).
	nonSpeechMarkerPattern = regexp.MustCompile(`\[[A-Z_ ]+\]|\((?i:music|silence|inaudible|noise|applause|laughs?)\)`)
	spaceRunPattern        = regexp.MustCompile(`\s+`)
)

// normalizeTranscript strips recognizer annotations and collapses whitespace.
func normalizeTranscript(raw string) string {
	raw = nonSpeechMarkerPattern.ReplaceAllString(raw, " ")
	raw = spaceRunPattern.ReplaceAllString(raw, " ")
	return strings.TrimSpace(raw)
}
