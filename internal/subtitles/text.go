package subtitles

import (
	"strings"

	"vidscribe/internal/transcript"
)

// RenderText formats segments as a plain-text transcript, one line per
// segment.
func RenderText(segments []transcript.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		text := strings.Join(strings.Fields(seg.Text), " ")
		if text == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String()
}
