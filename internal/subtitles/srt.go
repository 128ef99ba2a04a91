package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"vidscribe/internal/transcript"
)

// Cue is one SRT block.
type Cue struct {
	Index        int
	StartSeconds float64
	EndSeconds   float64
	Text         string
}

// Render formats segments as an SRT document. Cues are numbered from 1;
// segments without text are skipped and do not consume an index.
func Render(segments []transcript.Segment) string {
	var sb strings.Builder
	index := 0
	for _, seg := range segments {
		text := cueText(seg.Text)
		if text == "" {
			continue
		}
		index++
		fmt.Fprintf(&sb, "%d\n", index)
		fmt.Fprintf(&sb, "%s --> %s\n", FormatTimestamp(seg.StartSeconds), FormatTimestamp(seg.EndSeconds))
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// cueText trims text and drops blank lines, which would end the cue early.
func cueText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm rounded to the nearest
// millisecond. Negative and non-finite input renders as zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	msTotal := int64(seconds*1000 + 0.5)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp parses HH:MM:SS,mmm (a period separator is accepted) into
// seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 || millis < 0 || millis > 999 {
		return 0, fmt.Errorf("timestamp %q out of range", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Parse reads an SRT document back into cues.
func Parse(content string) ([]Cue, error) {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if content == "" {
		return nil, nil
	}

	var cues []Cue
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			return nil, fmt.Errorf("cue %q: missing timing line", lines[0])
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return nil, fmt.Errorf("cue index %q: %w", lines[0], err)
		}
		parts := strings.Split(lines[1], "-->")
		if len(parts) != 2 {
			return nil, fmt.Errorf("cue %d: invalid timing line %q", index, lines[1])
		}
		start, err := ParseTimestamp(parts[0])
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", index, err)
		}
		end, err := ParseTimestamp(parts[1])
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", index, err)
		}
		cues = append(cues, Cue{
			Index:        index,
			StartSeconds: start,
			EndSeconds:   end,
			Text:         strings.Join(lines[2:], "\n"),
		})
	}
	return cues, nil
}
