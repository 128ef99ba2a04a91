package transcript

import (
	"slices"
	"strings"
	"time"

	"vidscribe/internal/engine"
	"vidscribe/internal/segment"
)

// WarningEmptyTranscript is recorded when no chunk produced any text.
const WarningEmptyTranscript = "empty transcript: no speech was recognized in any chunk"

// UnknownLanguage is reported when no engine detected a language.
const UnknownLanguage = "unknown"

// Segment is a timed span of text on the asset timeline.
type Segment struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Text         string  `json:"text"`
}

// Result is the assembled transcript for one video.
type Result struct {
	Segments           []Segment     `json:"segments"`
	FullText           string        `json:"full_text"`
	DetectedLanguage   string        `json:"detected_language"`
	Engine             string        `json:"engine"`
	ProcessingDuration time.Duration `json:"processing_duration"`
	Warnings           []string      `json:"warnings,omitempty"`
	ChunkCount         int           `json:"chunk_count"`
}

// Empty reports whether the transcript carries no text.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.FullText) == ""
}

// Assemble merges per-chunk results into one transcript. Results are consumed
// in chunk-index order regardless of input order. Engine-local segment times
// are shifted by the chunk offset and clamped to the chunk span and to the end
// of the previous segment, so the output is ordered and non-overlapping.
// Chunks with empty text contribute no segments, but the first reported
// language wins even when its chunk was silent.
func Assemble(chunks []segment.Chunk, results []engine.Result, engineName string) Result {
	spans := make(map[int]segment.Chunk, len(chunks))
	for _, chunk := range chunks {
		spans[chunk.Index] = chunk
	}

	ordered := slices.Clone(results)
	slices.SortStableFunc(ordered, func(a, b engine.Result) int {
		return a.ChunkIndex - b.ChunkIndex
	})

	out := Result{Engine: engineName, ChunkCount: len(chunks)}
	var texts []string
	cursor := 0.0

	for _, res := range ordered {
		if res.Warning != "" {
			out.Warnings = append(out.Warnings, res.Warning)
		}
		if out.DetectedLanguage == "" && res.DetectedLanguage != "" {
			out.DetectedLanguage = res.DetectedLanguage
		}
		text := strings.TrimSpace(res.Text)
		if text == "" {
			continue
		}
		texts = append(texts, text)

		chunk, ok := spans[res.ChunkIndex]
		if !ok {
			continue
		}
		chunkEnd := chunk.End()

		local := res.Segments
		if len(local) == 0 {
			local = []engine.LocalSegment{{StartSeconds: 0, EndSeconds: chunk.DurationSeconds, Text: text}}
		}
		for _, seg := range local {
			segText := strings.TrimSpace(seg.Text)
			if segText == "" {
				continue
			}
			start := clamp(chunk.OffsetSeconds+seg.StartSeconds, chunk.OffsetSeconds, chunkEnd)
			end := clamp(chunk.OffsetSeconds+seg.EndSeconds, chunk.OffsetSeconds, chunkEnd)
			start = max(start, cursor)
			end = max(end, start)
			out.Segments = append(out.Segments, Segment{StartSeconds: start, EndSeconds: end, Text: segText})
			cursor = end
		}
	}

	out.FullText = strings.Join(texts, " ")
	if out.DetectedLanguage == "" {
		out.DetectedLanguage = UnknownLanguage
	}
	if out.FullText == "" {
		out.Warnings = append(out.Warnings, WarningEmptyTranscript)
	}
	return out
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
