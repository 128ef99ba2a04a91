package segment

import "sort"

const (
	// durationEpsilon absorbs float noise so no zero-length tail chunk is emitted.
	durationEpsilon = 1e-3
	// minBoundaryGap keeps silence cuts from producing sliver chunks.
	minBoundaryGap = 1.0
)

// Span is a planned chunk: an offset and duration in seconds.
type Span struct {
	OffsetSeconds   float64
	DurationSeconds float64
}

// End returns the end of the span.
func (s Span) End() float64 {
	return s.OffsetSeconds + s.DurationSeconds
}

// Plan divides an asset of the given duration into spans no longer than
// maxChunk. Audio that fits in one chunk is never split. With at least two
// silence boundaries, speech is packed greedily and cut at the last boundary
// that fits, or hard cut at maxChunk when none does. With fewer boundaries the
// asset is sliced at fixed maxChunk intervals. Spans are contiguous, start at
// zero and end at duration.
func Plan(duration, maxChunk float64, boundaries []float64) []Span {
	if duration <= durationEpsilon || maxChunk <= 0 {
		return nil
	}
	if duration <= maxChunk {
		return []Span{{OffsetSeconds: 0, DurationSeconds: duration}}
	}

	cuts := interiorBoundaries(duration, boundaries)
	if len(cuts) < 2 {
		return fixedSpans(duration, maxChunk)
	}

	spans := make([]Span, 0, int(duration/maxChunk)+2)
	start := 0.0
	next := 0
	for duration-start > maxChunk+durationEpsilon {
		limit := start + maxChunk
		cut := -1.0
		for next < len(cuts) && cuts[next] <= limit {
			if cuts[next]-start >= minBoundaryGap {
				cut = cuts[next]
			}
			next++
		}
		if cut < 0 {
			cut = limit
		}
		spans = append(spans, Span{OffsetSeconds: start, DurationSeconds: cut - start})
		start = cut
	}
	spans = append(spans, Span{OffsetSeconds: start, DurationSeconds: duration - start})
	return spans
}

func fixedSpans(duration, maxChunk float64) []Span {
	spans := make([]Span, 0, int(duration/maxChunk)+1)
	for i := 0; ; i++ {
		offset := float64(i) * maxChunk
		remaining := duration - offset
		if remaining <= durationEpsilon {
			break
		}
		if remaining > maxChunk {
			remaining = maxChunk
		}
		spans = append(spans, Span{OffsetSeconds: offset, DurationSeconds: remaining})
	}
	return spans
}

func interiorBoundaries(duration float64, boundaries []float64) []float64 {
	out := make([]float64, 0, len(boundaries))
	for _, b := range boundaries {
		if b > durationEpsilon && b < duration-durationEpsilon {
			out = append(out, b)
		}
	}
	sort.Float64s(out)
	deduped := out[:0]
	for i, b := range out {
		if i > 0 && b-deduped[len(deduped)-1] < durationEpsilon {
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}
