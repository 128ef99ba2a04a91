package engine

import (
	"context"

	"vidscribe/internal/segment"
)

// LocalSegment is a timed utterance relative to the start of its chunk.
type LocalSegment struct {
	StartSeconds float64 `json:"start"`
	EndSeconds   float64 `json:"end"`
	Text         string  `json:"text"`
}

// Result is the recognition outcome for one chunk. Empty Text with an empty
// Warning means the chunk held no intelligible speech.
type Result struct {
	ChunkIndex       int
	Text             string
	DetectedLanguage string
	Segments         []LocalSegment
	// Warning is set when recognition failed and the chunk was downgraded to
	// empty text.
	Warning string
}

// Engine converts one audio chunk into text. Implementations report backend
// failures as *RecognitionError and return an empty-text result for silence.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, chunk segment.Chunk, languageHint string) (Result, error)
}
