package testsupport

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Span describes a stretch of synthetic audio.
type Span struct {
	Seconds float64
	Speech  bool
}

// PCM renders mono signed 16-bit little-endian samples. Speech spans are a
// 440 Hz tone at half scale, silence is digital zero.
func PCM(sampleRate int, spans ...Span) []byte {
	var total int
	for _, span := range spans {
		total += int(math.Round(span.Seconds * float64(sampleRate)))
	}
	out := make([]byte, 0, total*2)
	var n int
	for _, span := range spans {
		count := int(math.Round(span.Seconds * float64(sampleRate)))
		for i := 0; i < count; i++ {
			var sample int16
			if span.Speech {
				sample = int16(16384 * math.Sin(2*math.Pi*440*float64(n)/float64(sampleRate)))
			}
			out = binary.LittleEndian.AppendUint16(out, uint16(sample))
			n++
		}
	}
	return out
}

// WAV wraps PCM samples in a canonical 44-byte RIFF header.
func WAV(sampleRate int, pcm []byte) []byte {
	out := make([]byte, 0, 44+len(pcm))
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+len(pcm)))
	out = append(out, "WAVEfmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1)
	out = binary.LittleEndian.AppendUint16(out, 1)
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate*2))
	out = binary.LittleEndian.AppendUint16(out, 2)
	out = binary.LittleEndian.AppendUint16(out, 16)
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pcm)))
	return append(out, pcm...)
}

// FFmpegStub emulates the ffmpeg invocations issued by the segmenter: a
// resample to raw PCM writes PCM to the output path, and a WAV extraction
// writes the requested slice of PCM.
type FFmpegStub struct {
	PCM        []byte
	SampleRate int
	// Fail, when set, is returned for every invocation.
	Fail error

	mu    sync.Mutex
	calls [][]string
}

// Run implements services.CommandRunner.
func (s *FFmpegStub) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string{name}, args...))
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Fail != nil {
		return nil, s.Fail
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("ffmpeg stub: no arguments")
	}
	dest := args[len(args)-1]
	if !strings.HasSuffix(dest, ".wav") {
		return nil, os.WriteFile(dest, s.PCM, 0o644)
	}
	rate := s.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	start := secondsArg(args, "-ss")
	length := secondsArg(args, "-t")
	from := min(int(math.Round(start*float64(rate)))*2, len(s.PCM))
	to := len(s.PCM)
	if length > 0 {
		to = min(from+int(math.Round(length*float64(rate)))*2, len(s.PCM))
	}
	return nil, os.WriteFile(dest, WAV(rate, s.PCM[from:to]), 0o644)
}

// Calls returns the recorded invocations.
func (s *FFmpegStub) Calls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func secondsArg(args []string, flag string) float64 {
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		return 0
	}
	value, err := strconv.ParseFloat(args[idx+1], 64)
	if err != nil {
		return 0
	}
	return value
}
