package segment

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	DefaultThresholdDB       = -40.0
	DefaultMinSilenceSeconds = 0.7
	DefaultFrameMs           = 30
	// floorDB stands in for digital silence, whose level is -Inf.
	floorDB = -120.0
)

// DetectorConfig holds the tunable silence detection thresholds.
type DetectorConfig struct {
	ThresholdDB       float64
	MinSilenceSeconds float64
	FrameMs           int
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	if c.ThresholdDB == 0 {
		c.ThresholdDB = DefaultThresholdDB
	}
	if c.MinSilenceSeconds <= 0 {
		c.MinSilenceSeconds = DefaultMinSilenceSeconds
	}
	if c.FrameMs <= 0 {
		c.FrameMs = DefaultFrameMs
	}
	return c
}

// Silence is a low-energy interval in seconds from the start of the audio.
type Silence struct {
	Start float64
	End   float64
}

// Midpoint returns the centre of the interval.
func (s Silence) Midpoint() float64 {
	return (s.Start + s.End) / 2
}

// Analysis is the result of scanning a PCM stream.
type Analysis struct {
	DurationSeconds float64
	Silences        []Silence
}

// Boundaries returns the midpoints of silences strictly inside the audio.
// Leading and trailing silence is not between two speech spans and yields no
// boundary.
func (a Analysis) Boundaries() []float64 {
	out := make([]float64, 0, len(a.Silences))
	for _, s := range a.Silences {
		if s.Start <= 0 || s.End >= a.DurationSeconds {
			continue
		}
		out = append(out, s.Midpoint())
	}
	return out
}

// Analyze reads mono signed 16-bit little-endian PCM from r and reports its
// duration and every run of frames quieter than cfg.ThresholdDB lasting at
// least cfg.MinSilenceSeconds.
func Analyze(r io.Reader, sampleRate int, cfg DetectorConfig) (Analysis, error) {
	if sampleRate <= 0 {
		return Analysis{}, errors.New("sample rate must be positive")
	}
	cfg = cfg.withDefaults()
	samplesPerFrame := sampleRate * cfg.FrameMs / 1000
	if samplesPerFrame <= 0 {
		samplesPerFrame = 1
	}
	frameBytes := samplesPerFrame * 2

	reader := bufio.NewReaderSize(r, 64*1024)
	buf := make([]byte, frameBytes)
	var (
		totalSamples int64
		silences     []Silence
		runStart     = -1.0
	)
	closeRun := func(end float64) {
		if runStart >= 0 && end-runStart >= cfg.MinSilenceSeconds {
			silences = append(silences, Silence{Start: runStart, End: end})
		}
		runStart = -1
	}

	for {
		n, err := io.ReadFull(reader, buf)
		if n >= 2 {
			samples := n / 2
			start := float64(totalSamples) / float64(sampleRate)
			if frameLevelDB(buf[:samples*2]) < cfg.ThresholdDB {
				if runStart < 0 {
					runStart = start
				}
			} else {
				closeRun(start)
			}
			totalSamples += int64(samples)
		}
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return Analysis{}, err
		}
	}
	duration := float64(totalSamples) / float64(sampleRate)
	closeRun(duration)
	return Analysis{DurationSeconds: duration, Silences: silences}, nil
}

// frameLevelDB returns the RMS level of a frame in dBFS.
func frameLevelDB(frame []byte) float64 {
	count := len(frame) / 2
	if count == 0 {
		return floorDB
	}
	var sum float64
	for i := 0; i < count; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(frame[i*2:]))) / 32768
		sum += sample * sample
	}
	rms := math.Sqrt(sum / float64(count))
	if rms == 0 {
		return floorDB
	}
	return math.Max(20*math.Log10(rms), floorDB)
}
