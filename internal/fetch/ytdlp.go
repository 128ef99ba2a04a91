package fetch

import (
	"encoding/json"
	"errors"
	"os/exec"
	"strings"

	"vidscribe/internal/services"
)

// metadata is the subset of `yt-dlp -J` output the fetcher relies on.
type metadata struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Duration float64  `json:"duration"`
	ACodec   string   `json:"acodec"`
	Formats  []format `json:"formats"`
}

type format struct {
	FormatID string `json:"format_id"`
	ACodec   string `json:"acodec"`
	VCodec   string `json:"vcodec"`
}

func parseMetadata(payload []byte) (metadata, error) {
	var meta metadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return metadata{}, err
	}
	return meta, nil
}

// hasAudio reports whether any advertised format carries an audio codec.
func (m metadata) hasAudio() bool {
	if codecPresent(m.ACodec) {
		return true
	}
	for _, f := range m.Formats {
		if codecPresent(f.ACodec) {
			return true
		}
	}
	return false
}

func codecPresent(codec string) bool {
	codec = strings.ToLower(strings.TrimSpace(codec))
	return codec != "" && codec != "none"
}

var unavailableMarkers = []string{
	"video unavailable",
	"private video",
	"this video is private",
	"has been removed",
	"is not available",
	"account associated with this video has been terminated",
	"this video has been removed",
	"members-only content",
	"unsupported url",
}

// classify maps a failed yt-dlp invocation onto a Reason and whether the
// failure is worth retrying.
func classify(err error) (Reason, bool) {
	if errors.Is(err, exec.ErrNotFound) {
		return ReasonToolFailure, false
	}
	output := strings.ToLower(services.CommandOutput(err))
	for _, marker := range unavailableMarkers {
		if strings.Contains(output, marker) {
			return ReasonSourceUnavailable, false
		}
	}
	return ReasonNetworkFailure, true
}
