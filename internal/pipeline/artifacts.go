package pipeline

import (
	"fmt"
	"path/filepath"

	"vidscribe/internal/fileutil"
	"vidscribe/internal/textutil"
	"vidscribe/internal/transcript"
)

// Artifacts lists the files written for a transcript.
type Artifacts struct {
	TextPath     string `json:"text_path"`
	SubtitlePath string `json:"subtitle_path"`
}

// WriteArtifacts writes <name>.txt and <name>.srt into dir. name is reduced to
// a filesystem-safe token.
func WriteArtifacts(dir, name string, result transcript.Result) (Artifacts, error) {
	base := textutil.ArtifactBase(name)
	artifacts := Artifacts{
		TextPath:     filepath.Join(dir, base+".txt"),
		SubtitlePath: filepath.Join(dir, base+".srt"),
	}
	if err := fileutil.WriteFileAtomic(artifacts.TextPath, []byte(RenderText(result)), 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("write transcript: %w", err)
	}
	if err := fileutil.WriteFileAtomic(artifacts.SubtitlePath, []byte(RenderSubtitle(result)), 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("write subtitles: %w", err)
	}
	return artifacts, nil
}
