package textutil

import "strings"

// maxFileNameBytes keeps names under the 255-byte limit of common
// filesystems with room for an extension.
const maxFileNameBytes = 200

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of whitespace and leading
// dots so it can never name a hidden file or a parent directory.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.TrimSpace(fileNameReplacer.Replace(name))
	name = strings.TrimLeft(name, ".")
	if len(name) > maxFileNameBytes {
		name = truncateUTF8(name, maxFileNameBytes)
	}
	return strings.TrimSpace(name)
}

// ArtifactBase returns a sanitized base name for transcript files, falling
// back to "transcript" when nothing usable remains.
func ArtifactBase(name string) string {
	if base := SanitizeFileName(name); base != "" {
		return base
	}
	return "transcript"
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	cut := 0
	for i := range s {
		if i > limit {
			break
		}
		cut = i
	}
	return s[:cut]
}
