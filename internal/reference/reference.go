package reference

import (
	"net/url"
	"regexp"
	"strings"
)

const canonicalWatchPrefix = "https://www.youtube.com/watch?v="

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Hosts whose references are known to resolve through the fetcher.
var (
	shortLinkHosts = map[string]struct{}{
		"youtu.be": {},
	}
	watchHosts = map[string]struct{}{
		"youtube.com":       {},
		"www.youtube.com":   {},
		"m.youtube.com":     {},
		"music.youtube.com": {},
	}
)

// VideoReference is the canonical form of a user supplied video reference.
type VideoReference struct {
	Raw          string `json:"raw"`
	CanonicalID  string `json:"canonical_id"`
	CanonicalURL string `json:"canonical_url"`
	// Verified is false when the host is not a known video platform. Such
	// references are passed through unchanged for the fetcher to resolve.
	Verified bool `json:"verified"`
}

// Normalize canonicalizes raw. Identifier extraction is attempted in priority
// order: short-link path, shorts path, watch query, then embed and live paths.
// Unknown hosts never fail; they come back unverified with the input as their
// canonical URL.
func Normalize(raw string) (VideoReference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return VideoReference{}, invalid(raw, "reference is empty")
	}
	parsed, err := parse(trimmed)
	if err != nil {
		return VideoReference{}, invalid(raw, "reference is not a URL")
	}

	host := strings.ToLower(parsed.Hostname())
	id, ok := extractID(host, parsed)
	verified := isKnownHost(host)

	if !verified {
		ref := VideoReference{Raw: raw, CanonicalID: trimmed, CanonicalURL: trimmed}
		if ok {
			ref.CanonicalID = id
		}
		return ref, nil
	}
	if !ok {
		return VideoReference{}, invalid(raw, "no video identifier found")
	}
	return VideoReference{
		Raw:          raw,
		CanonicalID:  id,
		CanonicalURL: canonicalWatchPrefix + id,
		Verified:     true,
	}, nil
}

func parse(value string) (*url.URL, error) {
	if !strings.Contains(value, "://") {
		value = "https://" + value
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return nil, err
	}
	if parsed.Host == "" {
		return nil, errNoHost
	}
	return parsed, nil
}

func extractID(host string, u *url.URL) (string, bool) {
	segments := pathSegments(u.Path)
	query := u.Query().Get("v")

	// short link: youtu.be/<id>, or any single-segment path without a watch query
	if _, ok := shortLinkHosts[host]; ok && len(segments) >= 1 {
		return validID(segments[0])
	}
	if len(segments) == 1 && query == "" && !reservedSegment(segments[0]) {
		return validID(segments[0])
	}
	if len(segments) >= 2 && segments[0] == "shorts" {
		return validID(segments[1])
	}
	if query != "" {
		return validID(query)
	}
	if len(segments) >= 2 {
		switch segments[0] {
		case "embed", "live", "v":
			return validID(segments[1])
		}
	}
	return "", false
}

func reservedSegment(segment string) bool {
	switch segment {
	case "watch", "shorts", "embed", "live", "v", "playlist", "channel", "results":
		return true
	}
	return false
}

func pathSegments(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validID(candidate string) (string, bool) {
	if idPattern.MatchString(candidate) {
		return candidate, true
	}
	return "", false
}

func isKnownHost(host string) bool {
	if _, ok := shortLinkHosts[host]; ok {
		return true
	}
	_, ok := watchHosts[host]
	return ok
}
