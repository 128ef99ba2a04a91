package reference

import (
	"errors"
	"strings"
)

// Validate reports whether raw matches one of the accepted reference shapes:
// standard watch, shorts, short-link, embed, live, and the mobile and music
// variants of the watch host. It performs no network activity.
func Validate(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return invalid(raw, "reference is empty")
	}
	parsed, err := parse(trimmed)
	if err != nil {
		return invalid(raw, "reference is not a URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return invalid(raw, "unsupported scheme "+parsed.Scheme)
	}
	host := strings.ToLower(parsed.Hostname())
	segments := pathSegments(parsed.Path)

	if _, ok := shortLinkHosts[host]; ok {
		if len(segments) == 1 {
			if _, ok := validID(segments[0]); ok {
				return nil
			}
		}
		return invalid(raw, "short link must be youtu.be/<id>")
	}
	if _, ok := watchHosts[host]; !ok {
		return invalid(raw, "unrecognized host "+host)
	}
	switch {
	case len(segments) == 1 && segments[0] == "watch":
		if _, ok := validID(parsed.Query().Get("v")); ok {
			return nil
		}
		return invalid(raw, "watch URL is missing a valid v parameter")
	case len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live"):
		if _, ok := validID(segments[1]); ok {
			return nil
		}
		return invalid(raw, "malformed "+segments[0]+" identifier")
	}
	return invalid(raw, "unsupported URL shape")
}

var errNoHost = errors.New("missing host")
