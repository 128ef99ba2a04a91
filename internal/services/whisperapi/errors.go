package whisperapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vidscribe/internal/engine"
)

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

// classifyStatus maps a failed response onto a transient or permanent
// recognition error. Quota exhaustion arrives as 429 but never clears by
// waiting.
func classifyStatus(resp *http.Response, body []byte) error {
	statusErr := &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests && strings.Contains(statusErr.Body, "insufficient_quota"):
		return engine.Permanent(EngineName, statusErr)
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return &engine.RecognitionError{Kind: engine.KindTransient, Engine: EngineName, RetryAfter: retryAfter, Err: statusErr}
	default:
		return engine.Permanent(EngineName, statusErr)
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
