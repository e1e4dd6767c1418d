package mwapi

import (
	"net"
	"net/http"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"gitlab.com/wikibot/awb/internal/throttle"
)

// Classify maps an error returned by FetchPage/SubmitEdit to the
// throttle/retry controller's retryable/fatal taxonomy (spec.md §7, §4.8).
func Classify(err error) (throttle.FailureClass, time.Duration) {
	details := errors.Details(err)

	if code, _ := details["code"].(string); code != "" {
		switch code {
		case "maxlag":
			return throttle.Retryable, 5 * time.Second
		case "ratelimited":
			return throttle.Retryable, 0
		case "badtoken", "assertuserfailed":
			return throttle.Retryable, 0
		case "permissiondenied", "readonly", "blocked":
			return throttle.Fatal, 0
		case "editconflict":
			return throttle.Fatal, 0
		}
	}

	if httpCode, ok := details["code"].(int); ok {
		switch httpCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return throttle.Retryable, 0
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return throttle.Retryable, 0
	}

	if strings.Contains(err.Error(), "bad response status") {
		return throttle.Retryable, 0
	}

	return throttle.Fatal, 0
}
