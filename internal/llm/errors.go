package llm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFatalAPI marks provider errors that will not resolve on their own
	// (bad credentials, exhausted quota, billing problems).
	ErrFatalAPI = errors.New("fatal API error")

	// ErrTimeout indicates the provider did not answer within the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrUnavailable indicates the circuit breaker rejected the call.
	ErrUnavailable = errors.New("llm provider unavailable")

	// ErrEmptyResponse indicates the provider returned no choices.
	ErrEmptyResponse = errors.New("no response choices")
)

var fatalPatterns = []string{
	"credit balance",
	"rate limit",
	"quota",
	"billing",
	"invalid api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

// isFatalAPIError reports whether err looks like a non-transient provider failure.
func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range fatalPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// wrapFatalError tags fatal provider errors with ErrFatalAPI and passes others through.
func wrapFatalError(err error) error {
	if !isFatalAPIError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFatalAPI, err)
}
