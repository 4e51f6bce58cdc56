package service

import "errors"

var (
	// ErrValidation indicates a request that fails input checks.
	ErrValidation = errors.New("invalid request")

	// ErrUpstream indicates the LLM collaborator failed or was unavailable.
	ErrUpstream = errors.New("failed to generate recommendations")

	// ErrStore indicates a persistence failure.
	ErrStore = errors.New("store failure")
)

// UpstreamError carries the collaborator error that caused ErrUpstream.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return ErrUpstream.Error() + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}
