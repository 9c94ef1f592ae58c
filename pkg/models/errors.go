package models

import "fmt"

// AuthError indicates a missing, expired, or otherwise rejected credential,
// including the case where the credential resolves to no workspace at all.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError indicates a draft that is missing a required field. It is
// raised before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError indicates a non-2xx response from the tracker or chat API.
// Body carries the raw response body for diagnostics.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PartialSubmissionError indicates that the issue was created but a later
// step failed. IssueKey lets the caller tell the user the ticket exists
// despite the failure.
type PartialSubmissionError struct {
	IssueKey string
	Stage    string
	Err      error
}

func (e *PartialSubmissionError) Error() string {
	return fmt.Sprintf("issue %s created but %s step failed: %v", e.IssueKey, e.Stage, e.Err)
}

func (e *PartialSubmissionError) Unwrap() error { return e.Err }
