package gateway

import (
	"errors"
	"net/http"
)

// Error kinds. Every error returned by Client matches exactly one of these
// with errors.Is, except ValidationError which is its own type.
var (
	// ErrUnauthorized is a 401 from the backend. The session is invalidated
	// as a side effect for every non-auth endpoint.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is a 404 from the backend.
	ErrNotFound = errors.New("not found")
	// ErrRequestFailed covers every other failure: non-2xx statuses,
	// transport errors and unreadable responses.
	ErrRequestFailed = errors.New("request failed")
	// ErrNotAuthenticated means the call needs a credential and there is none.
	// No request was sent.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Generic messages surfaced when the backend gives no usable detail.
const (
	msgRequestFailed    = "Request failed"
	msgLoginFailed      = "Login failed"
	msgRegisterFailed   = "Registration failed"
	msgUploadFailed     = "File upload failed"
	msgDownloadFailed   = "Download failed"
	msgNotAuthenticated = "Not authenticated: Please log in again."
	msgSessionExpired   = "Session expired or unauthorized. Please log in again."
	msgReLogin          = "Unauthorized. Please re-login."
	msgFileNotFound     = "File not found"
	msgDownloadBoth     = "Download failed by both id and file_url"
)

// APIError is a failed backend call. Message is meant for the user.
type APIError struct {
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	// Message is the backend's detail or a generic message.
	Message string
	// Kind is one of the package's sentinel errors.
	Kind error
	// Cause is the underlying transport or decoding error, if any.
	Cause error
}

// Error returns the user-facing message.
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *APIError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// kindFor maps an HTTP status to an error kind.
func kindFor(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrRequestFailed
	}
}

// ValidationError is a client-side input problem found before any request
// was sent.
type ValidationError struct {
	// Field is the offending input, empty when the problem is not tied to one.
	Field string
	// Message is meant for the user.
	Message string
}

// Error returns the user-facing message.
func (e *ValidationError) Error() string {
	return e.Message
}

// DownloadError reports that both download attempts failed.
type DownloadError struct {
	// ByID is the failure of the attempt by identifier.
	ByID error
	// ByFileURL is the failure of the attempt by stored file reference.
	ByFileURL error
}

// Error returns the user-facing message.
func (e *DownloadError) Error() string {
	return msgDownloadBoth
}

// Unwrap exposes both attempts' errors.
func (e *DownloadError) Unwrap() []error {
	return []error{e.ByID, e.ByFileURL}
}
