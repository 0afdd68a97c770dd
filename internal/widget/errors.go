package widget

import (
	"errors"
	"fmt"
)

// User-facing messages for the fixed failure classes.
const (
	MsgNoFileSelected   = "No file selected"
	MsgNetworkError     = "Network error: could not reach the server"
	MsgInvalidResponse  = "The server returned an invalid response"
	MsgSubmissionBusy   = "A submission is already in progress"
	msgProcessingFinish = "Processing complete"
)

// ErrBusy is returned by Submit while another submission is in flight.
var ErrBusy = errors.New("submission already in progress")

// ValidationError reports a selection that cannot be submitted. The
// selection guard raises it before any network call; a file that cannot be
// read while the body is streamed raises it with the read error in Err.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string { return e.Msg }
func (e *ValidationError) Unwrap() error { return e.Err }

// TransportError reports a request that never produced a response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport error: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response body that is not a JSON object.
type MalformedResponseError struct {
	StatusCode int
	Body       string // Raw body, truncated, for diagnostics only
	Err        error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response (HTTP %d): %v", e.StatusCode, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ApplicationError reports a well-formed response that signals failure,
// either through its error field or a non-2xx status.
type ApplicationError struct {
	StatusCode int
	Msg        string
}

func (e *ApplicationError) Error() string { return e.Msg }

// UserMessage maps any error returned by the widget to the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		verr *ValidationError
		terr *TransportError
		merr *MalformedResponseError
		aerr *ApplicationError
	)
	switch {
	case errors.Is(err, ErrBusy):
		return MsgSubmissionBusy
	case errors.As(err, &verr):
		return verr.Msg
	case errors.As(err, &terr):
		return MsgNetworkError
	case errors.As(err, &merr):
		return MsgInvalidResponse
	case errors.As(err, &aerr):
		return aerr.Msg
	default:
		return err.Error()
	}
}
