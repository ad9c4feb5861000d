package domain

import "errors"

// User-facing messages. They are shown verbatim by consumers, so they keep
// sentence case.
const (
	MsgInvalidDepartureTime = "Invalid departure time format"
	MsgTimeout              = "Request timed out — please try again"
	MsgRequestFailed        = "Failed to fetch route weather"
	MsgHealthCheckFailed    = "Health check failed"
)

var (
	// ErrInvalidFormat is returned when a non-blank departure time cannot be
	// parsed. No request is sent in that case.
	ErrInvalidFormat = errors.New(MsgInvalidDepartureTime)

	// ErrTimeout is returned when the backend did not answer within the
	// client's deadline. The in-flight request has been cancelled.
	ErrTimeout = errors.New(MsgTimeout)
)

// RequestFailedError is returned for non-2xx responses.
type RequestFailedError struct {
	StatusCode int
	Message    string // detail from the body, or a generic fallback
	RequestID  string
}

func (e *RequestFailedError) Error() string {
	return e.Message
}

// DecodeError is returned when a 2xx body is not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode route weather response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
