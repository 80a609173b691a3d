package protocol

import (
	"errors"
	"fmt"

	"github.com/robotalks/rs4b/pkg/frame"
)

var (
	// ErrNoReply indicates the request got no reply within the response
	// window, or was superseded by a newer request.
	ErrNoReply = errors.New("no reply")
	// ErrForeignReply indicates a reply from a device other than the target.
	ErrForeignReply = errors.New("reply from foreign device")
	// ErrUnexpectedReply indicates a reply while no matching request is
	// outstanding.
	ErrUnexpectedReply = errors.New("unexpected reply")
	// ErrMalformedReply indicates a reply that can't be parsed.
	ErrMalformedReply = errors.New("malformed reply")
)

// ReplyError carries the frame behind a reply error.
type ReplyError struct {
	Err   error
	Frame frame.Frame
}

// Error implements error.
func (e *ReplyError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, string(e.Frame))
}

// Unwrap returns the reply error kind.
func (e *ReplyError) Unwrap() error {
	return e.Err
}

func replyErr(err error, f frame.Frame) error {
	return &ReplyError{Err: err, Frame: f}
}
