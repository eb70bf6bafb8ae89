package backend

import (
	"errors"
	"fmt"
)

// Op names the derived task that failed.
type Op string

const (
	OpTranslate Op = "translate"
	OpSummarize Op = "summarize"
	OpTTS       Op = "tts"
)

// ErrStatus is wrapped by errors caused by a non-2xx response.
var ErrStatus = errors.New("unexpected status")

// Error is returned by every collaborator. All backend errors are non-fatal
// to capture and transport.
type Error struct {
	Op         Op
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op Op, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

func statusError(op Op, code int) error {
	return &Error{Op: op, StatusCode: code, Err: ErrStatus}
}

func isOp(err error, op Op) bool {
	var be *Error
	return errors.As(err, &be) && be.Op == op
}

func IsTranslation(err error) bool   { return isOp(err, OpTranslate) }
func IsSummarization(err error) bool { return isOp(err, OpSummarize) }
func IsTTS(err error) bool           { return isOp(err, OpTTS) }
