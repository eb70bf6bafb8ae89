package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"syscall"
)

// ErrReleased is returned by Acquire when Release runs before access is
// granted. The opened tracks are already stopped.
var ErrReleased = errors.New("capture session released during acquire")

type ErrorKind int

const (
	Unknown ErrorKind = iota
	AccessDenied
	DeviceNotFound
	DeviceBusy
)

func (k ErrorKind) String() string {
	switch k {
	case AccessDenied:
		return "access_denied"
	case DeviceNotFound:
		return "device_not_found"
	case DeviceBusy:
		return "device_busy"
	default:
		return "unknown"
	}
}

// Message is the text shown to the user for this kind of failure.
func (k ErrorKind) Message() string {
	switch k {
	case AccessDenied:
		return "Доступ к камере запрещён"
	case DeviceNotFound:
		return "Камера не найдена"
	case DeviceBusy:
		return "Камера уже используется другим приложением"
	default:
		return "Ошибка доступа к камере"
	}
}

// PermissionError is returned by Acquire when media could not be obtained.
// No retry is attempted.
type PermissionError struct {
	Kind ErrorKind
	Err  error
}

func (e *PermissionError) Error() string {
	if e.Err == nil {
		return "capture: " + e.Kind.String()
	}
	return fmt.Sprintf("capture: %s: %v", e.Kind, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

func AsPermissionError(err error) (*PermissionError, bool) {
	var pe *PermissionError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Classify maps an acquisition failure onto a PermissionError by errno
// first and by the wording of the underlying message second.
func Classify(err error) *PermissionError {
	if err == nil {
		return nil
	}
	if pe, ok := AsPermissionError(err); ok {
		return pe
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			return &PermissionError{Kind: AccessDenied, Err: err}
		case syscall.ENOENT, syscall.ENODEV, syscall.ENXIO:
			return &PermissionError{Kind: DeviceNotFound, Err: err}
		case syscall.EBUSY:
			return &PermissionError{Kind: DeviceBusy, Err: err}
		}
	}

	switch {
	case errors.Is(err, fs.ErrPermission):
		return &PermissionError{Kind: AccessDenied, Err: err}
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, exec.ErrNotFound):
		return &PermissionError{Kind: DeviceNotFound, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "permission denied", "not allowed", "access denied", "notallowederror"):
		return &PermissionError{Kind: AccessDenied, Err: err}
	case containsAny(msg, "no such", "not found", "no target", "notfounderror"):
		return &PermissionError{Kind: DeviceNotFound, Err: err}
	case containsAny(msg, "busy", "in use", "notreadableerror"):
		return &PermissionError{Kind: DeviceBusy, Err: err}
	}
	return &PermissionError{Kind: Unknown, Err: err}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
