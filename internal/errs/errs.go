// Package errs holds the library-level error category: conditions detected
// by clkit itself, as opposed to failures reported by the native API (see
// cl.StatusError).
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code classifies a library-level error. The numeric values are stable and
// are exposed in CLI exit codes and HTTP error bodies.
type Code int

const (
	// OpenFile: a file could not be opened.
	OpenFile Code = 1
	// Args: invalid arguments, e.g. a malformed filter term.
	Args Code = 2
	// InvalidData: a component produced data violating its contract.
	InvalidData Code = 3
	// StreamWrite: writing to a stream failed.
	StreamWrite Code = 4
	// DeviceNotFound: no device matches the constraints.
	DeviceNotFound Code = 5
	// UnsupportedOCL: the native API version does not support the operation.
	UnsupportedOCL Code = 6
	// InfoUnavailable: the requested info parameter is not available for
	// this object.
	InfoUnavailable Code = 7
	// NoPlatforms: enumeration found no platforms or no devices.
	NoPlatforms Code = 8
	// Other: any other library error.
	Other Code = 15
)

var codeNames = map[Code]string{
	OpenFile:        "open_file",
	Args:            "invalid_args",
	InvalidData:     "invalid_data",
	StreamWrite:     "stream_write",
	DeviceNotFound:  "no_matching_device",
	UnsupportedOCL:  "unsupported",
	InfoUnavailable: "info_unavailable",
	NoPlatforms:     "no_platforms",
	Other:           "other",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is a library-level error.
type Error struct {
	Code Code
	Op   string
	Msg  string
	Err  error // underlying cause, may be a native error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidData     = &Error{Code: InvalidData}
	ErrDeviceNotFound  = &Error{Code: DeviceNotFound}
	ErrNoPlatforms     = &Error{Code: NoPlatforms}
	ErrInfoUnavailable = &Error{Code: InfoUnavailable}
	ErrUnsupported     = &Error{Code: UnsupportedOCL}
	ErrArgs            = &Error{Code: Args}
)

// New returns a library error with a formatted message.
func New(code Code, op, format string, args ...any) error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns a library error caused by err.
func Wrap(err error, code Code, op, format string, args ...any) error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err carries a library error with code.
func Is(err error, code Code) bool {
	return errors.Is(err, &Error{Code: code})
}

// CodeOf returns the code of the first library error in err's chain, or
// Other if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Other
}
