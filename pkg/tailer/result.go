package tailer

import (
	"errors"

	"github.com/ccollicutt/sensortail/pkg/reading"
)

// Status classifies the outcome of a refresh.
type Status string

const (
	// StatusOK means the last line parsed and the store was updated.
	StatusOK Status = "ok"
	// StatusSkipped means there was nothing usable to parse; the store is untouched.
	StatusSkipped Status = "skipped"
	// StatusFailed means the log could not be read or the line was malformed;
	// the store is untouched.
	StatusFailed Status = "failed"
)

// Reason explains a skipped refresh.
type Reason string

const (
	ReasonEmpty          Reason = "empty"
	ReasonFormatMismatch Reason = "format_mismatch"
)

// ErrLogNotFound is returned when the log file does not exist.
var ErrLogNotFound = errors.New("log file not found")

// Result is the tagged outcome of Refresh.
type Result struct {
	Status Status

	// Reading is the newly stored reading when Status is StatusOK.
	Reading reading.Reading

	// Reason is set when Status is StatusSkipped.
	Reason Reason

	// Err is set when Status is StatusFailed.
	Err error

	// Line is the raw last line, when one was found.
	Line string

	// Changed is true when Status is StatusOK and Line differs from the
	// line of the previous successful refresh.
	Changed bool
}

// OK reports whether the refresh updated the store.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

func skipped(reason Reason, line string) Result {
	return Result{Status: StatusSkipped, Reason: reason, Line: line}
}

func failed(err error, line string) Result {
	return Result{Status: StatusFailed, Err: err, Line: line}
}
