// Package output renders the outcome of a log refresh for the command line.
package output

import (
	"context"
	"io"
	"time"

	"github.com/ccollicutt/sensortail/pkg/reading"
	"github.com/ccollicutt/sensortail/pkg/tailer"
)

// Formatter renders a report in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose adds the raw line and timing details.
	Verbose bool

	// Quiet prints only the values.
	Quiet bool
}

// Report describes one refresh of a log file.
type Report struct {
	// Path is the log file that was read.
	Path string `json:"path"`

	// Status is ok, skipped or failed.
	Status tailer.Status `json:"status"`

	// Reason explains a skipped refresh.
	Reason tailer.Reason `json:"reason,omitempty"`

	// Error describes a failed refresh.
	Error string `json:"error,omitempty"`

	// Line is the raw last line, when one was found.
	Line string `json:"line,omitempty"`

	// Reading is the stored reading after the refresh.
	Reading reading.Reading `json:"reading"`

	// Duration is how long the refresh took.
	Duration time.Duration `json:"duration_ns"`
}

// NewReport creates a Report from a refresh result and the store snapshot
// taken after it.
func NewReport(path string, res tailer.Result, current reading.Reading, took time.Duration) *Report {
	report := &Report{
		Path:     path,
		Status:   res.Status,
		Reason:   res.Reason,
		Line:     res.Line,
		Reading:  current,
		Duration: took,
	}
	if res.Err != nil {
		report.Error = res.Err.Error()
	}
	return report
}

// OK reports whether the refresh produced a reading.
func (r *Report) OK() bool {
	return r.Status == tailer.StatusOK
}

// New returns the formatter registered under name.
func New(name string, opts FormatOptions) (Formatter, bool) {
	switch name {
	case "text", "":
		return NewTextFormatter(opts), true
	case "json":
		return NewJSONFormatter(opts), true
	default:
		return nil, false
	}
}
