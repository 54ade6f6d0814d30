package output

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TextFormatter formats reports as a human-readable table.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		_, err := fmt.Fprintf(w, "T:%.1f,H:%.1f\n", report.Reading.Temperature, report.Reading.Humidity)
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Field", "Value"})

	tw.AppendRow(table.Row{"Log", report.Path})
	tw.AppendRow(table.Row{"Status", statusText(report)})
	if report.Error != "" {
		tw.AppendRow(table.Row{"Error", report.Error})
	}
	tw.AppendRow(table.Row{"Temperature", fmt.Sprintf("%.1f °C", report.Reading.Temperature)})
	tw.AppendRow(table.Row{"Humidity", fmt.Sprintf("%.1f %%", report.Reading.Humidity)})
	tw.AppendRow(table.Row{"Captured", report.Reading.CapturedAt.Format(time.RFC3339)})

	if f.opts.Verbose {
		if report.Line != "" {
			tw.AppendRow(table.Row{"Line", report.Line})
		}
		tw.AppendRow(table.Row{"Duration", report.Duration.Round(time.Microsecond)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})

	_, err := fmt.Fprintln(w, tw.Render())
	return err
}

func statusText(report *Report) string {
	status := string(report.Status)
	if report.Reason != "" {
		status += " (" + string(report.Reason) + ")"
	}
	return status
}
