package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TemperaturePrefix starts every well-formed sensor line.
const TemperaturePrefix = "T:"

var (
	// ErrFormatMismatch is returned when a line does not start with TemperaturePrefix.
	ErrFormatMismatch = errors.New("line does not start with " + TemperaturePrefix)

	// ErrMalformedLine is returned when a line has the right prefix but its
	// fields cannot be split or parsed as finite floats.
	ErrMalformedLine = errors.New("malformed sensor line")
)

// ParseLine parses a line of the form "T:<temperature>,H:<humidity>".
// Leading and trailing whitespace is ignored. Fields after the second
// comma-separated part are ignored.
func ParseLine(line string) (Sample, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, TemperaturePrefix) {
		return Sample{}, ErrFormatMismatch
	}

	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return Sample{}, fmt.Errorf("%w: %q has no humidity field", ErrMalformedLine, line)
	}

	temp, err := fieldValue(parts[0])
	if err != nil {
		return Sample{}, fmt.Errorf("%w: temperature in %q: %v", ErrMalformedLine, line, err)
	}

	humid, err := fieldValue(parts[1])
	if err != nil {
		return Sample{}, fmt.Errorf("%w: humidity in %q: %v", ErrMalformedLine, line, err)
	}

	return Sample{Temperature: temp, Humidity: humid, Raw: line}, nil
}

// fieldValue returns the float between the first and second colon of a
// "K:<value>" field.
func fieldValue(field string) (float64, error) {
	pieces := strings.Split(field, ":")
	if len(pieces) < 2 {
		return 0, fmt.Errorf("field %q has no value", field)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(pieces[1]), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", pieces[1])
	}
	return v, nil
}
