// Package parser reads the tail of a sensor log and parses its
// "T:<temperature>,H:<humidity>" lines.
package parser

// Sample is the pair of values carried by one sensor log line.
type Sample struct {
	Temperature float64
	Humidity    float64

	// Raw is the trimmed line the values were parsed from.
	Raw string
}
