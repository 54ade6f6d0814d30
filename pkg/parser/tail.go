package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultTailWindow is how many trailing bytes are read to find the last line.
const DefaultTailWindow = 64 * 1024

// ErrLineTooLong is returned when the trailing window holds no line boundary,
// so the last line cannot be isolated.
var ErrLineTooLong = errors.New("last line exceeds tail window")

// LastLine returns the last non-empty line found in the final window bytes
// of r, where size is the total length of r. A window <= 0 reads everything.
// The returned line has surrounding whitespace trimmed. An empty string with
// a nil error means the input holds no non-empty line.
func LastLine(r io.ReaderAt, size, window int64) (string, error) {
	if size <= 0 {
		return "", nil
	}
	if window <= 0 || window > size {
		window = size
	}

	start := size - window
	// Read one byte before the window so a line starting exactly at the
	// window boundary is recognised as complete.
	readFrom := start
	if start > 0 {
		readFrom = start - 1
	}

	buf := make([]byte, size-readFrom)
	n, err := r.ReadAt(buf, readFrom)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading tail: %w", err)
	}
	buf = buf[:n]

	if start > 0 {
		nl := bytes.IndexByte(buf, '\n')
		if nl < 0 {
			return "", ErrLineTooLong
		}
		buf = buf[nl+1:]
	}

	text := strings.TrimRight(string(buf), " \t\r\n")
	if text == "" {
		if start > 0 {
			// Only blank lines in the window; the content line is further back.
			return "", ErrLineTooLong
		}
		return "", nil
	}

	if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	}
	return strings.TrimSpace(text), nil
}

// ReadLastLine returns the last non-empty line of an open file, reading at
// most window trailing bytes.
func ReadLastLine(f *os.File, window int64) (string, error) {
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", f.Name())
	}

	line, err := LastLine(f, info.Size(), window)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", f.Name(), err)
	}
	return line, nil
}
