package parser

import (
	"errors"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantTemp  float64
		wantHumid float64
		wantErr   error
	}{
		{
			name:      "well formed",
			line:      "T:25.5,H:62.1",
			wantTemp:  25.5,
			wantHumid: 62.1,
		},
		{
			name:      "negative temperature",
			line:      "T:-3.2,H:10.0",
			wantTemp:  -3.2,
			wantHumid: 10.0,
		},
		{
			name:      "surrounding whitespace",
			line:      "  T:20.0,H:55.5\r\n",
			wantTemp:  20.0,
			wantHumid: 55.5,
		},
		{
			name:      "whitespace around values",
			line:      "T: 21.5 ,H: 40",
			wantTemp:  21.5,
			wantHumid: 40,
		},
		{
			name:      "integer values",
			line:      "T:1,H:2",
			wantTemp:  1,
			wantHumid: 2,
		},
		{
			name:      "extra fields ignored",
			line:      "T:22.0,H:51.0,P:1013",
			wantTemp:  22.0,
			wantHumid: 51.0,
		},
		{
			name:    "bad prefix",
			line:    "X:1,H:2",
			wantErr: ErrFormatMismatch,
		},
		{
			name:    "startup banner",
			line:    "RISC-V IoT Data Simulator Starting...",
			wantErr: ErrFormatMismatch,
		},
		{
			name:    "empty",
			line:    "",
			wantErr: ErrFormatMismatch,
		},
		{
			name:    "non numeric temperature",
			line:    "T:abc,H:2",
			wantErr: ErrMalformedLine,
		},
		{
			name:    "non numeric humidity",
			line:    "T:1,H:",
			wantErr: ErrMalformedLine,
		},
		{
			name:    "missing humidity field",
			line:    "T:1",
			wantErr: ErrMalformedLine,
		},
		{
			name:    "humidity without colon",
			line:    "T:1,H2",
			wantErr: ErrMalformedLine,
		},
		{
			name:    "not a number",
			line:    "T:NaN,H:2",
			wantErr: ErrMalformedLine,
		},
		{
			name:    "infinite",
			line:    "T:1,H:+Inf",
			wantErr: ErrMalformedLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseLine(%q) error = %v, want %v", tt.line, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLine(%q) error = %v", tt.line, err)
			}
			if got.Temperature != tt.wantTemp {
				t.Errorf("Temperature = %v, want %v", got.Temperature, tt.wantTemp)
			}
			if got.Humidity != tt.wantHumid {
				t.Errorf("Humidity = %v, want %v", got.Humidity, tt.wantHumid)
			}
		})
	}
}

func TestParseLine_RawIsTrimmed(t *testing.T) {
	got, err := ParseLine("  T:1.0,H:2.0  ")
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	if got.Raw != "T:1.0,H:2.0" {
		t.Errorf("Raw = %q, want %q", got.Raw, "T:1.0,H:2.0")
	}
}
