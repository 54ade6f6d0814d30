// Package reading holds the temperature/humidity reading currently
// considered authoritative and the store that owns it.
package reading

import (
	"encoding/json"
	"time"
)

// Reading is a single parsed sensor sample.
type Reading struct {
	// Temperature in degrees Celsius.
	Temperature float64

	// Humidity in percent relative humidity.
	Humidity float64

	// CapturedAt is the wall-clock time the log was read, not any time
	// embedded in the log itself.
	CapturedAt time.Time
}

// Default returns the reading used before any line has been parsed.
func Default(now time.Time) Reading {
	return Reading{CapturedAt: now}
}

// Equal reports whether two readings carry the same values and capture time.
func (r Reading) Equal(other Reading) bool {
	return r.Temperature == other.Temperature &&
		r.Humidity == other.Humidity &&
		r.CapturedAt.Equal(other.CapturedAt)
}

// wireReading is the JSON shape served to the chart page.
type wireReading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   float64 `json:"timestamp"`
}

// UnixSeconds returns CapturedAt as fractional seconds since the epoch.
func (r Reading) UnixSeconds() float64 {
	return float64(r.CapturedAt.UnixNano()) / float64(time.Second)
}

// MarshalJSON encodes the reading with its capture time as a unix epoch float.
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireReading{
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Timestamp:   r.UnixSeconds(),
	})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var w wireReading
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	sec := int64(w.Timestamp)
	nsec := int64((w.Timestamp - float64(sec)) * float64(time.Second))
	*r = Reading{
		Temperature: w.Temperature,
		Humidity:    w.Humidity,
		CapturedAt:  time.Unix(sec, nsec),
	}
	return nil
}
