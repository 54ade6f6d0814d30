package reading

import (
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	r := Default(now)

	if r.Temperature != 0 || r.Humidity != 0 {
		t.Errorf("Default() = (%v, %v), want (0, 0)", r.Temperature, r.Humidity)
	}
	if !r.CapturedAt.Equal(now) {
		t.Errorf("CapturedAt = %v, want %v", r.CapturedAt, now)
	}
}

func TestStore_SnapshotReplace(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s := NewStore(Default(start))

	if got := s.Snapshot(); !got.Equal(Default(start)) {
		t.Errorf("Snapshot() = %+v, want default", got)
	}

	next := Reading{Temperature: 25.5, Humidity: 62.1, CapturedAt: start.Add(time.Second)}
	s.Replace(next)

	if got := s.Snapshot(); !got.Equal(next) {
		t.Errorf("Snapshot() = %+v, want %+v", got, next)
	}
}

func TestStore_NoTornReads(t *testing.T) {
	s := NewStore(Reading{Temperature: 1, Humidity: 1})

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			v := float64(i)
			s.Replace(Reading{Temperature: v, Humidity: v})
		}
		close(stop)
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				r := s.Snapshot()
				if r.Temperature != r.Humidity {
					t.Errorf("torn read: temperature=%v humidity=%v", r.Temperature, r.Humidity)
					return
				}
			}
		}()
	}

	wg.Wait()
}

func TestReading_MarshalJSON(t *testing.T) {
	r := Reading{
		Temperature: 25.5,
		Humidity:    62.1,
		CapturedAt:  time.Unix(1700000000, 500000000),
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var payload map[string]float64
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(payload) != 3 {
		t.Errorf("payload has %d fields, want 3: %s", len(payload), data)
	}
	if payload["temperature"] != 25.5 {
		t.Errorf("temperature = %v, want 25.5", payload["temperature"])
	}
	if payload["humidity"] != 62.1 {
		t.Errorf("humidity = %v, want 62.1", payload["humidity"])
	}
	if math.Abs(payload["timestamp"]-1700000000.5) > 1e-6 {
		t.Errorf("timestamp = %v, want 1700000000.5", payload["timestamp"])
	}
}

func TestReading_UnmarshalJSON(t *testing.T) {
	var r Reading
	if err := json.Unmarshal([]byte(`{"temperature":20,"humidity":55.5,"timestamp":1700000000.25}`), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.Temperature != 20 || r.Humidity != 55.5 {
		t.Errorf("got (%v, %v), want (20, 55.5)", r.Temperature, r.Humidity)
	}
	if r.CapturedAt.Unix() != 1700000000 {
		t.Errorf("CapturedAt = %v, want unix 1700000000", r.CapturedAt)
	}
}
