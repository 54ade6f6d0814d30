package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ccollicutt/sensortail/pkg/config"
	"github.com/ccollicutt/sensortail/pkg/logging"
	"github.com/ccollicutt/sensortail/pkg/metrics"
	"github.com/ccollicutt/sensortail/pkg/publish"
	"github.com/ccollicutt/sensortail/pkg/reading"
	"github.com/ccollicutt/sensortail/pkg/tailer"
)

var epoch = time.Unix(1700000000, 0)

type recordingPublisher struct {
	mu  sync.Mutex
	got []reading.Reading
}

func (p *recordingPublisher) Name() string { return "recorder" }

func (p *recordingPublisher) Publish(_ context.Context, r reading.Reading) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, r)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

func (p *recordingPublisher) readings() []reading.Reading {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]reading.Reading(nil), p.got...)
}

type fixture struct {
	path      string
	server    *Server
	metrics   *metrics.Metrics
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.log")
	cfg := config.DefaultConfig()
	cfg.LogPath = path
	cfg.Server.StreamInterval = config.Duration(20 * time.Millisecond)

	store := reading.NewStore(reading.Default(epoch))
	tl := tailer.New(path, store,
		tailer.WithLogger(logging.Discard()),
		tailer.WithClock(func() time.Time { return epoch.Add(time.Minute) }),
	)

	m := metrics.New()
	rec := &recordingPublisher{}
	srv, err := New(Options{
		Config:    cfg,
		Tailer:    tl,
		Publisher: publish.NewDispatcher(logging.Discard(), m, rec),
		Metrics:   m,
		Logger:    logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &fixture{path: path, server: srv, metrics: m, publisher: rec}
}

func (f *fixture) writeLog(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(f.path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write log: %v", err)
	}
}

func (f *fixture) get(t *testing.T, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeReading(t *testing.T, body io.Reader) map[string]float64 {
	t.Helper()
	var got map[string]float64
	if err := json.NewDecoder(body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return got
}

func TestNew_RequiresConfigAndTailer(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New() without config should fail")
	}
	if _, err := New(Options{Config: config.DefaultConfig()}); err == nil {
		t.Error("New() without tailer should fail")
	}
}

func TestData_ReturnsLatestReading(t *testing.T) {
	f := newFixture(t)
	f.writeLog(t, "T:21.0,H:55.0\nT:25.5,H:62.1\n")

	rec := f.get(t, "/api/data", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	body := decodeReading(t, rec.Body)
	if len(body) != 3 {
		t.Errorf("body has %d fields, want exactly temperature/humidity/timestamp: %v", len(body), body)
	}
	if body["temperature"] != 25.5 || body["humidity"] != 62.1 {
		t.Errorf("body = %v, want 25.5/62.1", body)
	}
	if body["timestamp"] != float64(epoch.Add(time.Minute).Unix()) {
		t.Errorf("timestamp = %v, want %v", body["timestamp"], epoch.Add(time.Minute).Unix())
	}
}

func TestData_MissingLogServesDefaults(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/data", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeReading(t, rec.Body)
	if body["temperature"] != 0 || body["humidity"] != 0 {
		t.Errorf("body = %v, want zero reading", body)
	}
	if body["timestamp"] != float64(epoch.Unix()) {
		t.Errorf("timestamp = %v, want startup time", body["timestamp"])
	}
}

func TestData_KeepsLastGoodReading(t *testing.T) {
	f := newFixture(t)
	f.writeLog(t, "T:25.5,H:62.1\n")
	f.get(t, "/api/data", nil)

	f.writeLog(t, "T:25.5,H:62.1\ngarbage\n")
	body := decodeReading(t, f.get(t, "/api/data", nil).Body)
	if body["temperature"] != 25.5 || body["humidity"] != 62.1 {
		t.Errorf("after format mismatch body = %v, want previous reading", body)
	}

	if err := os.Remove(f.path); err != nil {
		t.Fatal(err)
	}
	body = decodeReading(t, f.get(t, "/api/data", nil).Body)
	if body["temperature"] != 25.5 {
		t.Errorf("after removal body = %v, want previous reading", body)
	}
}

func TestData_PublishesOnlyOnChange(t *testing.T) {
	f := newFixture(t)
	f.writeLog(t, "T:25.5,H:62.1\n")

	f.get(t, "/api/data", nil)
	f.get(t, "/api/data", nil)
	f.writeLog(t, "T:25.5,H:62.1\nT:26.0,H:60.0\n")
	f.get(t, "/api/data", nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if got := f.publisher.count(); got != 2 {
		t.Errorf("published %d readings, want 2", got)
	}
}

func TestData_PublishesInCaptureOrder(t *testing.T) {
	f := newFixture(t)

	lines := []struct {
		line        string
		temperature float64
	}{
		{"T:20.1,H:50.0", 20.1},
		{"T:21.2,H:51.0", 21.2},
		{"T:22.3,H:52.0", 22.3},
		{"T:23.4,H:53.0", 23.4},
		{"T:24.5,H:54.0", 24.5},
		{"T:25.6,H:55.0", 25.6},
	}

	content := ""
	for _, l := range lines {
		content += l.line + "\n"
		f.writeLog(t, content)
		f.get(t, "/api/data", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	got := f.publisher.readings()
	if len(got) != len(lines) {
		t.Fatalf("published %d readings, want %d", len(got), len(lines))
	}
	for i, l := range lines {
		if got[i].Temperature != l.temperature {
			t.Errorf("reading %d temperature = %v, want %v", i, got[i].Temperature, l.temperature)
		}
	}
}

func TestData_NoPublishAfterShutdown(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	f.writeLog(t, "T:25.5,H:62.1\n")
	rec := f.get(t, "/api/data", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	// A second shutdown must not close the queue twice.
	if err := f.server.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}

	if got := f.publisher.count(); got != 0 {
		t.Errorf("published %d readings after shutdown, want 0", got)
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t)

	h := http.Header{}
	h.Set(RequestIDHeader, "abc-123")
	rec := f.get(t, "/healthz", h)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("echoed request id = %q, want abc-123", got)
	}

	rec = f.get(t, "/healthz", nil)
	if got := rec.Header().Get(RequestIDHeader); len(got) != 36 {
		t.Errorf("generated request id = %q, want a uuid", got)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestIndex_RendersChartSettings(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	compact := strings.Join(strings.Fields(body), "")
	if !strings.Contains(compact, "constpollInterval=2000;") {
		t.Error("page missing poll interval of 2000ms")
	}
	if !strings.Contains(compact, "constmaxPoints=20;") {
		t.Error("page missing max points of 20")
	}
	for _, want := range []string{
		"<title>Live Temperature &amp; Humidity</title>",
		"chart.js@3.7.1",
		"yAxisID: 'y1'",
		"toFixed(1)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.writeLog(t, "T:25.5,H:62.1\n")
	f.get(t, "/api/data", nil)

	rec := f.get(t, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`sensortail_refresh_total{status="ok"} 1`,
		"sensortail_temperature_celsius 25.5",
		`sensortail_http_requests_total{route="/api/data",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/data", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestStream_PushesReadings(t *testing.T) {
	f := newFixture(t)
	f.writeLog(t, "T:25.5,H:62.1\n")

	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first map[string]float64
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if first["temperature"] != 25.5 {
		t.Errorf("first = %v, want temperature 25.5", first)
	}

	f.writeLog(t, "T:25.5,H:62.1\nT:27.0,H:58.5\n")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var next map[string]float64
		if err := conn.ReadJSON(&next); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if next["temperature"] == 27.0 && next["humidity"] == 58.5 {
			return
		}
	}
	t.Error("stream never delivered the appended reading")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
