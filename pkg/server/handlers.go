package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ccollicutt/sensortail/pkg/reading"
	"github.com/ccollicutt/sensortail/pkg/tailer"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleData refreshes from the log and returns the current reading. It
// always answers 200; refresh problems only show up in logs and metrics.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	current := s.refresh(r.Context(), r.Header.Get(RequestIDHeader))

	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusOK, current)
}

// handleStream pushes the current reading to a WebSocket client once per
// stream interval until either side goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	id := r.Header.Get(RequestIDHeader)
	s.logger.Debug("stream opened",
		slog.String("remote", conn.RemoteAddr().String()),
		slog.String("request_id", id),
	)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.Server.StreamInterval.Std())
	defer ticker.Stop()

	for {
		current := s.refresh(r.Context(), id)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(current); err != nil {
			s.logger.Debug("stream write failed", slog.Any("error", err))
			return
		}

		select {
		case <-closed:
			s.logger.Debug("stream closed", slog.String("request_id", id))
			return
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.render(w); err != nil {
		s.logger.Error("rendering chart page", slog.Any("error", err))
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// refresh runs one tailer refresh, records its outcome and returns the
// store snapshot.
func (s *Server) refresh(ctx context.Context, requestID string) reading.Reading {
	res := s.tailer.Refresh(ctx)
	s.metrics.Refresh(string(res.Status))

	switch res.Status {
	case tailer.StatusOK:
		s.metrics.Reading(res.Reading.Temperature, res.Reading.Humidity, res.Reading.CapturedAt)
		s.logger.Debug("reading refreshed",
			slog.Float64("temperature", res.Reading.Temperature),
			slog.Float64("humidity", res.Reading.Humidity),
			slog.Bool("changed", res.Changed),
			slog.String("request_id", requestID),
		)
		if res.Changed {
			s.publishAsync(res.Reading)
		}
	case tailer.StatusSkipped:
		s.logger.Debug("refresh skipped",
			slog.String("reason", string(res.Reason)),
			slog.String("line", res.Line),
			slog.String("request_id", requestID),
		)
	case tailer.StatusFailed:
		s.logger.Warn("refresh failed",
			slog.Any("error", res.Err),
			slog.String("line", res.Line),
			slog.String("request_id", requestID),
		)
	}

	return s.tailer.Store().Snapshot()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
