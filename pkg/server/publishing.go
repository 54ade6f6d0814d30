package server

import (
	"context"
	"log/slog"

	"github.com/ccollicutt/sensortail/pkg/reading"
)

const publishQueueSize = 16

// publishAsync queues r for the publish worker, starting it on first use.
// Readings arriving after shutdown began, or while the queue is full, are
// dropped.
func (s *Server) publishAsync(r reading.Reading) {
	if s.publisher == nil || s.publisher.Len() == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		s.logger.Debug("dropping reading, server is shutting down")
		return
	}

	if !s.workerStarted {
		s.workerStarted = true
		s.publishing.Add(1)
		go s.publishLoop()
	}

	select {
	case s.pending <- r:
	default:
		s.logger.Warn("publish queue full, dropping reading",
			slog.Float64("temperature", r.Temperature),
			slog.Float64("humidity", r.Humidity),
		)
	}
}

func (s *Server) publishLoop() {
	defer s.publishing.Done()
	for r := range s.pending {
		// Failures are logged and counted by the dispatcher.
		_ = s.publisher.Publish(context.Background(), r)
	}
}

// stopPublishing refuses further readings and lets the worker drain the
// queue. Safe to call more than once.
func (s *Server) stopPublishing() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return
	}
	s.closing = true
	close(s.pending)
}
