package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shadowhorn/shadowhorn/deepclean"
)

// eventQueueSize bounds the in-flight progress events per stream. The runner
// blocks once a slow client falls this far behind, and gives up when the
// client disconnects.
const eventQueueSize = 64

// handleDeepCleanStream runs a deep clean and streams its progress as
// server-sent events. Heartbeat comments keep proxies from closing the
// connection during long model calls.
func (s *Server) handleDeepCleanStream(w http.ResponseWriter, r *http.Request) {
	if s.deep == nil {
		writeError(w, http.StatusServiceUnavailable, "deep clean is not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	identifier := chi.URLParam(r, "identifier")
	ctx := r.Context()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan deepclean.Event, eventQueueSize)
	done := make(chan error, 1)
	go func() {
		_, err := s.deep.Run(ctx, identifier, events)
		close(events)
		done <- err
	}()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.DebugContext(ctx, "deep-clean stream client disconnected",
				"identifier", identifier)
			<-done
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": heartbeat\n\n")); err != nil {
				<-done
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				if err := <-done; err != nil {
					s.writeStreamError(w, flusher, err)
				}
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
				<-done
				return
			}
			flusher.Flush()
		}
	}
}

// writeStreamError emits a terminal error event. The HTTP status is already
// sent, so SSE is the only channel left.
func (s *Server) writeStreamError(w http.ResponseWriter, flusher http.Flusher, err error) {
	ev := deepclean.Event{Type: deepclean.EventError, Message: err.Error()}
	var noData *deepclean.NoDataError
	if errors.As(err, &noData) {
		ev.Message = noData.Error()
	}
	if data, marshalErr := json.Marshal(ev); marshalErr == nil {
		_, _ = w.Write(append(append([]byte("data: "), data...), '\n', '\n'))
		flusher.Flush()
	}
}
