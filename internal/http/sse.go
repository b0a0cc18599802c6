package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"transferdash/internal/core"
	"transferdash/internal/log"
	"transferdash/internal/stream"
)

const sseBuffer = 8

// streamEvents relays values from subscribe to the client as Server-Sent
// Events until the request context ends or done is closed. Slow clients
// drop the oldest pending value.
func streamEvents[T any](w http.ResponseWriter, r *http.Request, done <-chan struct{}, event string, subscribe func(func(T)) stream.Subscription) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalServerError("streaming unsupported").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates := make(chan T, sseBuffer)
	sub := subscribe(func(v T) {
		for {
			select {
			case updates <- v:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer sub.Unsubscribe()

	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentHTTP)
	logger.DebugContext(ctx, "Stream opened", log.FieldEventType, event)
	defer logger.DebugContext(ctx, "Stream closed", log.FieldEventType, event)

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case v := <-updates:
			data, err := json.Marshal(v)
			if err != nil {
				logger.Failure(ctx, "Stream encode failed", log.OpDecode, err, log.FieldEventType, event)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	streamEvents[core.DashboardStats](w, r, s.streams.Done(), "stats", s.transfers.GetDynamicDashboardStats)
}

func (s *Server) handleTransferStream(w http.ResponseWriter, r *http.Request) {
	streamEvents[core.Transfer](w, r, s.streams.Done(), "transfer", s.transfers.GetRealTimeUpdates)
}
