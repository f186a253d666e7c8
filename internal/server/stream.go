package server

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultStreamInterval paces the MJPEG stream at about 15 frames a second.
const DefaultStreamInterval = 66 * time.Millisecond

// StreamHandler serves the hub's latest frame as MJPEG.
type StreamHandler struct {
	hub      *Hub
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler reading from hub.
func NewStreamHandler(hub *Hub) *StreamHandler {
	return &StreamHandler{hub: hub, interval: DefaultStreamInterval}
}

// ServeHTTP streams MJPEG frames until the client goes away. A frame is
// written only when the hub has a newer one.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint64
	for {
		if jpeg, seq := h.hub.Latest(); seq != last && jpeg != nil {
			last = seq

			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
			if _, err := w.Write(jpeg); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
