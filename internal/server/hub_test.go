package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/kinematics"
	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func publishBlankFrame(t *testing.T, hub *Hub) {
	t.Helper()
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	hub.PublishFrame(&frame)
}

func TestHub_BroadcastsCommands(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ts := httptest.NewServer(hub)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	waitFor(t, "client registration", func() bool { return hub.Clients() == 1 })

	at := time.UnixMilli(1710000000123)
	hub.PublishCommand(kinematics.Command{150, 0, 75, 12.5, 3}, at)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg CommandMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}

	want := []float64{150, 0, 75, 12.5, 3}
	if len(msg.Angles) != len(want) {
		t.Fatalf("angles = %v, want %v", msg.Angles, want)
	}
	for i := range want {
		if msg.Angles[i] != want[i] {
			t.Errorf("angles[%d] = %f, want %f", i, msg.Angles[i], want[i])
		}
	}
	if msg.Timestamp != at.UnixMilli() {
		t.Errorf("timestamp = %d, want %d", msg.Timestamp, at.UnixMilli())
	}
}

func TestHub_DropsClientOnClose(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	waitFor(t, "client registration", func() bool { return hub.Clients() == 1 })

	conn.Close()
	waitFor(t, "client removal", func() bool { return hub.Clients() == 0 })
}

func TestHub_EncodesFrames(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	if _, seq := hub.Latest(); seq != 0 {
		t.Fatalf("Latest() seq = %d before any frame", seq)
	}

	publishBlankFrame(t, hub)
	waitFor(t, "encoded frame", func() bool {
		_, seq := hub.Latest()
		return seq > 0
	})

	jpeg, _ := hub.Latest()
	if !bytes.HasPrefix(jpeg, []byte{0xFF, 0xD8}) {
		t.Errorf("frame does not start with a JPEG marker: % x", jpeg[:min(4, len(jpeg))])
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()

	if err := hub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := hub.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	// Publishing after close is discarded.
	publishBlankFrame(t, hub)
	hub.PublishCommand(kinematics.Command{}, time.Now())
}

func TestStreamHandler(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	publishBlankFrame(t, hub)
	waitFor(t, "encoded frame", func() bool {
		_, seq := hub.Latest()
		return seq > 0
	})

	t.Run("streams the latest frame", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()

		req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		NewStreamHandler(hub).ServeHTTP(rec, req)

		if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
			t.Errorf("Content-Type = %q", ct)
		}
		body := rec.Body.String()
		if strings.Count(body, "--frame\r\n") != 1 {
			t.Errorf("expected exactly one part for one frame, body has %d", strings.Count(body, "--frame\r\n"))
		}
		if !strings.Contains(body, "Content-Type: image/jpeg\r\n") {
			t.Error("part is missing its JPEG content type")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/stream", nil)
		rec := httptest.NewRecorder()

		NewStreamHandler(hub).ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}
