package actuator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/kinematics"
)

func TestWSLink_SendAndRedial(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan Payload, 8)
	var dials atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		dials.Add(1)

		var p Payload
		if err := conn.ReadJSON(&p); err != nil {
			return
		}
		received <- p
		// Hang up after one message so the link has to redial.
	}))
	defer srv.Close()

	link := NewWSLink(time.Second)
	defer link.Close()
	address := strings.TrimPrefix(srv.URL, "http://")

	if err := link.Send(context.Background(), address, kinematics.Command{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	select {
	case p := <-received:
		if len(p.Angles) != 5 || p.Angles[0] != 1 || p.Angles[4] != 5 {
			t.Errorf("received %v", p.Angles)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive the command")
	}

	// Writes to a connection the peer closed eventually fail; keep sending
	// until the link has redialled.
	deadline := time.Now().Add(3 * time.Second)
	for dials.Load() < 2 && time.Now().Before(deadline) {
		link.Send(context.Background(), address, kinematics.Command{9, 9, 9, 9, 9})
		time.Sleep(20 * time.Millisecond)
	}
	if dials.Load() < 2 {
		t.Error("link never redialled after the connection dropped")
	}
}

func TestWSLink_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	address := strings.TrimPrefix(srv.URL, "http://")
	defer srv.Close()

	link := NewWSLink(200 * time.Millisecond)
	if err := link.Send(context.Background(), address, kinematics.Command{}); err == nil {
		t.Error("expected dial error for a non-websocket endpoint")
	}
	if err := link.Close(); err != nil {
		t.Errorf("Close() without a connection error = %v", err)
	}
}
