package actuator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/kinematics"
)

func TestHTTPLink_Send(t *testing.T) {
	var got Payload
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	link := NewHTTPLink(time.Second)
	defer link.Close()

	address := strings.TrimPrefix(srv.URL, "http://")
	cmd := kinematics.Command{150, 0, 75, 12.5, 3}
	if err := link.Send(context.Background(), address, cmd); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if method != http.MethodPost || path != "/angles" {
		t.Errorf("request = %s %s, want POST /angles", method, path)
	}
	want := []float64{150, 0, 75, 12.5, 3}
	if len(got.Angles) != len(want) {
		t.Fatalf("angles = %v, want %v", got.Angles, want)
	}
	for i := range want {
		if got.Angles[i] != want[i] {
			t.Errorf("angles[%d] = %g, want %g", i, got.Angles[i], want[i])
		}
	}
}

func TestHTTPLink_Errors(t *testing.T) {
	t.Run("server error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "busy", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		err := NewHTTPLink(time.Second).Send(context.Background(), srv.URL, kinematics.Command{})
		if err == nil || !strings.Contains(err.Error(), "503") {
			t.Errorf("Send() error = %v, want status 503", err)
		}
	})

	t.Run("slow device times out", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		start := time.Now()
		err := NewHTTPLink(50*time.Millisecond).Send(context.Background(), srv.URL, kinematics.Command{})
		if err == nil {
			t.Fatal("expected timeout error")
		}
		if time.Since(start) > time.Second {
			t.Errorf("Send() took %s, timeout not applied", time.Since(start))
		}
	})

	t.Run("unreachable address", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		if err := NewHTTPLink(100*time.Millisecond).Send(context.Background(), addr, kinematics.Command{}); err == nil {
			t.Error("expected error for closed server")
		}
	})
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"192.168.114.31", "http://192.168.114.31/angles"},
		{"hand.local:8080", "http://hand.local:8080/angles"},
		{"http://127.0.0.1:9000/", "http://127.0.0.1:9000/angles"},
	}
	for _, tt := range tests {
		if got := endpoint("http", tt.address, "/angles"); got != tt.want {
			t.Errorf("endpoint(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}
