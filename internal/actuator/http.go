package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/kinematics"
)

// HTTPLink POSTs each command as JSON to http://<address>/angles.
type HTTPLink struct {
	client *http.Client
}

// NewHTTPLink creates an HTTPLink whose requests time out after timeout.
func NewHTTPLink(timeout time.Duration) *HTTPLink {
	return &HTTPLink{client: &http.Client{Timeout: timeout}}
}

func (l *HTTPLink) Send(ctx context.Context, address string, cmd kinematics.Command) error {
	body, err := json.Marshal(NewPayload(cmd))
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint("http", address, "/angles"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("send to %s: %w", address, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("send to %s: unexpected status %s", address, resp.Status)
	}
	return nil
}

func (l *HTTPLink) Close() error {
	l.client.CloseIdleConnections()
	return nil
}

// endpoint turns a bare host[:port] into a URL. Addresses that already carry
// a scheme are used as the base.
func endpoint(scheme, address, path string) string {
	if strings.Contains(address, "://") {
		return strings.TrimRight(address, "/") + path
	}
	return scheme + "://" + address + path
}
