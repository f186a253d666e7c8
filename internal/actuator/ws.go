package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/kinematics"
)

// WSLink streams commands as JSON text frames over a WebSocket opened on
// the first Send. A failed write drops the connection; the next Send
// redials.
type WSLink struct {
	timeout time.Duration
	dialer  *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
	url  string
}

// NewWSLink creates a WSLink with the given dial and write timeout.
func NewWSLink(timeout time.Duration) *WSLink {
	return &WSLink{
		timeout: timeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
	}
}

func (l *WSLink) Send(ctx context.Context, address string, cmd kinematics.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	url := endpoint("ws", address, "/ws")
	if l.conn != nil && l.url != url {
		l.conn.Close()
		l.conn = nil
	}

	if l.conn == nil {
		conn, _, err := l.dialer.DialContext(ctx, url, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", url, err)
		}
		l.conn = conn
		l.url = url
	}

	l.conn.SetWriteDeadline(time.Now().Add(l.timeout))
	if err := l.conn.WriteJSON(NewPayload(cmd)); err != nil {
		l.conn.Close()
		l.conn = nil
		return fmt.Errorf("write to %s: %w", url, err)
	}
	return nil
}

func (l *WSLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}
	l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(l.timeout))
	err := l.conn.Close()
	l.conn = nil
	return err
}
