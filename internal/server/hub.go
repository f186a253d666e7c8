package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/kinematics"
	"github.com/ayusman/mudra/internal/mailbox"
	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"
)

const writeTimeout = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// CommandMessage is what command feed clients receive.
type CommandMessage struct {
	Angles    []float64 `json:"angles"`
	Timestamp int64     `json:"timestamp"`
}

// Hub fans the live loop's output out to monitor clients. Commands and
// frames are each handed over through a depth-1 mailbox, so a slow client
// costs stale updates, never a stalled loop.
type Hub struct {
	commands *mailbox.Mailbox[CommandMessage]
	frames   *mailbox.Mailbox[*gocv.Mat]

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	jpeg    []byte
	seq     uint64

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewHub creates a hub and starts its broadcast goroutines.
func NewHub() *Hub {
	h := &Hub{
		commands: mailbox.New[CommandMessage](),
		frames:   mailbox.New[*gocv.Mat](),
		clients:  make(map[*websocket.Conn]bool),
	}
	h.wg.Add(2)
	go h.broadcastCommands()
	go h.encodeFrames()
	return h
}

// PublishCommand queues cmd for the command feed, replacing any command not
// yet broadcast.
func (h *Hub) PublishCommand(cmd kinematics.Command, at time.Time) {
	h.commands.Put(CommandMessage{Angles: cmd.Slice(), Timestamp: at.UnixMilli()})
}

// PublishFrame queues a copy of frame for the MJPEG stream. The caller keeps
// ownership of frame.
func (h *Hub) PublishFrame(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	clone := frame.Clone()
	if old, ok := h.frames.Put(&clone); ok {
		old.Close()
	}
}

// ServeHTTP upgrades the request to the command feed WebSocket.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer h.drop(conn)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected command feed clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Latest returns the newest encoded frame and its sequence number. The
// sequence is 0 until the first frame is encoded.
func (h *Hub) Latest() ([]byte, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.jpeg, h.seq
}

// Close stops the broadcast goroutines and disconnects every client.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		h.commands.Close()
		h.frames.Close()
		h.wg.Wait()

		for {
			frame, ok := h.frames.TryTake()
			if !ok {
				break
			}
			frame.Close()
		}

		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
		}
		h.clients = make(map[*websocket.Conn]bool)
		h.mu.Unlock()
	})
	return nil
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *Hub) broadcastCommands() {
	defer h.wg.Done()

	for {
		msg, err := h.commands.Take(context.Background())
		if err != nil {
			return
		}

		data, err := json.Marshal(msg)
		if err != nil {
			log.Printf("hub: encode command: %v", err)
			continue
		}

		h.mu.RLock()
		conns := make([]*websocket.Conn, 0, len(h.clients))
		for conn := range h.clients {
			conns = append(conns, conn)
		}
		h.mu.RUnlock()

		for _, conn := range conns {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.drop(conn)
				conn.Close()
			}
		}
	}
}

func (h *Hub) encodeFrames() {
	defer h.wg.Done()

	for {
		frame, err := h.frames.Take(context.Background())
		if err != nil {
			return
		}

		buf, err := gocv.IMEncode(".jpg", *frame)
		frame.Close()
		if err != nil {
			log.Printf("hub: encode frame: %v", err)
			continue
		}
		data := append([]byte(nil), buf.GetBytes()...)
		buf.Close()

		h.mu.Lock()
		h.jpeg = data
		h.seq++
		h.mu.Unlock()
	}
}
