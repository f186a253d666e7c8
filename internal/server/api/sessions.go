// Package api provides the HTTP handlers for the session catalog.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/kinematics"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

// SessionHandler serves /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/commands.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type errorResponse struct {
	Error string `json:"error"`
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type sessionResponse struct {
	Session *store.Session  `json:"session"`
	Replays []*store.Replay `json:"replays"`
}

type commandsResponse struct {
	Header   []string    `json:"header"`
	Commands [][]float64 `json:"commands"`
}

type listReplaysResponse struct {
	Replays []*store.Replay `json:"replays"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		h.list(w, r)
	case strings.HasSuffix(path, "/commands"):
		h.commands(w, r, strings.TrimSuffix(path, "/commands"))
	case strings.Contains(path, "/"):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.get(w, r, path)
	}
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		log.Printf("api: list sessions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

func (h *SessionHandler) lookup(w http.ResponseWriter, id string) (*store.Session, bool) {
	sess, err := h.store.Sessions().Get(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		log.Printf("api: get session %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := h.lookup(w, id)
	if !ok {
		return
	}

	replays, err := h.store.Replays().ListBySession(id)
	if err != nil {
		log.Printf("api: list replays of %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to list replays")
		return
	}
	if replays == nil {
		replays = []*store.Replay{}
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Replays: replays})
}

// commands returns the rows of the session file itself.
func (h *SessionHandler) commands(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := h.lookup(w, id)
	if !ok {
		return
	}

	cmds, err := session.Read(sess.Path)
	if err != nil {
		log.Printf("api: read session %s: %v", sess.Path, err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rows := make([][]float64, len(cmds))
	for i, c := range cmds {
		rows[i] = c.Slice()
	}
	writeJSON(w, http.StatusOK, commandsResponse{Header: kinematics.Header, Commands: rows})
}

// ReplayHandler serves /api/replays, optionally filtered with ?session=id.
type ReplayHandler struct {
	store *store.Store
}

// NewReplayHandler creates a new ReplayHandler with the given store.
func NewReplayHandler(s *store.Store) *ReplayHandler {
	return &ReplayHandler{store: s}
}

func (h *ReplayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		replays []*store.Replay
		err     error
	)
	if id := r.URL.Query().Get("session"); id != "" {
		replays, err = h.store.Replays().ListBySession(id)
	} else {
		replays, err = h.store.Replays().List()
	}
	if err != nil {
		log.Printf("api: list replays: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list replays")
		return
	}
	if replays == nil {
		replays = []*store.Replay{}
	}
	writeJSON(w, http.StatusOK, listReplaysResponse{Replays: replays})
}
