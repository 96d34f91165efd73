package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single event write; a client that stops draining
	// its socket must not pin a session notifier goroutine.
	writeWait = 10 * time.Second
	// readWait is generous: an idle candidate reading a long question sends
	// nothing, and pings refresh the deadline.
	readWait = 5 * time.Minute
)

// WriteTyped sends one typed event payload.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed error event.
func WriteError(conn *websocket.Conn, msg string) error {
	return WriteTyped(conn, ErrorResponse{Event: EventError, Error: msg})
}

// ReadJSON decodes the next client message into v, refreshing the read
// deadline first.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}
