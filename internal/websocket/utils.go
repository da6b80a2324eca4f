package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Deadlines for the student exam stream. Writes are small JSON events and
// should never stall a handler; reads are generous because a focused
// student may send nothing between face events.
const (
	writeWait   = 10 * time.Second
	readIdleMax = 5 * time.Minute
)

// WriteTyped sends one typed event payload, bounded by writeWait.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends an ErrorResponse for a rejected stream action.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON decodes the next stream message into v, refreshing the idle
// deadline so a silent-but-connected client is not dropped mid-exam.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readIdleMax))
	return conn.ReadJSON(v)
}
