package channel

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// handshakeTimeout bounds the WebSocket open, including the connect
	// timeout required of Connect().
	handshakeTimeout = 10 * time.Second

	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// maxMessageSize is the maximum inbound message size allowed
	maxMessageSize = 512 * 1024 // classification results are small
)

// Conn is the minimal transport capability the manager needs: text
// frames in, text frames out, close. Fakes implement it in tests.
type Conn interface {
	// ReadMessage blocks until the next text frame arrives.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one text frame. Safe for concurrent use.
	WriteMessage(data []byte) error

	// Close releases the transport. Safe to call more than once.
	Close() error
}

// Dialer opens a Conn to the given URL.
type Dialer func(ctx context.Context, url string) (Conn, error)

// DialWebSocket is the production Dialer, backed by gorilla/websocket.
func DialWebSocket(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	ws.SetReadLimit(maxMessageSize)
	return &wsConn{ws: ws}, nil
}

// wsConn adapts a gorilla connection to Conn. The write mutex serialises
// writes from the heartbeat, the frame pump, and application sends.
type wsConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
