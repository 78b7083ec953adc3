package transport

import (
	"fmt"
	"sync"

	"golang.org/x/net/websocket"
)

// WS carries one frame per binary WebSocket message.
type WS struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	once   sync.Once
	closed chan struct{}
}

func newWS(conn *websocket.Conn) *WS {
	conn.PayloadType = websocket.BinaryFrame
	conn.MaxPayloadBytes = MaxMessageSize
	return &WS{
		conn:   conn,
		closed: make(chan struct{}),
	}
}

func (t *WS) Send(b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return websocket.Message.Send(t.conn, b)
}

func (t *WS) Receive() ([]byte, error) {
	var b []byte
	if err := websocket.Message.Receive(t.conn, &b); err != nil {
		return nil, err
	}
	return b, nil
}

func (t *WS) Close() error {
	t.once.Do(func() {
		close(t.closed)
	})
	return t.conn.Close()
}

// DialWS establishes a transport via WebSocket connection.
// The address must be a host and port. Opening a WebSocket
// connection at a particular path is not supported.
func DialWS(addr string) (*WS, error) {
	ws, err := websocket.Dial(fmt.Sprintf("ws://%s/", addr), "", fmt.Sprintf("http://%s/", addr))
	if err != nil {
		return nil, err
	}
	return newWS(ws), nil
}
