package transport

import (
	"net"
	"net/http"

	"golang.org/x/net/websocket"
)

// HandleWS is used to take WebSocket connections, wrap them as transports,
// and send them to a NetListener to be accepted. It returns once the
// transport is closed.
func HandleWS(l *NetListener, ws *websocket.Conn) {
	t := newWS(ws)
	if !l.deliver(t) {
		return
	}
	<-t.closed
}

// ListenWS takes a TCP address and returns a NetListener with an HTTP+WebSocket server listening on the given address.
func ListenWS(addr string) (*NetListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	nl := newNetListener(l)
	s := &http.Server{
		Handler: websocket.Handler(func(ws *websocket.Conn) {
			HandleWS(nl, ws)
		}),
	}
	go func() {
		nl.errs <- s.Serve(l)
	}()
	return nl, nil
}
