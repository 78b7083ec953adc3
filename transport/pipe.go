package transport

import (
	"io"
	"sync"
)

const pipeDepth = 128

type pipeEnd struct {
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   *sync.Once
}

// Pipe returns a connected in-memory pair of transports. Messages are
// copied on Send. Closing either end closes both.
func Pipe() (Transport, Transport) {
	ab := make(chan []byte, pipeDepth)
	ba := make(chan []byte, pipeDepth)
	closed := make(chan struct{})
	once := new(sync.Once)
	a := &pipeEnd{in: ba, out: ab, closed: closed, once: once}
	b := &pipeEnd{in: ab, out: ba, closed: closed, once: once}
	return a, b
}

func (p *pipeEnd) Send(b []byte) error {
	msg := make([]byte, len(b))
	copy(msg, b)
	select {
	case <-p.closed:
		return io.ErrClosedPipe
	default:
	}
	select {
	case p.out <- msg:
		return nil
	case <-p.closed:
		return io.ErrClosedPipe
	}
}

func (p *pipeEnd) Receive() ([]byte, error) {
	select {
	case b := <-p.in:
		return b, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() {
		close(p.closed)
	})
	return nil
}
