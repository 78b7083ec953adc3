package transport

import (
	"io"
	"net"
	"os"
	"sync"
)

// DialIO establishes a stream transport using a WriteCloser and ReadCloser.
func DialIO(out io.WriteCloser, in io.ReadCloser) (*Stream, error) {
	return NewStream(&ioduplex{out, in}), nil
}

// DialStdio establishes a stream transport using Stdout and Stdin.
func DialStdio() (*Stream, error) {
	return DialIO(os.Stdout, os.Stdin)
}

type ioduplex struct {
	io.WriteCloser
	io.ReadCloser
}

func (d *ioduplex) Close() error {
	if err := d.WriteCloser.Close(); err != nil {
		return err
	}
	if err := d.ReadCloser.Close(); err != nil {
		return err
	}
	return nil
}

// singleListener hands out one transport and then blocks until closed.
type singleListener struct {
	t      Transport
	handed sync.Once
	closed chan struct{}
	shut   sync.Once
}

func newSingleListener(t Transport) *singleListener {
	return &singleListener{t: t, closed: make(chan struct{})}
}

func (l *singleListener) Accept() (Transport, error) {
	var t Transport
	l.handed.Do(func() {
		t = l.t
	})
	if t != nil {
		return t, nil
	}
	<-l.closed
	return nil, io.EOF
}

func (l *singleListener) Close() error {
	l.shut.Do(func() {
		close(l.closed)
	})
	return nil
}

func (l *singleListener) Addr() net.Addr {
	return nil
}

// ListenIO returns a listener that accepts a single stream transport built
// from separate WriteCloser and ReadCloser.
func ListenIO(out io.WriteCloser, in io.ReadCloser) (Listener, error) {
	t, err := DialIO(out, in)
	if err != nil {
		return nil, err
	}
	return newSingleListener(t), nil
}

// ListenStdio is a convenience for calling ListenIO with Stdout and Stdin.
func ListenStdio() (Listener, error) {
	return ListenIO(os.Stdout, os.Stdin)
}
