package transport

import (
	"io"
	"net"
)

// NetListener wraps a net.Listener to return connected transports.
type NetListener struct {
	net.Listener
	accepted chan Transport
	closer   chan bool
	errs     chan error
}

// Accept waits for and returns the next connected transport to the listener.
func (l *NetListener) Accept() (Transport, error) {
	select {
	case <-l.closer:
		return nil, io.EOF
	case err := <-l.errs:
		return nil, err
	case t := <-l.accepted:
		return t, nil
	}
}

// Close closes the listener.
// Any blocked Accept operations will be unblocked and return errors.
func (l *NetListener) Close() error {
	select {
	case <-l.closer:
	default:
		close(l.closer)
	}
	return l.Listener.Close()
}

func (l *NetListener) deliver(t Transport) bool {
	select {
	case l.accepted <- t:
		return true
	case <-l.closer:
		t.Close()
		return false
	}
}

func newNetListener(l net.Listener) *NetListener {
	return &NetListener{
		Listener: l,
		accepted: make(chan Transport),
		closer:   make(chan bool),
		errs:     make(chan error, 2),
	}
}

func listenNet(proto, addr string) (*NetListener, error) {
	l, err := net.Listen(proto, addr)
	if err != nil {
		return nil, err
	}
	nl := newNetListener(l)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				nl.errs <- err
				return
			}
			if !nl.deliver(NewStream(conn)) {
				return
			}
		}
	}()
	return nl, nil
}

// ListenTCP creates a TCP listener at the given address.
func ListenTCP(addr string) (*NetListener, error) {
	return listenNet("tcp", addr)
}

// ListenUnix creates a Unix domain socket listener at the given path.
func ListenUnix(path string) (*NetListener, error) {
	return listenNet("unix", path)
}
