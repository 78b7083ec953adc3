// Package transport provides the duplex, message-framed transports a bus
// runs over. Every Send carries exactly one encoded frame and every Receive
// returns exactly one.
package transport

import (
	"errors"
	"net"
	"os"
	"syscall"
)

// MaxMessageSize bounds a single message on stream transports.
const MaxMessageSize = 64 << 10

var (
	// ErrWouldBlock is returned when no message is available yet. It is
	// always temporary.
	ErrWouldBlock = errors.New("transport: would block")

	// ErrUnsupported is returned for transports not available on this platform.
	ErrUnsupported = errors.New("transport: not supported on this platform")
)

// Transport is a reliable, ordered, message-framed duplex channel.
type Transport interface {
	// Send writes one message. It is safe to call concurrently.
	Send(b []byte) error

	// Receive blocks for the next message. It is called by a single reader.
	Receive() ([]byte, error)

	// Close closes the transport, unblocking Receive.
	Close() error
}

type Listener interface {
	// Accept waits for and returns the next connected transport.
	Accept() (Transport, error)

	// Close closes the listener.
	// Any blocked Accept operations will be unblocked and return errors.
	Close() error

	Addr() net.Addr
}

// IsTemporary reports whether err is worth retrying: interrupted calls,
// would-block conditions, exhausted socket buffers and timeouts.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWouldBlock) ||
		errors.Is(err, syscall.EINTR) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.ENOBUFS) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
