package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fatal(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func exchange(t *testing.T, a, b Transport) {
	t.Helper()
	fatal(a.Send([]byte("ping")), t)
	msg, err := b.Receive()
	fatal(err, t)
	assert.Equal(t, "ping", string(msg))

	fatal(b.Send([]byte("pong")), t)
	msg, err = a.Receive()
	fatal(err, t)
	assert.Equal(t, "pong", string(msg))

	// message boundaries survive back to back sends
	fatal(a.Send([]byte("one")), t)
	fatal(a.Send([]byte{}), t)
	fatal(a.Send([]byte("three")), t)
	for _, want := range []string{"one", "", "three"} {
		msg, err = b.Receive()
		fatal(err, t)
		assert.Equal(t, want, string(msg))
	}
}

func TestPipe(t *testing.T) {
	a, b := Pipe()
	exchange(t, a, b)

	buf := []byte("mutable")
	fatal(a.Send(buf), t)
	buf[0] = 'X'
	msg, err := b.Receive()
	fatal(err, t)
	assert.Equal(t, "mutable", string(msg))

	fatal(a.Close(), t)
	_, err = b.Receive()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, io.ErrClosedPipe, b.Send([]byte("x")))
}

func TestIO(t *testing.T) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()

	a, err := DialIO(aw, ar)
	fatal(err, t)
	l, err := ListenIO(bw, br)
	fatal(err, t)
	b, err := l.Accept()
	fatal(err, t)

	exchange(t, a, b)

	done := make(chan error)
	go func() {
		_, err := l.Accept()
		done <- err
	}()
	fatal(l.Close(), t)
	assert.Equal(t, io.EOF, <-done)
	a.Close()
	b.Close()
}

func TestTCP(t *testing.T) {
	l, err := ListenTCP("127.0.0.1:0")
	fatal(err, t)
	defer l.Close()

	accepted := make(chan Transport)
	go func() {
		b, err := l.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- b
	}()

	a, err := DialTCP(l.Addr().String())
	fatal(err, t)
	defer a.Close()
	b, ok := <-accepted
	require.True(t, ok)
	defer b.Close()

	exchange(t, a, b)

	fatal(a.Close(), t)
	_, err = b.Receive()
	assert.Error(t, err)
}

func TestWS(t *testing.T) {
	l, err := ListenWS("127.0.0.1:0")
	fatal(err, t)
	defer l.Close()

	accepted := make(chan Transport, 1)
	go func() {
		b, err := l.Accept()
		if err == nil {
			accepted <- b
		}
	}()

	a, err := DialWS(l.Addr().String())
	fatal(err, t)
	defer a.Close()
	b := <-accepted
	defer b.Close()

	exchange(t, a, b)
}

func TestDialURL(t *testing.T) {
	l, err := Listen("tcp://127.0.0.1:0")
	fatal(err, t)
	defer l.Close()

	go func() {
		b, err := l.Accept()
		if err != nil {
			return
		}
		msg, err := b.Receive()
		if err == nil {
			b.Send(msg)
		}
	}()

	a, err := Dial(fmt.Sprintf("tcp://%s", l.Addr()))
	fatal(err, t)
	defer a.Close()
	fatal(a.Send([]byte("echo")), t)
	msg, err := a.Receive()
	fatal(err, t)
	assert.Equal(t, "echo", string(msg))

	_, err = Dial("carrier-pigeon://coop")
	assert.Error(t, err)
	_, err = Listen("netlink://not-a-group")
	assert.Error(t, err)
}

func TestParseURL(t *testing.T) {
	scheme, addr := ParseURL("unix:///tmp/kubix.sock")
	assert.Equal(t, "unix", scheme)
	assert.Equal(t, "/tmp/kubix.sock", addr)

	scheme, addr = ParseURL("localhost:4040")
	assert.Equal(t, "tcp", scheme)
	assert.Equal(t, "localhost:4040", addr)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTemporary(t *testing.T) {
	assert.False(t, IsTemporary(nil))
	assert.True(t, IsTemporary(ErrWouldBlock))
	assert.True(t, IsTemporary(os.NewSyscallError("recvfrom", syscall.EINTR)))
	assert.True(t, IsTemporary(fmt.Errorf("read: %w", syscall.EAGAIN)))
	assert.True(t, IsTemporary(syscall.ENOBUFS))
	assert.True(t, IsTemporary(&net.OpError{Op: "read", Err: timeoutErr{}}))
	assert.False(t, IsTemporary(io.EOF))
	assert.False(t, IsTemporary(errors.New("boom")))
}
