//go:build linux

package transport

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestNetlinkWrap(t *testing.T) {
	msg := wrapNetlink(77, []byte("frame"))
	assert.Len(t, msg, unix.NLMSG_HDRLEN+5)
	assert.Equal(t, uint32(len(msg)), binary.NativeEndian.Uint32(msg[0:4]))
	assert.Equal(t, uint16(unix.NLMSG_DONE), binary.NativeEndian.Uint16(msg[4:6]))
	assert.Equal(t, uint32(77), binary.NativeEndian.Uint32(msg[12:16]))

	out, err := unwrapNetlink(msg)
	fatal(err, t)
	assert.Equal(t, [][]byte{[]byte("frame")}, out)
}

func pad(b []byte) []byte {
	for len(b)%unix.NLMSG_ALIGNTO != 0 {
		b = append(b, 0)
	}
	return b
}

func TestNetlinkUnwrapMultiple(t *testing.T) {
	noop := wrapNetlink(1, []byte("skip"))
	binary.NativeEndian.PutUint16(noop[4:6], unix.NLMSG_NOOP)

	var dgram []byte
	dgram = append(dgram, pad(wrapNetlink(1, []byte("one")))...)
	dgram = append(dgram, pad(noop)...)
	dgram = append(dgram, pad(wrapNetlink(1, []byte("second")))...)
	dgram = append(dgram, wrapNetlink(1, nil)...)

	out, err := unwrapNetlink(dgram)
	fatal(err, t)
	assert.Equal(t, [][]byte{[]byte("one"), []byte("second"), {}}, out)

	// results do not alias the receive buffer
	dgram[unix.NLMSG_HDRLEN] = 'X'
	assert.Equal(t, "one", string(out[0]))
}

func TestNetlinkUnwrapTruncated(t *testing.T) {
	first := pad(wrapNetlink(1, []byte("kept")))
	second := wrapNetlink(1, []byte("cut off"))
	dgram := append(append([]byte{}, first...), second[:len(second)-3]...)

	out, err := unwrapNetlink(dgram)
	assert.ErrorIs(t, err, errNetlinkTruncated)
	assert.Equal(t, [][]byte{[]byte("kept")}, out)

	bad := wrapNetlink(1, nil)
	binary.NativeEndian.PutUint32(bad[0:4], 4)
	_, err = unwrapNetlink(bad)
	assert.ErrorIs(t, err, errNetlinkTruncated)

	out, err = unwrapNetlink([]byte{1, 2, 3})
	fatal(err, t)
	assert.Empty(t, out)
}

func TestNetlinkReceiveDrainsQueue(t *testing.T) {
	n := &Netlink{queue: [][]byte{[]byte("a"), []byte("b")}}
	b, err := n.Receive()
	fatal(err, t)
	assert.Equal(t, "a", string(b))
	b, err = n.Receive()
	fatal(err, t)
	assert.Equal(t, "b", string(b))
	assert.Empty(t, n.queue)
}
