//go:build linux

package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Netlink is a kernel connector socket subscribed to one connector group.
// Frames travel wrapped in a netlink header of type NLMSG_DONE.
type Netlink struct {
	f     *os.File
	rc    syscall.RawConn
	group uint32
	pid   uint32
	mu    sync.Mutex
	buf   []byte
	queue [][]byte
}

var errNetlinkTruncated = errors.New("transport: truncated netlink message")

// wrapNetlink prefixes b with a netlink header of type NLMSG_DONE.
func wrapNetlink(pid uint32, b []byte) []byte {
	msg := make([]byte, unix.NLMSG_HDRLEN+len(b))
	binary.NativeEndian.PutUint32(msg[0:4], uint32(len(msg)))
	binary.NativeEndian.PutUint16(msg[4:6], unix.NLMSG_DONE)
	binary.NativeEndian.PutUint32(msg[12:16], pid)
	copy(msg[unix.NLMSG_HDRLEN:], b)
	return msg
}

// unwrapNetlink splits a datagram into its messages and returns copies of
// the NLMSG_DONE payloads in order. Messages are NLMSG_ALIGNTO aligned.
func unwrapNetlink(b []byte) ([][]byte, error) {
	var out [][]byte
	for len(b) >= unix.NLMSG_HDRLEN {
		l := int(binary.NativeEndian.Uint32(b[0:4]))
		typ := binary.NativeEndian.Uint16(b[4:6])
		if l < unix.NLMSG_HDRLEN || l > len(b) {
			return out, errNetlinkTruncated
		}
		if typ == unix.NLMSG_DONE {
			data := make([]byte, l-unix.NLMSG_HDRLEN)
			copy(data, b[unix.NLMSG_HDRLEN:l])
			out = append(out, data)
		}
		next := (l + unix.NLMSG_ALIGNTO - 1) &^ (unix.NLMSG_ALIGNTO - 1)
		if next >= len(b) {
			break
		}
		b = b[next:]
	}
	return out, nil
}

// DialNetlink opens a connector socket joined to group.
func DialNetlink(group uint32) (*Netlink, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_CONNECTOR)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_NETLINK, unix.NETLINK_ADD_MEMBERSHIP, int(group)); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt", err)
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("getsockname", err)
	}
	var pid uint32
	if nl, ok := sa.(*unix.SockaddrNetlink); ok {
		pid = nl.Pid
	}
	f := os.NewFile(uintptr(fd), "netlink")
	rc, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Netlink{
		f:     f,
		rc:    rc,
		group: group,
		pid:   pid,
		buf:   make([]byte, os.Getpagesize()),
	}, nil
}

// Send wraps b in a netlink header and writes it to the kernel.
func (n *Netlink) Send(b []byte) error {
	msg := wrapNetlink(n.pid, b)

	n.mu.Lock()
	defer n.mu.Unlock()
	var serr error
	err := n.rc.Write(func(fd uintptr) bool {
		serr = unix.Sendto(int(fd), msg, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK})
		return serr != unix.EAGAIN
	})
	if err != nil {
		return err
	}
	if serr != nil {
		return os.NewSyscallError("sendto", serr)
	}
	return nil
}

// Receive returns the payload of the next NLMSG_DONE message. Error and
// other control messages are skipped. A datagram carrying several messages
// is drained over successive calls. Receive must not be called
// concurrently.
func (n *Netlink) Receive() ([]byte, error) {
	for len(n.queue) == 0 {
		var (
			size int
			rerr error
		)
		err := n.rc.Read(func(fd uintptr) bool {
			size, _, rerr = unix.Recvfrom(int(fd), n.buf, 0)
			return rerr != unix.EAGAIN
		})
		if err != nil {
			return nil, err
		}
		if rerr != nil {
			return nil, os.NewSyscallError("recvfrom", rerr)
		}
		// keep whatever parsed before a truncated tail
		n.queue, _ = unwrapNetlink(n.buf[:size])
	}
	b := n.queue[0]
	n.queue[0] = nil
	n.queue = n.queue[1:]
	return b, nil
}

func (n *Netlink) Close() error {
	return n.f.Close()
}

func (n *Netlink) String() string {
	return fmt.Sprintf("netlink[group:%d pid:%d]", n.group, n.pid)
}

// ListenNetlink returns a listener handing out a single connector socket.
func ListenNetlink(group uint32) (Listener, error) {
	t, err := DialNetlink(group)
	if err != nil {
		return nil, err
	}
	return newSingleListener(t), nil
}
