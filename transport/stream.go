package transport

import (
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/progrium/kubix-go/codec"
)

// Stream frames messages over a byte stream with a 4-byte length prefix.
type Stream struct {
	rwc io.ReadWriteCloser
	enc codec.Encoder
	dec codec.Decoder
	mu  sync.Mutex
}

// NewStream wraps rwc as a Transport.
func NewStream(rwc io.ReadWriteCloser) *Stream {
	c := &codec.FrameCodec{Codec: codec.RawCodec{}, Limit: MaxMessageSize}
	return &Stream{
		rwc: rwc,
		enc: c.Encoder(rwc),
		dec: c.Decoder(rwc),
	}
}

func (s *Stream) Send(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(b)
}

func (s *Stream) Receive() ([]byte, error) {
	var b []byte
	if err := s.dec.Decode(&b); err != nil {
		var syscallErr *os.SyscallError
		if errors.As(err, &syscallErr) && syscallErr.Err == syscall.ECONNRESET {
			return nil, io.EOF
		}
		return nil, err
	}
	return b, nil
}

func (s *Stream) Close() error {
	return s.rwc.Close()
}
