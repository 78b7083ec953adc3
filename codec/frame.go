package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrFrameTooLarge is returned when a length prefix exceeds the codec limit.
var ErrFrameTooLarge = errors.New("kubix: frame exceeds size limit")

// length prefixed frame wrapper codec
type FrameCodec struct {
	Codec

	// Limit bounds the size of a decoded frame. Zero means no bound.
	Limit uint32
}

func (c *FrameCodec) Encoder(w io.Writer) Encoder {
	return &frameEncoder{
		w: w,
		c: c.Codec,
	}
}

type frameEncoder struct {
	w io.Writer
	c Codec
}

func (e *frameEncoder) Encode(v interface{}) error {
	var buf bytes.Buffer
	buf.Write(make([]byte, 4))
	enc := e.c.Encoder(&buf)
	err := enc.Encode(v)
	if err != nil {
		return err
	}
	b := buf.Bytes()
	binary.BigEndian.PutUint32(b[:4], uint32(len(b)-4))
	_, err = e.w.Write(b)
	return err
}

func (c *FrameCodec) Decoder(r io.Reader) Decoder {
	return &frameDecoder{
		r:     r,
		c:     c.Codec,
		limit: c.Limit,
	}
}

type frameDecoder struct {
	r     io.Reader
	c     Codec
	limit uint32
}

func (d *frameDecoder) Decode(v interface{}) error {
	prefix := make([]byte, 4)
	_, err := io.ReadFull(d.r, prefix)
	if err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(prefix)
	if d.limit > 0 && size > d.limit {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, d.limit)
	}
	buf := make([]byte, size)
	_, err = io.ReadFull(d.r, buf)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	dec := d.c.Decoder(bytes.NewBuffer(buf))
	return dec.Decode(v)
}
