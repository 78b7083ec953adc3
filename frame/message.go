package frame

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Frame is one unit on the transport. Payload is opaque to the bus.
type Frame struct {
	ID      BusID
	Seq     uint32
	Ack     uint32
	Flags   uint16
	Key     Key
	Op      Op
	Result  Result
	Payload []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("{Frame Key:%s Op:%s Result:%s Seq:%d Length:%d}",
		f.Key, f.Op, f.Result, f.Seq, len(f.Payload))
}

// Len returns the encoded size of the frame.
func (f Frame) Len() int {
	return Overhead + len(f.Payload)
}

// MarshalBinary encodes the frame. Payloads above MaxPayload are refused.
func (f Frame) MarshalBinary() ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, ErrPayloadOverflow
	}
	return f.Bytes(), nil
}

// Bytes encodes the frame without checking the payload bound. Payload
// length is truncated to 16 bits.
func (f Frame) Bytes() []byte {
	b := make([]byte, Overhead+len(f.Payload))
	le := binary.LittleEndian
	le.PutUint32(b[0:4], f.ID.Idx)
	le.PutUint32(b[4:8], f.ID.Val)
	le.PutUint32(b[8:12], f.Seq)
	le.PutUint32(b[12:16], f.Ack)
	le.PutUint16(b[16:18], uint16(HeaderSize+len(f.Payload)))
	le.PutUint16(b[18:20], f.Flags)
	le.PutUint32(b[20:24], uint32(f.Key.Owner))
	le.PutUint32(b[24:28], uint32(f.Key.Resource))
	b[28] = byte(f.Op)
	b[29] = byte(f.Result)
	le.PutUint16(b[30:32], uint16(len(f.Payload)))
	copy(b[Overhead:], f.Payload)
	return b
}

// Parse decodes a frame, refusing payloads longer than max. A max of zero
// or less means MaxPayload. The returned payload does not alias b.
func Parse(b []byte, max int) (Frame, error) {
	if max <= 0 {
		max = MaxPayload
	}
	if len(b) < Overhead {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(b))
	}
	le := binary.LittleEndian
	length := int(le.Uint16(b[16:18]))
	if length < HeaderSize {
		return Frame{}, fmt.Errorf("%w: envelope length %d", ErrMalformed, length)
	}
	size := int(int16(le.Uint16(b[30:32])))
	if size < 0 {
		return Frame{}, fmt.Errorf("%w: payload length %d", ErrMalformed, size)
	}
	if size > max {
		return Frame{}, fmt.Errorf("%w: %d > %d", ErrPayloadOverflow, size, max)
	}
	if HeaderSize+size > length || Overhead+size > len(b) {
		return Frame{}, fmt.Errorf("%w: truncated payload", ErrMalformed)
	}
	f := Frame{
		ID:     BusID{Idx: le.Uint32(b[0:4]), Val: le.Uint32(b[4:8])},
		Seq:    le.Uint32(b[8:12]),
		Ack:    le.Uint32(b[12:16]),
		Flags:  le.Uint16(b[18:20]),
		Key:    Key{Owner: int32(le.Uint32(b[20:24])), Resource: int32(le.Uint32(b[24:28]))},
		Op:     Op(b[28]),
		Result: Result(int8(b[29])),
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		copy(f.Payload, b[Overhead:Overhead+size])
	}
	return f, nil
}

// Encode encodes f, refusing payloads longer than max, and echoes it to
// Debug. A max of zero or less means MaxPayload.
func Encode(f Frame, max int) ([]byte, error) {
	if max <= 0 {
		max = MaxPayload
	}
	if len(f.Payload) > max || len(f.Payload) > math.MaxInt16 {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadOverflow, len(f.Payload), max)
	}
	if Debug != nil {
		fmt.Fprintln(Debug, "<<ENC", f)
	}
	return f.Bytes(), nil
}

// Decode parses b with Parse, echoing the result to Debug.
func Decode(b []byte, max int) (Frame, error) {
	f, err := Parse(b, max)
	if err != nil {
		return f, err
	}
	if Debug != nil {
		fmt.Fprintln(Debug, ">>DEC", f)
	}
	return f, nil
}
