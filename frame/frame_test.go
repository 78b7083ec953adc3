package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		in Frame
	}{
		{
			in: Frame{
				ID:  DefaultBusID,
				Seq: 1,
				Key: ControlKey,
				Op:  OpOpen,
			},
		},
		{
			in: Frame{
				ID:      DefaultBusID,
				Seq:     7,
				Key:     Key{Owner: 7, Resource: 42},
				Op:      OpRequest,
				Payload: []byte("Hello"),
			},
		},
		{
			in: Frame{
				ID:      BusID{Idx: 3, Val: 9},
				Seq:     math.MaxUint32,
				Ack:     12,
				Flags:   0x8001,
				Key:     Key{Owner: -1, Resource: math.MinInt32},
				Op:      OpMessage,
				Result:  ResultImpossibleOp,
				Payload: bytes.Repeat([]byte{0xAB}, MaxPayload),
			},
		},
	}
	for _, test := range tests {
		b, err := Encode(test.in, 0)
		require.NoError(t, err)
		assert.Len(t, b, test.in.Len())

		f, err := Decode(b, 0)
		require.NoError(t, err)
		assert.Equal(t, test.in.ID, f.ID)
		assert.Equal(t, test.in.Seq, f.Seq)
		assert.Equal(t, test.in.Ack, f.Ack)
		assert.Equal(t, test.in.Flags, f.Flags)
		assert.Equal(t, test.in.Key, f.Key)
		assert.Equal(t, test.in.Op, f.Op)
		assert.Equal(t, test.in.Result, f.Result)
		assert.Equal(t, len(test.in.Payload), len(f.Payload))
		assert.True(t, bytes.Equal(test.in.Payload, f.Payload))
		assert.NotEmpty(t, f.String())
	}
}

func TestWireLayout(t *testing.T) {
	f := Frame{
		ID:      DefaultBusID,
		Seq:     2,
		Key:     Key{Owner: 100, Resource: -10},
		Op:      OpOpen,
		Result:  ResultImpossibleState,
		Payload: []byte("hi"),
	}
	b := f.Bytes()
	le := binary.LittleEndian
	assert.Equal(t, uint32(11), le.Uint32(b[0:4]))
	assert.Equal(t, uint32(1), le.Uint32(b[4:8]))
	assert.Equal(t, uint32(2), le.Uint32(b[8:12]))
	assert.Equal(t, uint16(HeaderSize+2), le.Uint16(b[16:18]))
	assert.Equal(t, int32(100), int32(le.Uint32(b[20:24])))
	assert.Equal(t, int32(-10), int32(le.Uint32(b[24:28])))
	assert.Equal(t, byte(0), b[28])
	assert.Equal(t, byte(0xFF), b[29])
	assert.Equal(t, uint16(2), le.Uint16(b[30:32]))
	assert.Equal(t, "hi", string(b[32:]))
}

func TestParseDoesNotAlias(t *testing.T) {
	b := Frame{Key: Key{1, 2}, Op: OpMessage, Payload: []byte("abc")}.Bytes()
	f, err := Parse(b, 0)
	require.NoError(t, err)
	b[Overhead] = 'x'
	assert.Equal(t, "abc", string(f.Payload))
}

func TestParseMalformed(t *testing.T) {
	good := Frame{Key: Key{1, 2}, Op: OpMessage, Payload: []byte("abcd")}.Bytes()

	_, err := Parse(nil, 0)
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = Parse(good[:Overhead-1], 0)
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = Parse(good[:len(good)-1], 0)
	assert.True(t, errors.Is(err, ErrMalformed))

	short := append([]byte(nil), good...)
	binary.LittleEndian.PutUint16(short[16:18], HeaderSize-1)
	_, err = Parse(short, 0)
	assert.True(t, errors.Is(err, ErrMalformed))

	negative := append([]byte(nil), good...)
	binary.LittleEndian.PutUint16(negative[30:32], 0xFFFF)
	_, err = Parse(negative, 0)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestPayloadOverflow(t *testing.T) {
	f := Frame{Key: Key{0, -9}, Op: OpMessage, Payload: make([]byte, MaxPayload+1)}

	_, err := f.MarshalBinary()
	assert.True(t, errors.Is(err, ErrPayloadOverflow))

	_, err = Encode(f, 0)
	assert.True(t, errors.Is(err, ErrPayloadOverflow))

	_, err = Parse(f.Bytes(), 0)
	assert.True(t, errors.Is(err, ErrPayloadOverflow))

	_, err = Parse(f.Bytes(), MaxPayload+1)
	assert.NoError(t, err)
}

func TestKeyPacking(t *testing.T) {
	keys := []Key{
		{0, 0}, {1, 0}, {0, 1}, {1, 1},
		{7, 42}, {42, 7}, ControlKey, {0, -9},
		{-1, -1}, {math.MaxInt32, math.MinInt32},
	}
	seen := make(map[uint64]Key)
	for _, k := range keys {
		p := k.Packed()
		if prev, ok := seen[p]; ok {
			t.Fatalf("%s and %s pack to the same value", prev, k)
		}
		seen[p] = k
		assert.Equal(t, k, KeyFrom(p))
	}
	assert.Equal(t, uint64(42)<<32|7, Key{Owner: 7, Resource: 42}.Packed())
	assert.True(t, ControlKey.IsControl())
	assert.Equal(t, "7.42", Key{7, 42}.String())
}

func TestParseKey(t *testing.T) {
	for _, k := range []Key{{7, 42}, ControlKey, {math.MinInt32, math.MaxInt32}} {
		got, err := ParseKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	for _, s := range []string{"", "7", "a.b", "1.99999999999"} {
		_, err := ParseKey(s)
		assert.Error(t, err, s)
	}
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, ResultOK.Err())
	assert.NoError(t, Result(5).Err())
	assert.ErrorIs(t, ResultImpossibleState.Err(), ErrImpossibleState)
	assert.ErrorIs(t, ResultImpossibleOp.Err(), ErrImpossibleOp)
	assert.ErrorIs(t, ResultRejected.Err(), ErrRejected)
	assert.ErrorIs(t, ResultHandlerFailure.Err(), ErrHandlerFailure)
	assert.Error(t, Result(-100).Err())
	assert.Equal(t, "request", OpRequest.String())
	assert.Equal(t, "op(99)", Op(99).String())
	assert.False(t, Op(99).Valid())
}
