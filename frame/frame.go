// Package frame implements encoding and decoding of kubix bus frames.
//
// A frame on the wire is a connector envelope followed by the bus header
// and the payload, all little-endian and packed:
//
//	idx u32 | val u32 | seq u32 | ack u32 | len u16 | flags u16
//	owner s32 | resource s32 | op u8 | result s8 | payload_len u16 | payload
package frame

import (
	"errors"
	"io"
)

const (
	// EnvelopeSize is the size of the connector envelope.
	EnvelopeSize = 20
	// HeaderSize is the size of the bus header following the envelope.
	HeaderSize = 12
	// Overhead is the number of bytes a frame adds to its payload.
	Overhead = EnvelopeSize + HeaderSize
	// MaxPayload is the default bound on payload length.
	MaxPayload = 1024
)

var (
	// Debug can be set to get frames as they're encoded and decoded
	Debug io.Writer
)

var (
	ErrMalformed       = errors.New("kubix: malformed frame")
	ErrPayloadOverflow = errors.New("kubix: payload exceeds maximum size")
)

// BusID identifies the connector a frame travels on.
type BusID struct {
	Idx uint32
	Val uint32
}

// DefaultBusID is the first user connector index.
var DefaultBusID = BusID{Idx: 11, Val: 1}
