// Package codec provides the value encodings used for channel payloads and
// the length-prefix framing used by stream transports.
package codec

import (
	"bytes"
	"io"
)

type Encoder interface {
	// Encode writes an encoding of v to its Writer.
	Encode(v interface{}) error
}

type Decoder interface {
	// Decode reads the next encoded value from its Reader and stores it in the value pointed to by v.
	Decode(v interface{}) error
}

// Codec returns an Encoder or Decoder given a Writer or Reader.
type Codec interface {
	Encoder(w io.Writer) Encoder
	Decoder(r io.Reader) Decoder
}

// Marshal encodes v into a byte slice using c.
func Marshal(c Codec, v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes b into v using c.
func Unmarshal(c Codec, b []byte, v interface{}) error {
	return c.Decoder(bytes.NewReader(b)).Decode(v)
}
