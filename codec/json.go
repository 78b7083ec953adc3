package codec

import (
	"encoding/json"
	"io"
)

// JSONCodec encodes one JSON value per Encode. A non-empty Indent pretty
// prints, for diagnostics output.
type JSONCodec struct {
	Indent string
}

func (c JSONCodec) Encoder(w io.Writer) Encoder {
	enc := json.NewEncoder(w)
	if c.Indent != "" {
		enc.SetIndent("", c.Indent)
	}
	return enc
}

func (c JSONCodec) Decoder(r io.Reader) Decoder {
	return json.NewDecoder(r)
}
