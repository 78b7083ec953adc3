package codec

import (
	"fmt"
	"io"
)

// RawCodec passes byte slices through untouched. Encode accepts []byte or
// string; Decode requires a *[]byte and consumes the whole reader.
type RawCodec struct{}

func (c RawCodec) Encoder(w io.Writer) Encoder {
	return rawEncoder{w}
}

func (c RawCodec) Decoder(r io.Reader) Decoder {
	return rawDecoder{r}
}

type rawEncoder struct {
	w io.Writer
}

func (e rawEncoder) Encode(v interface{}) error {
	var b []byte
	switch vv := v.(type) {
	case []byte:
		b = vv
	case string:
		b = []byte(vv)
	default:
		return fmt.Errorf("raw codec: cannot encode %T", v)
	}
	_, err := e.w.Write(b)
	return err
}

type rawDecoder struct {
	r io.Reader
}

func (d rawDecoder) Decode(v interface{}) error {
	p, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("raw codec: cannot decode into %T", v)
	}
	b, err := io.ReadAll(d.r)
	if err != nil {
		return err
	}
	*p = b
	return nil
}
