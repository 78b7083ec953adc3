package handler

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/progrium/kubix-go/codec"
	"github.com/progrium/kubix-go/frame"
)

// Typed adapts fn into a Handler. The payload is decoded with c into a
// generic value and then mapped onto In, so loosely typed peers (numbers
// sent as strings and the like) are accepted. The returned value is
// encoded with c. An empty payload gives the zero In.
func Typed[In, Out any](c codec.Codec, fn func(ctx context.Context, key frame.Key, in In) (Out, error)) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) (resp Response, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()

		var in In
		if len(req.Payload) > 0 {
			var raw interface{}
			if err := req.Decode(c, &raw); err != nil {
				return Response{}, fmt.Errorf("handler: decode: %w", err)
			}
			if err := decodeInto(raw, &in); err != nil {
				return Response{}, fmt.Errorf("handler: args: %w", err)
			}
		}

		out, err := fn(ctx, req.Key, in)
		if err != nil {
			return Response{}, err
		}
		b, err := codec.Marshal(c, out)
		if err != nil {
			return Response{}, fmt.Errorf("handler: encode: %w", err)
		}
		return Reply(b), nil
	})
}

func decodeInto(raw interface{}, v interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           v,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
