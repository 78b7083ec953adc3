package interop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/progrium/kubix-go/bus"
	"github.com/progrium/kubix-go/codec"
	"github.com/progrium/kubix-go/frame"
	"go.uber.org/zap"
)

// Check runs the conformance sequence against the Service behind b's
// peer, using channels owned by owner. b must be a started initiator.
func Check(ctx context.Context, b *bus.Bus, c codec.Codec, owner int32, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if err := b.AwaitPeer(ctx); err != nil {
		return fmt.Errorf("peer: %w", err)
	}
	key := frame.Key{Owner: owner, Resource: 1}

	step := func(name string, fn func() error) error {
		if err := fn(); err != nil {
			log.Error("check failed", zap.String("step", name), zap.Error(err))
			return fmt.Errorf("%s: %w", name, err)
		}
		log.Info("check passed", zap.String("step", name))
		return nil
	}
	call := func(ch *bus.Channel, method string, params, ret interface{}) error {
		p, err := codec.Marshal(c, Call{Method: method, Params: params})
		if err != nil {
			return err
		}
		msg, err := ch.Request(ctx, p)
		if err != nil {
			return err
		}
		if ret == nil {
			return nil
		}
		return codec.Unmarshal(c, msg.Payload, ret)
	}

	var ch *bus.Channel
	checks := []struct {
		name string
		fn   func() error
	}{
		{"open", func() error {
			var err error
			ch, err = b.Open(ctx, key, []byte("check"))
			return err
		}},
		{"echo", func() error {
			var s string
			if err := call(ch, "echo", "hello", &s); err != nil {
				return err
			}
			return expect("hello", s)
		}},
		{"sum", func() error {
			var n int
			if err := call(ch, "sum", []int{1, 2, 3}, &n); err != nil {
				return err
			}
			return expect(6, n)
		}},
		{"key", func() error {
			var s string
			if err := call(ch, "key", nil, &s); err != nil {
				return err
			}
			return expect(key.String(), s)
		}},
		{"large", func() error {
			blob := bytes.Repeat([]byte{'x'}, frame.MaxPayload/2)
			var s string
			if err := call(ch, "echo", string(blob), &s); err != nil {
				return err
			}
			return expect(string(blob), s)
		}},
		{"overflow", func() error {
			_, err := ch.Request(ctx, make([]byte, frame.MaxPayload+1))
			if !errors.Is(err, bus.ErrPayloadOverflow) {
				return fmt.Errorf("want payload overflow, got %v", err)
			}
			return nil
		}},
		{"handler failure", func() error {
			err := call(ch, "fail", nil, nil)
			if !errors.Is(err, frame.ErrHandlerFailure) {
				return fmt.Errorf("want handler failure, got %v", err)
			}
			return nil
		}},
		{"report", func() error {
			var before, after int64
			if err := call(ch, "reports", nil, &before); err != nil {
				return err
			}
			if err := ch.Report([]byte("note")); err != nil {
				return err
			}
			// reports are not answered, so poll until the worker has seen it
			for i := 0; i < 50; i++ {
				time.Sleep(10 * time.Millisecond)
				if err := call(ch, "reports", nil, &after); err != nil {
					return err
				}
				if after > before {
					break
				}
			}
			return expect(before+1, after)
		}},
		{"release", func() error {
			return ch.Release(nil)
		}},
		{"reopen", func() error {
			var err error
			ch, err = b.Open(ctx, key, nil)
			if err != nil {
				return err
			}
			var s string
			if err := call(ch, "echo", "again", &s); err != nil {
				return err
			}
			if err := expect("again", s); err != nil {
				return err
			}
			return ch.Release(nil)
		}},
	}
	for _, chk := range checks {
		if err := step(chk.name, chk.fn); err != nil {
			return err
		}
	}
	return nil
}

func expect(want, got interface{}) error {
	if !reflect.DeepEqual(want, got) {
		return fmt.Errorf("want %v, got %v", want, got)
	}
	return nil
}
