package bus_test

import (
	"bytes"
	"context"
	"fmt"

	"github.com/progrium/kubix-go/bus"
	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/handler"
	"github.com/progrium/kubix-go/transport"
)

func Example() {
	ctx := context.Background()
	a, z := transport.Pipe()

	shout := handler.NewMux()
	shout.Handle(frame.OpOpen, handler.Echo)
	shout.HandleFunc(frame.OpRequest, func(ctx context.Context, req *handler.Request) (handler.Response, error) {
		return handler.Reply(bytes.ToUpper(req.Payload)), nil
	})

	responder := bus.New(z, bus.Responder, bus.WithHandler(shout))
	responder.Start(ctx)
	defer responder.Close()

	initiator := bus.New(a, bus.Initiator)
	initiator.Start(ctx)
	defer initiator.Close()
	if err := initiator.AwaitPeer(ctx); err != nil {
		panic(err)
	}

	ch, err := initiator.Open(ctx, frame.Key{Owner: 7, Resource: 42}, nil)
	if err != nil {
		panic(err)
	}
	defer ch.Release(nil)

	msg, err := ch.Request(ctx, []byte("hello"))
	if err != nil {
		panic(err)
	}
	fmt.Println(string(msg.Payload))
	// Output: HELLO
}
