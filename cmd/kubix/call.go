package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/progrium/clon-go"
	"github.com/progrium/kubix-go/cmd/kubix/cli"
	"github.com/progrium/kubix-go/codec"
	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/interop"
)

var (
	openPayload string
	rawPayload  bool
)

var callCmd = &cli.Command{
	Usage: "call <owner.resource> <method> [params...]",
	Short: "open a channel, send one request and print the answer",
	Long: `Opens the channel, sends one request and prints the answer.

Params are parsed as CLON, e.g. "name=bob tags[]=a". With -raw the
arguments after the key are sent as the payload unencoded.`,
	Args: cli.MinArgs(2),
	Setup: func(fs *flag.FlagSet) {
		fs.StringVar(&openPayload, "open", "", "payload sent with the open request")
		fs.BoolVar(&rawPayload, "raw", false, "send and print payloads unencoded")
	},
	Run: func(ctx context.Context, args []string) {
		log.SetOutput(os.Stderr)
		cfg, logger := setup()
		defer logger.Sync()

		key, err := frame.ParseKey(args[0])
		fatal(err)

		c := payloadCodec()
		payload, err := callPayload(c, args[1], args[2:])
		fatal(err)

		b, err := dialBus(ctx, cfg, logger)
		fatal(err)
		defer b.Close()

		ch, err := b.Open(ctx, key, []byte(openPayload))
		fatal(err)
		defer ch.Release(nil)

		msg, err := ch.Request(ctx, payload)
		if err != nil {
			log.Fatalf("%s: %v", key, err)
		}
		if rawPayload {
			os.Stdout.Write(msg.Payload)
			fmt.Println()
			return
		}

		var ret any
		fatal(codec.Unmarshal(c, msg.Payload, &ret))
		fmt.Println(render(ret))
	},
}

func callPayload(c codec.Codec, method string, params []string) ([]byte, error) {
	if rawPayload {
		var b []byte
		for i, arg := range append([]string{method}, params...) {
			if i > 0 {
				b = append(b, ' ')
			}
			b = append(b, arg...)
		}
		return b, nil
	}
	call := interop.Call{Method: method}
	if len(params) > 0 {
		v, err := clon.Parse(params)
		if err != nil {
			return nil, err
		}
		call.Params = v
	}
	return codec.Marshal(c, call)
}

// render formats v as indented JSON when it can be, which CBOR maps with
// non-string keys cannot.
func render(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
