package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/progrium/kubix-go/bus"
	"github.com/progrium/kubix-go/cmd/kubix/cli"
	"github.com/progrium/kubix-go/codec"
	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/interop"
	"go.uber.org/zap"
)

var pingOwner int

var pingCmd = &cli.Command{
	Usage: "ping [count]",
	Short: "measure open, request and release round trips",
	Args:  cli.MaxArgs(1),
	Setup: func(fs *flag.FlagSet) {
		fs.IntVar(&pingOwner, "owner", 1, "owner half of the keys used")
	},
	Run: func(ctx context.Context, args []string) {
		cfg, logger := setup()
		defer logger.Sync()

		count := 4
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			fatal(err)
			count = n
		}

		start := time.Now()
		b, err := dialBus(ctx, cfg, logger)
		fatal(err)
		defer b.Close()
		fmt.Printf("connected to %s in %s (%q)\n", cfg.Transport.URL, time.Since(start), b.PeerGreeting())

		c := payloadCodec()
		echo, err := codec.Marshal(c, interop.Call{Method: "echo", Params: "ping"})
		fatal(err)

		var total time.Duration
		for i := 0; i < count; i++ {
			if ctx.Err() != nil {
				break
			}
			key := frame.Key{Owner: int32(pingOwner), Resource: int32(i)}
			rtt, err := pingOnce(ctx, b, key, echo)
			if err != nil {
				logger.Error("ping failed", zap.Stringer("key", key), zap.Error(err))
				continue
			}
			total += rtt
			fmt.Printf("%s: open+request+release %s\n", key, rtt)
		}
		if count > 0 {
			fmt.Printf("avg %s\n", total/time.Duration(count))
		}
	},
}

func pingOnce(ctx context.Context, b *bus.Bus, key frame.Key, payload []byte) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	start := time.Now()
	ch, err := b.Open(ctx, key, nil)
	if err != nil {
		return 0, err
	}
	if _, err := ch.Request(ctx, payload); err != nil {
		ch.Release(nil)
		return 0, err
	}
	if err := ch.Release(nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
