package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/progrium/kubix-go/cmd/kubix/cli"
	"github.com/progrium/kubix-go/interop"
)

var checkOwner int

var checkCmd = &cli.Command{
	Usage: "check",
	Short: "run the conformance check against a serving bus",
	Setup: func(fs *flag.FlagSet) {
		fs.IntVar(&checkOwner, "owner", 100, "owner half of the keys used")
	},
	Run: func(ctx context.Context, args []string) {
		cfg, logger := setup()
		defer logger.Sync()

		b, err := dialBus(ctx, cfg, logger)
		fatal(err)
		defer b.Close()

		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		fatal(interop.Check(ctx, b, payloadCodec(), int32(checkOwner), logger))
		fmt.Println("ok")
	},
}
