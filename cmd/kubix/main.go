package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/progrium/kubix-go/cmd/kubix/cli"
	"github.com/progrium/kubix-go/codec"
	"github.com/progrium/kubix-go/config"
	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/internal/logging"
	"go.uber.org/zap"
)

var (
	configPath   string
	transportURL string
	codecName    string
	debugFrames  bool
	verbose      bool
)

func main() {
	root := &cli.Command{
		Usage: "kubix",
		Long:  `kubix is a utility for running and talking to kubix message buses`,
		Setup: func(fs *flag.FlagSet) {
			fs.StringVar(&configPath, "config", os.Getenv("KUBIX_CONFIG"), "YAML config file")
			fs.StringVar(&transportURL, "url", "", "transport URL, overrides the config")
			fs.StringVar(&codecName, "codec", "json", "payload codec: json or cbor")
			fs.BoolVar(&debugFrames, "debug", false, "print every frame to stderr")
			fs.BoolVar(&verbose, "v", false, "log at debug level")
		},
	}

	root.AddCommand(serveCmd)
	root.AddCommand(callCmd)
	root.AddCommand(pingCmd)
	root.AddCommand(checkCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, root, os.Args[1:]); err != nil {
		fatal(err)
	}
}

// setup loads the configuration and builds the logger shared by every
// command.
func setup() (*config.Config, *zap.Logger) {
	cfg, err := config.Load(configPath)
	fatal(err)
	if transportURL != "" {
		cfg.Transport.URL = transportURL
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if debugFrames {
		frame.Debug = os.Stderr
	}
	logger, err := logging.New(cfg.LoggingConfig())
	fatal(err)
	return cfg, logger
}

func payloadCodec() codec.Codec {
	switch codecName {
	case "json":
		return codec.JSONCodec{}
	case "cbor":
		return codec.CBORCodec{}
	}
	log.Fatalf("unknown codec %q", codecName)
	return nil
}

func fatal(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
