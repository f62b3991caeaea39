// Package main is the arcam command: augmented reality demos on frames of a chessboard, and
// the camera calibration they need.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"

	"github.com/arcamlabs/arcam/logging"
)

var logger = logging.NewLogger("arcam")

func main() {
	if err := realMain(os.Args, os.Stdout, os.Stderr); err != nil {
		logger.AsZap().Fatal(err)
	}
}

func realMain(args []string, out, errOut io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newApp(logger, clock.New(), out, errOut).RunContext(ctx, args)
}
