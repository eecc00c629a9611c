package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/trademate-dev/trademate/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], cli.CLIOptions{})
	stop()
	os.Exit(code)
}
