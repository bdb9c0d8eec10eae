package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"devicelink/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.New().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
