package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fitpoint/fitpoint/cli/internal/command"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := command.NewRoot(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
