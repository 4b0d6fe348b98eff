package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nhle/maillist/cmd/maillist/cmd"
)

const (
	exitCodeError       = 1
	exitCodeInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return exitCodeInterrupted
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCodeError
	}
	return 0
}
