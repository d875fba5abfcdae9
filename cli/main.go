package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ankit-chaubey/mat-surgery/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errDirty):
		os.Exit(1)
	default:
		core.NewPrinter(false, false).PrintError(err.Error())
		os.Exit(2)
	}
}
