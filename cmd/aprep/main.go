package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	internal "github.com/ZanzyTHEbar/abstract-prep/aprep"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		log := internal.GetLogger()
		log.Error().Err(err).Msg("aprep failed")
		stop()
		os.Exit(1)
	}
}
