package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"onboarding-pr-miner/internal/output"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(output.New())
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		a.ui.Error("%v", err)
		stop()
		os.Exit(1)
	}
}
