package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"
)

// run drives the payout service through its fx lifecycle and blocks
// until a signal arrives or a component shuts the app down.
func run(ctx context.Context, app *fx.App) {
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "start payout service: %v\n", err)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	// Stop gets a fresh context: the signal context is already done.
	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "stop payout service: %v\n", err)
		os.Exit(1)
	}
}
