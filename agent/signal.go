package agent

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// notifyShutdown derives a context that is canceled on SIGINT or
// SIGTERM. Split out so tests can drive Run through plain context
// cancellation.
func notifyShutdown(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
