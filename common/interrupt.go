package common

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// WithInterrupt returns a context canceled on the first interrupt or term signal.
// A second signal exits the process.
func WithInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			slog.Warn("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			return
		}
		sig := <-sigs
		slog.Error("Received second signal, exiting", "signal", sig)
		os.Exit(1)
	}()
	return ctx, cancel
}
