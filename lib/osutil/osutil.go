package osutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a child of `parent` that is cancelled on the first
// SIGINT or SIGTERM. `stop` releases the signal handler, after it a second
// Ctrl+C kills the process as usual.
func SignalContext(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			slog.Debug("received signal, shutting down", "signal", sig.String())
		case <-ctx.Done():
		}
		signal.Stop(sigs)
		cancel()
	}()

	return ctx, cancel
}

// Fatal logs `err` and exits with status 1.
func Fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}
