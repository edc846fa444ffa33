package main

import (
	"context"
	"log/slog"
	"os"
	"stlib/cmd/stlib-cli/commands"
	"stlib/lib/osutil"
	"stlib/lib/telemetry"
	"time"
)

func main() {
	telemetry.InitSlog(os.Getenv("STLIB_DEBUG") != "")

	ctx, stop := osutil.SignalContext(context.Background())
	otel, err := telemetry.SetupFromEnv(ctx, "stlib-cli")
	if err != nil {
		slog.Warn("failed to setup telemetry, continuing without it", "err", err)
	}

	err = commands.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if shutdownErr := otel.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}
	cancel()
	stop()

	if err != nil {
		osutil.Fatal("stlib-cli", err)
	}
}
