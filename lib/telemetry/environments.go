package telemetry

import (
	"context"
	"os"
	"stlib/lib/configutil"
)

// SetupFromEnv searches up the filesystem from the cwd for a file called
// telemetry.json5 and uses it to set up otel. When no such file exists
// otel is left as a no-op and a zero Otel is returned.
func SetupFromEnv(ctx context.Context, serviceName string) (Otel, error) {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if os.IsNotExist(err) {
		return Otel{}, nil
	}
	if err != nil {
		return Otel{}, err
	}
	return Setup(ctx, serviceName, config)
}
