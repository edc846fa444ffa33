package commands

import (
	"errors"
	"log/slog"
	"stlib/lib/telemetry"
	"stlib/lib/webclient"
	"time"

	"github.com/spf13/cobra"
)

var (
	watchOpts     func() (webclient.RequestOptions, error)
	watchInterval *time.Duration
)

func init() {
	watchOpts = addRequestFlags(watchCmd)
	watchInterval = watchCmd.Flags().Duration("interval", time.Minute, "The pause between two requests.")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <url> [--interval 1m]",
	Short: "Requests a url periodically until interrupted, reporting the session state.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opts, err := watchOpts()
		if err != nil {
			return err
		}
		client, err := newSession(webclient.BaseKind)
		if err != nil {
			return err
		}

		telemetry.InstrumentPerfStats(ctx, *watchInterval)

		ticker := time.NewTicker(*watchInterval)
		defer ticker.Stop()
		for {
			res, err := client.Request(ctx, args[0], opts)
			switch {
			case ctx.Err() != nil:
				return nil
			case err != nil:
				// a lost session cannot recover by itself, stop watching
				if errors.Is(err, webclient.ErrNotLoggedIn) {
					return err
				}
				slog.Warn("request failed", "url", args[0], "status", webclient.StatusCode(err), "err", err)
			default:
				slog.Info("request done", "url", res.Url(), "status", res.Status(), "bytes", len(res.Body()))
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return nil
			}
		}
	},
}
