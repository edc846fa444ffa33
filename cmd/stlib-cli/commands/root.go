package commands

import (
	"context"
	"fmt"
	"stlib/lib/configutil"
	"stlib/lib/telemetry"
	"stlib/lib/webclient"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

type Config struct {
	UserAgent string `json:"user_agent"`
	// RetryDelay is a duration string, ex. "5s".
	RetryDelay       string  `json:"retry_delay"`
	MaxServerRetries int     `json:"max_server_retries"`
	RateLimit        float64 `json:"rate_limit"`
	CloudflareBypass bool    `json:"cloudflare_bypass"`

	ApiUrl string `json:"api_url"`
	ApiKey string `json:"api_key"`

	// Cookies are added to every session for CookieUrl, ex. a steamLoginSecure
	// copied from a browser.
	Cookies   map[string]string `json:"cookies"`
	CookieUrl string            `json:"cookie_url"`
}

var defaultConfig = Config{
	RetryDelay: webclient.DefaultRetryDelay.String(),
	ApiUrl:     "https://api.steampowered.com",
	CookieUrl:  "https://steamcommunity.com",
}

var (
	configPath *string
	sessionIdx *int
	dumpDir    *string
	noRecover  *bool

	config   Config
	registry *webclient.Registry
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The configuration file, <name>.local.json5 overrides it.")
	sessionIdx = rootCmd.PersistentFlags().Int("session", 0, "The session index to make requests with.")
	dumpDir = rootCmd.PersistentFlags().String("dump", "", "Write every http exchange to this directory.")
	noRecover = rootCmd.PersistentFlags().Bool("no-recover", false, "Fail on the first connection or server error instead of retrying.")
}

var rootCmd = &cobra.Command{
	Use:           "stlib-cli",
	Short:         "stlib-cli makes session bound requests to Steam and scrapes the data embedded in its pages.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = configutil.ReadConfigOr(*configPath, defaultConfig)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}

		defaults, err := transportOptions(config)
		if err != nil {
			return err
		}
		registry = webclient.NewRegistry(webclient.RegistryOptions{
			TransportDefaults: defaults,
			Telemetry:         telemetry.SlogAPI{},
		})
		registry.CloseOnDone(cmd.Context())
		return nil
	},
}

func transportOptions(cfg Config) (webclient.TransportOptions, error) {
	opts := webclient.TransportOptions{
		MaxServerRetries: cfg.MaxServerRetries,
		CloudflareBypass: cfg.CloudflareBypass,
	}
	if cfg.UserAgent != "" {
		opts.Header = map[string]string{"User-Agent": cfg.UserAgent}
	}
	if cfg.RetryDelay != "" {
		delay, err := time.ParseDuration(cfg.RetryDelay)
		if err != nil {
			return opts, fmt.Errorf("invalid retry_delay: %w", err)
		}
		opts.RetryDelay = delay
	}
	if cfg.RateLimit > 0 {
		opts.RateLimit = rate.Limit(cfg.RateLimit)
	}
	if *dumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(*dumpDir)
		if err != nil {
			return opts, err
		}
		opts.MessageOutput = output
	}
	return opts, nil
}

// ExecuteContext runs the command line, the transports of the run are
// closed before it returns whatever the outcome of the command.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if registry != nil {
		registry.Close()
	}
	return err
}
