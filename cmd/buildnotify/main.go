// Command buildnotify routes finished CI builds to chat and messaging
// channels.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Strob0t/buildnotify/internal/adapter/httpclient"
	"github.com/Strob0t/buildnotify/internal/config"
	"github.com/Strob0t/buildnotify/internal/logger"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "load .env:", err)
			os.Exit(1)
		}
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "buildnotify",
		Short: "Route finished CI builds to notification channels",
		Long: `buildnotify classifies a finished build against the one before it
(broken, still broken, fixed, successful), picks a target per channel from
its routing rules and delivers the message through the channel's sender.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultConfigFile, "path to the YAML config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newSendCmd(opts),
		newSendersCmd(opts),
	)
	return cmd
}

// setup loads configuration, installs the default logger and configures
// the shared sender HTTP client. The returned function flushes the logger.
func setup(opts *rootOptions) (*config.Config, func(), error) {
	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	log, closer := logger.New(cfg.Logging)
	slog.SetDefault(log)
	httpclient.Configure(cfg.HTTPClient)

	return cfg, closer.Close, nil
}
