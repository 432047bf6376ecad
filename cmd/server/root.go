package main

import (
	"log/slog"

	"identity/backend/internal/config"
	"identity/backend/internal/logging"

	"github.com/spf13/cobra"
)

const serviceName = "identity"

// NewRootCmd creates the root command. Invoked without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Identity service: registration, sign-in and token validation",
		SilenceUsage: true,
		RunE:         runServe,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file path (YAML)")
	flags.String("http.port", "", "HTTP listen port")
	flags.String("database.driver", "", "user store driver: postgres or sqlite")
	flags.String("database.url", "", "user store connection string")
	flags.String("log.format", "", "log format: json or text")
	flags.String("log.level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

// loadConfig resolves configuration for cmd and installs the default logger.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.SetDefault(serviceName, cfg.Log.Format, cfg.Log.Level)
	return cfg, logger, nil
}
