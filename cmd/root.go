// Package cmd implements the saga-gateway command-line interface. Each
// subcommand runs one process of the system.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/saga-gateway/internal/bootstrap"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "saga-gateway",
		Short: "Request orchestration gateway and its collaborator services",
		Long: `saga-gateway runs an authenticated gateway that orchestrates a
read, transform, write sequence across a storage service and a transform
service, plus those two services and a periodic scheduler.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to every command.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $CONFIG_PATH or ./config.yml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "saga-gateway version %s\n", Version)
		},
	})

	rootCmd.AddCommand(
		processCommand(bootstrap.ProcessGateway, "Run the authenticated gateway (POST /process, GET /health)", bootstrap.StartGateway),
		processCommand(bootstrap.ProcessStorage, "Run the storage service (GET /read, POST /write)", bootstrap.StartStorage),
		processCommand(bootstrap.ProcessTransform, "Run the transform service (POST /process)", bootstrap.StartTransform),
		processCommand(bootstrap.ProcessScheduler, "Periodically call the gateway", bootstrap.StartScheduler),
	)
}

func processCommand(name, short string, start func(context.Context, bootstrap.Options) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return start(cmd.Context(), bootstrap.Options{ConfigPath: cfgFile, Debug: debug})
		},
	}
}
