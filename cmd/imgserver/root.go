package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/lewtec/imgserver/internal/config"
	"github.com/lewtec/imgserver/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// logger is set up by the root command before any subcommand runs
var logger = zerolog.Nop()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgserver",
	Short: "Minimal image store process",
	Long: strings.TrimSpace(`
Store images and fetch them back by identifier. The process answers HTTP
requests on its bound paths and native requests on a local socket, and
keeps a snapshot of every image so it survives restarts.
    `),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")
		l, err := logging.Setup(level, format, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", logging.FormatConsole, "Log format (console, json)")
}

// loadClientConfig reads --config when given, else defaults and environment
func loadClientConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// socketPath resolves the native socket from --socket or the config
func socketPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("socket"); path != "" {
		return path, nil
	}
	cfg, err := loadClientConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.Socket.Path, nil
}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Config file of the running server")
	cmd.Flags().StringP("socket", "s", "", "Socket of the running server (overrides the config)")
}
