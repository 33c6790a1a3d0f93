package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lewtec/imgserver/internal/app"
	"github.com/lewtec/imgserver/internal/config"
	"github.com/lewtec/imgserver/internal/logging"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [folder|config.yaml]",
	Short: "Run the image store process",
	Long: `Run the image store process until interrupted.

If you provide a folder path, it will:
  - Create a default config.yaml in that folder
  - Keep the state database and socket in that folder

If you provide a config file path, it will use that config as is.
Without an argument the built-in defaults apply. IMGSERVER_* environment
variables override any of them.

Examples:
  # Initialize and start from a folder
  imgserver serve ./my-store

  # Start with explicit config
  imgserver serve config.yaml --addr :9090
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var configFile string

		if len(args) == 1 {
			arg := args[0]
			if stat, err := os.Stat(arg); err == nil && stat.IsDir() {
				logger.Info().Str("folder", arg).Msg("serve: detected folder argument")
				configFile = filepath.Join(arg, "config.yaml")
				if _, err := os.Stat(configFile); os.IsNotExist(err) {
					logger.Info().Str("config", configFile).Msg("serve: creating default config")
					if err := createSampleConfig(configFile, arg); err != nil {
						return fmt.Errorf("failed to create config: %w", err)
					}
				} else {
					logger.Info().Str("config", configFile).Msg("serve: config file already exists")
				}
			} else {
				configFile = arg
			}
		}

		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		if path, _ := cmd.Flags().GetString("socket"); path != "" {
			cfg.Socket.Path = path
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		// the config decides the log setup unless flags were given
		if !cmd.Flags().Changed("log-level") && !cmd.Flags().Changed("log-format") {
			l, err := logging.Setup(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			logger = l
		}

		a, err := app.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to open persistence: %w", err)
		}
		defer a.Close()

		logger.Info().
			Str("config", configFile).
			Str("address", cfg.Process.Address).
			Str("persistence", cfg.Persistence.Backend).
			Bool("http", cfg.HTTP.Enabled).
			Str("http_addr", cfg.HTTP.Addr).
			Bool("socket", cfg.Socket.Enabled).
			Str("socket_path", cfg.Socket.Path).
			Msg("serve: starting")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "Address to bind the HTTP front door (overrides the config)")
	serveCmd.Flags().StringP("socket", "s", "", "Native socket path (overrides the config)")
}
