package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lewtec/imgserver/internal/app"
	"github.com/lewtec/imgserver/internal/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new image store",
	Long: `Initialize a new image store by creating:
- A sample configuration file (config.yaml)
- The state database with its schema (imgserver.db)

Example:
  imgserver init --folder ./my-store
  imgserver init --folder ./my-store --config custom-config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, _ := cmd.Flags().GetString("folder")
		configFile, _ := cmd.Flags().GetString("config")
		if configFile == "" {
			configFile = filepath.Join(folder, "config.yaml")
		}
		out := cmd.OutOrStdout()

		if err := os.MkdirAll(folder, 0755); err != nil {
			return fmt.Errorf("failed to create folder: %w", err)
		}
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			fmt.Fprintf(out, "Creating sample configuration file: %s\n", configFile)
			if err := createSampleConfig(configFile, folder); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
		} else {
			fmt.Fprintf(out, "Configuration file already exists: %s\n", configFile)
		}

		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		a, err := app.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to prepare persistence: %w", err)
		}
		defer a.Close()
		fmt.Fprintf(out, "✓ Persistence ready: %s (%s)\n\n", cfg.Persistence.Path, cfg.Persistence.Backend)

		fmt.Fprintln(out, "Next steps:")
		fmt.Fprintln(out, "  1. Review and customize your config file:", configFile)
		fmt.Fprintln(out, "  2. Start the server:")
		fmt.Fprintf(out, "     imgserver serve %s\n", configFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringP("folder", "f", ".", "Folder keeping the state and socket")
	initCmd.Flags().StringP("config", "c", "", "Configuration file to create (default <folder>/config.yaml)")
}

func createSampleConfig(filename, folder string) error {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return err
	}
	defaults := config.Default()
	sampleConfig := fmt.Sprintf(`# imgserver configuration file
# Every value can be overridden with IMGSERVER_* environment variables,
# e.g. IMGSERVER_HTTP_ADDR=:9090

process:
  # node@process:package:publisher of this process
  address: %q
  # messages from this process are treated as HTTP requests
  http_server: %q

http:
  enabled: true
  addr: %q
  bind:
    - /
  max_body: %d
  response_timeout: %s

# local native clients (imgserver upload / get)
socket:
  enabled: true
  path: %q
  client_address: %q

persistence:
  # sqlite, file or none
  backend: sqlite
  path: %q
  # json or cbor
  format: json
  compress: false

log:
  level: info
  format: console
`,
		defaults.Process.Address,
		defaults.Process.HTTPServer,
		defaults.HTTP.Addr,
		defaults.HTTP.MaxBody,
		defaults.HTTP.ResponseTimeout,
		filepath.Join(abs, "imgserver.sock"),
		defaults.Socket.ClientAddress,
		filepath.Join(abs, "imgserver.db"),
	)

	return os.WriteFile(filename, []byte(sampleConfig), 0644)
}
