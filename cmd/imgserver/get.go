package main

import (
	"fmt"
	"os"

	"github.com/lewtec/imgserver/internal/transport/socket"
	"github.com/spf13/cobra"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch an image by identifier",
	Long: `Fetch an image from the running server over the native socket and
write it to stdout, or to a file with -o.

Example:
  imgserver get 2f6c7c1e-... -o cat.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := socketPath(cmd)
		if err != nil {
			return err
		}
		data, err := socket.Get(cmd.Context(), path, args[0])
		if err != nil {
			return fmt.Errorf("failed to get %s: %w", args[0], err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("while writing %s: %w", output, err)
		}
		logger.Info().Str("image_id", args[0]).Str("file", output).Int("bytes", len(data)).Msg("get: wrote image")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	addClientFlags(getCmd)
	getCmd.Flags().StringP("output", "o", "", "Write the image to this file instead of stdout")
}
