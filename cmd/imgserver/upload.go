package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/lewtec/imgserver/internal/store"
	"github.com/lewtec/imgserver/internal/transport/socket"
	"github.com/spf13/cobra"
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an image and print its identifier",
	Long: `Upload a file to the running server over the native socket and print
the identifier it was stored under.

The server stores any bytes; the detected image format is only logged.

Example:
  imgserver upload cat.png -c ./my-store/config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := socketPath(cmd)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("while reading %s: %w", args[0], err)
		}
		describeImage(args[0], data)

		id, err := socket.Upload(cmd.Context(), path, data)
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", args[0], err)
		}
		logger.Info().Str("image_id", id).Str("blake3", store.Digest(data)).Msg("upload: stored image")
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func describeImage(filename string, data []byte) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		logger.Warn().Str("file", filename).Msg("upload: not a recognised image, uploading anyway")
		return
	}
	logger.Info().
		Str("file", filename).
		Str("format", format).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Int("bytes", len(data)).
		Msg("upload: detected image")
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	addClientFlags(uploadCmd)
}
