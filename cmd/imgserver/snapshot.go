package main

import (
	"fmt"

	"github.com/lewtec/imgserver/internal/app"
	"github.com/lewtec/imgserver/internal/store"
	"github.com/spf13/cobra"
)

// snapshotCmd groups commands working on persisted state
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Work with the persisted image state",
}

// snapshotInspectCmd represents the snapshot inspect command
var snapshotInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List the images in the persisted state",
	Long: `Load the persisted state the same way the server does at startup and
print one tab separated line per image: identifier, size and blake3 digest.

The server does not need to be running. Corrupt state is reported as an
error instead of falling back to an empty store.

Example:
  imgserver snapshot inspect -c ./my-store/config.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadClientConfig(cmd)
		if err != nil {
			return err
		}
		a, err := app.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to open persistence: %w", err)
		}
		defer a.Close()

		payload, ok := a.Persistence().Load(cmd.Context())
		if !ok {
			return fmt.Errorf("no usable state for %s", cfg.Process.Address)
		}
		s, err := store.Restore(payload)
		if err != nil {
			return fmt.Errorf("while decoding state: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "id\tsize\tblake3")
		for _, id := range s.IDs() {
			data, err := s.Get(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%d\t%s\n", id, len(data), store.Digest(data))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotInspectCmd)
	snapshotInspectCmd.Flags().StringP("config", "c", "", "Config file naming the persistence backend")
}
