package main

import (
	"fmt"

	"github.com/lewtec/imgserver/internal/repository"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate <database>",
	Short: "Apply the state database schema",
	Long: `Apply every pending schema migration to a state database, creating
the file when it does not exist. serve and init do this on their own;
use it to prepare a database ahead of time.

Example: imgserver migrate ./my-store/imgserver.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := repository.GetDatabase(args[0])
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := repository.RunMigrations(db, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Database %s is up to date\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
