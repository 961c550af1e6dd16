package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		// Open migrates as part of opening the database.
		database, err := openDatabase(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return database.Close()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
