package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/justestif/go-songamizer/internal/db"
)

var databaseURL string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if databaseURL == "" {
			_ = godotenv.Load()
			databaseURL = os.Getenv("DATABASE_URL")
		}
		if databaseURL == "" {
			return errors.New("DATABASE_URL or --database-url is required")
		}

		database, err := db.New(cmd.Context(), databaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection URL (defaults to $DATABASE_URL)")
}
