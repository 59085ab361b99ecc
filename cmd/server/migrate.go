package main

import (
	"github.com/spf13/cobra"

	"github.com/greenproof/greenproof-backend/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Initialize(cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close(db)

		return database.RunMigrations(db)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the initial administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Initialize(cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.RunMigrations(db); err != nil {
			return err
		}
		return database.SeedInitialData(db, cfg.Seed)
	},
}
