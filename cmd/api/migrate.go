package main

import (
	"context"
	"time"

	pg "pet-wellness/internal/adapters/storage/postgres"
	"pet-wellness/internal/config"

	"github.com/spf13/cobra"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if err := pg.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info("schema applied", map[string]any{"statements": len(pg.Schema)})
	return nil
}
