package main

import (
	"github.com/Miraines/management-company/backoffice/internal/infra/config"
	"github.com/Miraines/management-company/backoffice/internal/infra/database"
	lg "github.com/Miraines/management-company/backoffice/internal/infra/log"
	"github.com/Miraines/management-company/backoffice/internal/infra/migrate"
	"github.com/spf13/cobra"
)

func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending database migrations to the PostgreSQL database.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	zapLog, err := lg.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = zapLog.Sync() }()

	cmd.Println("Connecting to database...")
	db, err := database.Open(cmd.Context(), cfg.DatabaseURL, zapLog)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	cmd.Println("Running migrations...")
	if err := migrate.Up(sqlDB); err != nil {
		return err
	}

	version, dirty, err := migrate.Version(sqlDB)
	if err != nil {
		return err
	}
	cmd.Printf("Schema at version %d (dirty=%t)\n", version, dirty)
	return nil
}
