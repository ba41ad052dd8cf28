package cmd

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/courtvision/prediction-api/internal/logic"
	"github.com/courtvision/prediction-api/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded PostgreSQL and ClickHouse schemas",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	pg, err := connectPostgres(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer pg.Close()

	var ch driver.Conn
	if cfg.ClickHouseURL != "" {
		if ch, err = connectClickHouse(ctx, cfg.ClickHouseURL); err != nil {
			return err
		}
		defer ch.Close()
	}

	m := logic.NewMigrator(pg, ch, logger)
	applied, err := m.Postgres(ctx, migrations.FS, "postgres")
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Println(color.YellowString("PostgreSQL: schema up to date"))
	}
	for _, name := range applied {
		fmt.Println(color.GreenString("PostgreSQL: applied %s", name))
	}

	if ch == nil {
		fmt.Println(color.YellowString("ClickHouse: not configured, skipped"))
		return nil
	}
	files, err := m.ClickHouse(ctx, migrations.FS, "clickhouse")
	if err != nil {
		return err
	}
	for _, name := range files {
		fmt.Println(color.GreenString("ClickHouse: applied %s", name))
	}
	return nil
}
