package main

import (
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/csveer/csveer"
	"github.com/csveer/csveer/database"
)

const migrationSchema = "csveer"

func migrateCommands(app *csveerInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back csveer database migrations",
	}

	cmd.AddCommand(migrateDirectionCommand(app, "up", migrate.Up))
	cmd.AddCommand(migrateDirectionCommand(app, "down", migrate.Down))

	return cmd
}

func migrateDirectionCommand(app *csveerInstance, use string, direction migrate.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use: use,
		RunE: func(cmd *cobra.Command, args []string) error {
			migrations := migrate.EmbedFileSystemMigrationSource{
				FileSystem: csveer.SQLFiles,
				Root:       "sql",
			}

			db, err := database.ConnectDB(app.cnf.DataSource.Dns)
			if err != nil {
				return fmt.Errorf("error connecting to database: %w", err)
			}
			defer db.Close()

			migrate.SetSchema(migrationSchema)
			n, err := migrate.Exec(db, "postgres", migrations, direction)
			if err != nil {
				return fmt.Errorf("error migrating %s: %w", use, err)
			}
			fmt.Printf("Migrated %s %d migrations\n", use, n)
			return nil
		},
	}
}
