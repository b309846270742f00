package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forkserve/readerpool/journal/sqldb"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Generate journal migration SQL",
	Long: `Generate the SQL that creates the lifecycle journal table.

By default the migration is printed to stdout. With --output it is written
to a timestamped file in the given folder, ready for a migration runner.

Example:
  readerpoold migrate --dialect postgres
  readerpoold migrate --dialect sqlite --output migrations
  readerpoold migrate --dialect mysql --table pool_audit --down
`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().String("dialect", "postgres", "SQL dialect: postgres, sqlite or mysql")
	migrateCmd.Flags().String("table", "", "Events table name (default: readerpool_events)")
	migrateCmd.Flags().String("output", "", "Output folder (default: print to stdout)")
	migrateCmd.Flags().Bool("down", false, "Generate the drop migration instead")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dialectName, _ := cmd.Flags().GetString("dialect")
	table, _ := cmd.Flags().GetString("table")
	output, _ := cmd.Flags().GetString("output")
	down, _ := cmd.Flags().GetBool("down")

	var dialect sqldb.Dialect
	switch dialectName {
	case "postgres":
		dialect = sqldb.DialectPostgres
	case "sqlite":
		dialect = sqldb.DialectSQLite
	case "mysql":
		dialect = sqldb.DialectMySQL
	default:
		return fmt.Errorf("unsupported dialect %q, supported dialects are: postgres, sqlite, mysql", dialectName)
	}

	config := sqldb.Config{Table: table, Dialect: dialect}
	stmt := sqldb.MigrationUp(config)
	direction := "up"
	if down {
		stmt = sqldb.MigrationDown(config)
		direction = "down"
	}

	if output == "" {
		fmt.Print(stmt)
		return nil
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}
	name := fmt.Sprintf("%s_readerpool_events_%s.%s.sql", time.Now().Format("20060102150405"), dialectName, direction)
	path := filepath.Join(output, name)
	if err := os.WriteFile(path, []byte(stmt), 0o644); err != nil {
		return fmt.Errorf("write migration: %w", err)
	}

	fmt.Printf("Generated %s migration: %s\n", dialectName, path)
	return nil
}
