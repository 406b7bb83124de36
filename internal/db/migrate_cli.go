package db

import (
	"fmt"
	"io"
)

// RunMigrateCommand handles the 'migrate' subcommand of tpm-history.
func RunMigrateCommand(w io.Writer, args []string, dbPath string) error {
	if len(args) < 1 {
		PrintMigrateHelp(w)
		return fmt.Errorf("missing migrate action")
	}
	action := args[0]
	if action == "help" {
		PrintMigrateHelp(w)
		return nil
	}

	// Migrations manage the schema, so open without applying them.
	database, err := OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	migrations := MigrationsFS()

	switch action {
	case "up":
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		fmt.Fprintln(w, "✓ All migrations applied")
	case "down":
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
		fmt.Fprintln(w, "✓ Rolled back one migration")
	case "status":
	default:
		PrintMigrateHelp(w)
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	version, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Fprintf(w, "Current version: %d (dirty: %v)\n", version, dirty)
	if dirty {
		fmt.Fprintln(w, "WARNING: a migration failed mid-execution; inspect the database before continuing.")
	}
	return nil
}

// PrintMigrateHelp writes usage for the migrate subcommand.
func PrintMigrateHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: tpm-history -db <path> migrate <action>

Actions:
  up       Apply all pending migrations
  down     Roll back the most recent migration
  status   Show the current schema version
  help     Show this help
`)
}
