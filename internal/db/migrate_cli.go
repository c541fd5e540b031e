package db

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/calibration.report/internal/monitoring"
)

// ErrUsage reports a malformed migrate invocation.
var ErrUsage = errors.New("invalid migrate usage")

// MigrateCLI runs the 'migrate' subcommand against one database file.
type MigrateCLI struct {
	DBPath string
	In     io.Reader
	Out    io.Writer
	Log    *monitoring.Logger
}

// Run dispatches args[0] (up, down, status, force, help).
func (c *MigrateCLI) Run(args []string) error {
	if len(args) < 1 {
		c.PrintHelp()
		return ErrUsage
	}

	action := args[0]
	if action == "help" {
		c.PrintHelp()
		return nil
	}

	// Migrations manage the schema, so the database is opened raw.
	database, err := OpenDB(c.DBPath, WithLogger(c.Log))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch action {
	case "up":
		return c.up(database)
	case "down":
		return c.down(database)
	case "status":
		return c.status(database)
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("%w: calibration migrate force <version_number>", ErrUsage)
		}
		return c.force(database, args[1])
	default:
		fmt.Fprintf(c.Out, "Unknown migrate action: %s\n\n", action)
		c.PrintHelp()
		return ErrUsage
	}
}

func (c *MigrateCLI) up(database *DB) error {
	c.Log.Opsf("Running migrations...")
	if err := database.MigrateUp(); err != nil {
		return err
	}
	c.Log.Opsf("All migrations applied successfully")
	return c.printVersion(database)
}

func (c *MigrateCLI) down(database *DB) error {
	c.Log.Opsf("Rolling back one migration...")
	if err := database.MigrateDown(); err != nil {
		return err
	}
	c.Log.Opsf("Migration rolled back successfully")
	return c.printVersion(database)
}

func (c *MigrateCLI) printVersion(database *DB) error {
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	fmt.Fprintf(c.Out, "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func (c *MigrateCLI) status(database *DB) error {
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	latest, err := LatestMigrationVersion()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.Out, "=== Migration Status ===")
	fmt.Fprintf(c.Out, "Current version: %d\n", version)
	fmt.Fprintf(c.Out, "Latest version: %d\n", latest)
	fmt.Fprintf(c.Out, "Dirty: %v\n", dirty)
	if version < latest {
		fmt.Fprintf(c.Out, "Pending migrations: %d\n", latest-version)
	}

	if dirty {
		fmt.Fprintln(c.Out, "\nWARNING: Database is in a dirty state!")
		fmt.Fprintln(c.Out, "A migration failed mid-execution. Inspect the database, fix it, then run:")
		fmt.Fprintln(c.Out, "  calibration migrate force <version>")
	}
	return nil
}

func (c *MigrateCLI) force(database *DB, versionStr string) error {
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return fmt.Errorf("%w: invalid version number %q", ErrUsage, versionStr)
	}

	fmt.Fprintf(c.Out, "WARNING: Forcing migration version to %d\n", version)
	fmt.Fprintln(c.Out, "This should only be used to recover from a dirty migration state.")
	fmt.Fprint(c.Out, "Continue? [y/N]: ")

	response, _ := bufio.NewReader(c.In).ReadString('\n')
	if r := strings.TrimSpace(response); r != "y" && r != "Y" {
		fmt.Fprintln(c.Out, "Aborted")
		return nil
	}

	if err := database.MigrateForce(version); err != nil {
		return err
	}
	c.Log.Opsf("Migration version forced to %d", version)
	return nil
}

// PrintHelp writes the migrate usage text.
func (c *MigrateCLI) PrintHelp() {
	fmt.Fprintln(c.Out, "Database Migration Commands")
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, "Usage: calibration migrate <command> [-db path]")
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, "Commands:")
	fmt.Fprintln(c.Out, "  up              Apply all pending migrations")
	fmt.Fprintln(c.Out, "  down            Rollback one migration")
	fmt.Fprintln(c.Out, "  status          Show current migration status and version")
	fmt.Fprintln(c.Out, "  force <N>       Force migration version to N (recovery only)")
	fmt.Fprintln(c.Out, "  help            Show this help message")
	fmt.Fprintln(c.Out)
	fmt.Fprintf(c.Out, "The database defaults to %s.\n", DefaultPath)
}
