package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/calibration.report/internal/db"
	"github.com/banshee-data/calibration.report/internal/fsutil"
	"github.com/banshee-data/calibration.report/internal/output"
	"github.com/banshee-data/calibration.report/internal/report"
	"github.com/banshee-data/calibration.report/internal/security"
)

func (a *app) handleHistory(ctx context.Context, args []string) error {
	fs := a.newFlagSet("history")
	dbPath := fs.String("db", db.DefaultPath, "History database path")
	limit := fs.Int("limit", 20, "Number of runs to list (0 for all)")
	runID := fs.String("run", "", "Show the verdicts of this run")
	export := fs.String("export", "", "With -run, write the run's results JSON to this file or directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *export != "" && *runID == "" {
		return fmt.Errorf("-export requires -run")
	}

	store, err := db.OpenExisting(*dbPath, db.WithLogger(a.opsLogger()))
	if err != nil {
		return err
	}
	defer store.Close()

	if *runID == "" {
		runs, err := store.ListRuns(ctx, *limit)
		if err != nil {
			return err
		}
		return report.WriteHistory(a.stdout, runs)
	}

	rows, err := store.RunVerdicts(ctx, *runID)
	if err != nil {
		return err
	}
	if *export == "" {
		return report.WriteRunVerdicts(a.stdout, rows)
	}
	return a.exportRun(ctx, store, *runID, *export)
}

// exportRun writes the results file a recorded run would have produced.
// A directory destination gets a name derived from the run's log file.
func (a *app) exportRun(ctx context.Context, store *db.DB, runID, dest string) error {
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		run, err := store.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		dest = filepath.Join(dest, security.ResultsFileName(run.LogPath, runID))
	}
	if err := security.CheckExportPath(dest); err != nil {
		return err
	}

	rs, err := store.RunResults(ctx, runID)
	if err != nil {
		return err
	}
	data, err := output.MarshalResults(rs)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(fsutil.OSFileSystem{}, dest, data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Exported %d verdicts to %s\n", len(rs), dest)
	return nil
}
