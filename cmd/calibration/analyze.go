package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/calibration.report/internal/config"
	"github.com/banshee-data/calibration.report/internal/db"
	"github.com/banshee-data/calibration.report/internal/fsutil"
	"github.com/banshee-data/calibration.report/internal/output"
	"github.com/banshee-data/calibration.report/internal/pipeline"
)

func (a *app) handleAnalyze(ctx context.Context, args []string) error {
	fs := a.newFlagSet("analyze")
	outputPath := fs.String("output", "", "Write results to this JSON file instead of stdout")
	configPath := fs.String("config", "", "Thresholds JSON file")
	dbPath := fs.String("db", "", "Record the run in this history database")
	verbose := fs.Bool("v", false, "Log diagnostics to stderr")
	trace := fs.Bool("trace", false, "Log every parsed record to stderr")

	logPath, err := parseWithPositional(fs, args)
	if err != nil {
		return err
	}
	if logPath == "" {
		return errors.New("usage: calibration analyze <log> [-output file] [-config file] [-db file] [-v] [-trace]")
	}

	log := a.logger(*verbose, *trace)

	thresholds := config.DefaultThresholds()
	if *configPath != "" {
		if thresholds, err = config.LoadThresholds(*configPath); err != nil {
			return err
		}
		log.Diagf("loaded thresholds from %s", *configPath)
	}

	fsys := fsutil.OSFileSystem{}
	var sink output.Sink
	if *outputPath != "" {
		sink = output.NewFileSink(fsys, *outputPath, log)
	} else {
		sink = output.NewStreamSink(a.stdout)
	}

	opts := pipeline.Options{LogPath: logPath, FS: fsys, Thresholds: thresholds, Logger: log}
	if *dbPath == "" {
		_, err := pipeline.Analyze(ctx, opts, sink)
		return err
	}
	return analyzeRecorded(ctx, opts, *dbPath, sink)
}

// analyzeRecorded runs the analysis while recording it in the history
// database. The run row is finished even when the analysis fails.
func analyzeRecorded(ctx context.Context, opts pipeline.Options, dbPath string, sink output.Sink) error {
	store, err := db.NewDB(dbPath, db.WithLogger(opts.Logger))
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.StartRun(ctx, opts.LogPath, opts.Thresholds.JSON())
	if err != nil {
		return err
	}

	rec := db.NewRecordingSink(ctx, store, run, sink)
	sum, runErr := pipeline.Analyze(ctx, opts, rec)
	if runErr != nil {
		// Commit was skipped; keep the verdicts classified before the failure.
		if err := rec.Flush(); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	// A cancelled ctx must not prevent the run from being closed.
	if err := store.FinishRun(context.WithoutCancel(ctx), run, sum.Reference, rec.Recorded(), runErr); err != nil {
		return errors.Join(runErr, err)
	}
	if runErr != nil {
		return runErr
	}
	opts.Logger.Diagf("recorded run %s in %s", run.ID, dbPath)
	return nil
}

func (a *app) handleMigrate(args []string) error {
	fs := a.newFlagSet("migrate")
	dbPath := fs.String("db", db.DefaultPath, "History database path")

	cliArgs, rest := leadingArgs(args)
	if err := fs.Parse(rest); err != nil {
		return err
	}
	cliArgs = append(cliArgs, fs.Args()...)

	cli := &db.MigrateCLI{DBPath: *dbPath, In: a.stdin, Out: a.stdout, Log: a.opsLogger()}
	if err := cli.Run(cliArgs); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
