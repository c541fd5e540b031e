package main

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/db"
	"github.com/banshee-data/calibration.report/internal/fsutil"
	"github.com/banshee-data/calibration.report/internal/output"
	"github.com/banshee-data/calibration.report/internal/report"
)

func (a *app) handleReport(ctx context.Context, args []string) error {
	fs := a.newFlagSet("report")
	htmlPath := fs.String("html", "", "Also write an HTML bar chart to this file")
	pngPath := fs.String("png", "", "Also write a PNG bar chart to this file")
	dbPath := fs.String("db", db.DefaultPath, "History database (with -run)")
	runID := fs.String("run", "", "Report a recorded run instead of a results file")

	resultsPath, err := parseWithPositional(fs, args)
	if err != nil {
		return err
	}

	fsys := fsutil.OSFileSystem{}
	var (
		rs     calibration.ResultSet
		source string
	)
	switch {
	case *runID != "" && resultsPath != "":
		return errors.New("give either a results file or -run, not both")
	case *runID != "":
		store, err := db.OpenExisting(*dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if rs, err = store.RunResults(ctx, *runID); err != nil {
			return err
		}
		source = "run " + *runID
	case resultsPath != "":
		if rs, err = output.ReadResults(fsys, resultsPath); err != nil {
			return err
		}
		source = filepath.Base(resultsPath)
	default:
		return errors.New("usage: calibration report <results.json> [-html file] [-png file] | -run ID [-db file]")
	}

	st := report.Compute(rs)
	if err := report.WriteText(a.stdout, st); err != nil {
		return err
	}
	if *htmlPath != "" {
		if err := report.SaveHTML(fsys, *htmlPath, st, source); err != nil {
			return err
		}
	}
	if *pngPath != "" {
		if err := report.SavePNG(fsys, *pngPath, st, "Calibration results: "+source); err != nil {
			return err
		}
	}
	return nil
}
