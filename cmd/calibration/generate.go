package main

import (
	"fmt"
	"io"

	"github.com/banshee-data/calibration.report/internal/fsutil"
	"github.com/banshee-data/calibration.report/internal/loggen"
)

func (a *app) handleGenerate(args []string) error {
	cfg := loggen.DefaultConfig()

	fs := a.newFlagSet("generate")
	fs.IntVar(&cfg.Thermometers, "thermometers", cfg.Thermometers, "Number of thermometers to generate")
	fs.IntVar(&cfg.HumiditySensors, "humidity-sensors", cfg.HumiditySensors, "Number of humidity sensors to generate")
	fs.IntVar(&cfg.MonoxideSensors, "monoxide-sensors", cfg.MonoxideSensors, "Number of monoxide sensors to generate")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (default: current time)")
	outputPath := fs.String("output", "large_log.txt", "Output file for the generated log (- for stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	gen, err := loggen.New(cfg)
	if err != nil {
		return err
	}

	if *outputPath == "-" {
		_, err := gen.Generate(a.stdout)
		return err
	}

	var lines int
	err = fsutil.WriteAtomic(fsutil.OSFileSystem{}, *outputPath, 0644, func(w io.Writer) error {
		var err error
		lines, err = gen.Generate(w)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Generated log file: %s with %d lines\n", *outputPath, lines)
	return nil
}
