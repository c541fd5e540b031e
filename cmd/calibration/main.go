package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/calibration.report/internal/monitoring"
	"github.com/banshee-data/calibration.report/internal/version"
)

// app carries the process streams so subcommands can be exercised in tests.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(a.run(ctx, os.Args[1:]))
}

// run dispatches one subcommand and returns the process exit status.
func (a *app) run(ctx context.Context, args []string) int {
	if len(args) < 1 {
		a.printUsage()
		return 1
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "analyze":
		err = a.handleAnalyze(ctx, rest)
	case "report":
		err = a.handleReport(ctx, rest)
	case "generate":
		err = a.handleGenerate(rest)
	case "history":
		err = a.handleHistory(ctx, rest)
	case "migrate":
		err = a.handleMigrate(rest)
	case "version":
		fmt.Fprintf(a.stdout, "calibration version %s (git %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	case "help", "-h", "--help":
		a.printUsage()
	default:
		fmt.Fprintf(a.stderr, "Unknown command: %s\n\n", command)
		a.printUsage()
		return 1
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		a.opsLogger().Opsf("%s: %v", command, err)
		return 1
	}
	return 0
}

// logger builds the per-run logger: ops always goes to stderr, diag and trace
// only when requested.
func (a *app) logger(verbose, trace bool) *monitoring.Logger {
	var diagW, traceW io.Writer
	if verbose || trace {
		diagW = a.stderr
	}
	if trace {
		traceW = a.stderr
	}
	return monitoring.NewLogger("calibration: ", a.stderr, diagW, traceW)
}

func (a *app) opsLogger() *monitoring.Logger {
	return a.logger(false, false)
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseWithPositional parses args allowing one positional argument either
// before or after the flags. It returns the positional argument, or "" if
// none was given.
func parseWithPositional(fs *flag.FlagSet, args []string) (string, error) {
	var positional string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		positional, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	switch {
	case positional != "" && fs.NArg() > 0:
		return "", fmt.Errorf("unexpected arguments: %v", fs.Args())
	case positional == "" && fs.NArg() > 1:
		return "", fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	case positional == "" && fs.NArg() == 1:
		positional = fs.Arg(0)
	}
	return positional, nil
}

// leadingArgs splits off the arguments before the first flag.
func leadingArgs(args []string) (positional, rest []string) {
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return args[:i], args[i:]
		}
	}
	return args, nil
}

func (a *app) printUsage() {
	fmt.Fprintln(a.stdout, `calibration - classify sensor calibration logs

Usage: calibration <command> [options]

Commands:
  analyze <log>     Classify every sensor in a calibration log
  report <results>  Summarise a results file by sensor family
  generate          Write a synthetic calibration log
  history           List recorded analyze runs
  migrate <action>  Manage the run history database schema
  version           Show version information
  help              Show this help message

Analyze Flags:
  -output <file>    Write all verdicts as one JSON object (default: stream to stdout)
  -config <file>    Thresholds JSON (default: built-in thresholds)
  -db <file>        Record the run in this history database
  -v                Log diagnostics to stderr
  -trace            Log every parsed record to stderr

Examples:
  calibration generate -thermometers 250 -humidity-sensors 200 -monoxide-sensors 100 -output large_log.txt
  calibration analyze large_log.txt -output results.json -db calibration.db
  calibration report results.json -html results.html -png results.png
  calibration history -db calibration.db -limit 5`)
}
