package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/printobs/printobs/internal/catalog"
	"github.com/printobs/printobs/internal/export"
	"github.com/printobs/printobs/internal/frost"
	"github.com/printobs/printobs/internal/logging"
	"github.com/printobs/printobs/internal/obs"
	"github.com/printobs/printobs/internal/reconcile"
	"github.com/printobs/printobs/internal/report"
	"github.com/printobs/printobs/internal/timerange"
	"github.com/printobs/printobs/services/printobs/config"
)

const usageText = `print offshore insitu observations

Usage:

For a list of available stations:
  printobs

Query a specific station:
  printobs -s draugen

Extend query back in time (here e.g. 24h):
  printobs -s draugen -d 24

Adding start and end date to query:
  printobs -s draugen -sd 20220401 -ed 20220404
  printobs -s draugen --sd 2022-04-01-12 --ed 2022.04.04-06:15

Flags:
`

type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

type options struct {
	start       string
	end         string
	delta       int
	station     string
	instrument  string
	version     string
	format      string
	output      string
	show        string
	extraMargin bool
	shortcuts   bool
	dump        bool
	debug       bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()

	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	fmt.Fprintln(os.Stderr, "printobs: "+describe(err))
	var uerr *usageError
	if errors.As(err, &uerr) {
		os.Exit(2)
	}
	os.Exit(1)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("printobs", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.start, "start-date", "", "start date of time period to be downloaded")
	fs.StringVar(&opts.end, "end-date", "", "end date of time period to be downloaded")
	fs.StringVar(&opts.start, "sd", "", "start date (short form)")
	fs.StringVar(&opts.end, "ed", "", "end date (short form)")
	_ = fs.MarkHidden("sd")
	_ = fs.MarkHidden("ed")
	fs.IntVarP(&opts.delta, "delta", "d", 0, "subtracted hours from the end date (in lieu of a start date)")
	fs.StringVarP(&opts.station, "station", "s", "", "station alias")
	fs.StringVarP(&opts.instrument, "instrument", "i", "", "instrument type ids (overrides the station filter)")
	fs.StringVarP(&opts.version, "api-version", "v", "", "Frost API version (v0 or v1)")
	fs.StringVarP(&opts.format, "format", "f", "", "export format (nc, parquet, p, csv)")
	fs.StringVarP(&opts.output, "output", "o", "", "export file path")
	fs.StringVar(&opts.show, "show", "", "metadata rows to print under the header (sensor,level,parameterid)")
	fs.BoolVar(&opts.extraMargin, "extra-margin", false, "widen a --delta query by a fixed skew margin")
	fs.BoolVar(&opts.shortcuts, "shortcuts", false, "print shell aliases for every station and exit")
	fs.BoolVar(&opts.dump, "dump", false, "dump the flattened series to stderr")
	fs.BoolVar(&opts.debug, "debug", false, "verbose logging")

	if err := fs.Parse(legacyArgs(args)); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return opts, err
		}
		return opts, &usageError{err: err}
	}
	if fs.NArg() > 0 {
		return opts, &usageError{err: fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))}
	}
	if opts.delta < 0 {
		return opts, &usageError{err: fmt.Errorf("delta must not be negative: %d", opts.delta)}
	}
	return opts, nil
}

// legacyArgs rewrites the single-dash -sd and -ed spellings, which pflag would
// otherwise read as -s d and -e d, to their long forms.
func legacyArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i, arg := range out {
		if arg == "--" {
			break
		}
		for _, name := range []string{"sd", "ed"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				out[i] = "-" + arg
			}
		}
	}
	return out
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, opts.debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	vars, stations, err := obs.LoadCatalogs(ctx, cfg.Config, logger)
	if err != nil {
		return err
	}

	if opts.shortcuts {
		return report.WriteShortcuts(stdout, stations, cfg.Command)
	}
	if opts.station == "" {
		return report.WriteStations(stdout, stations)
	}

	version := cfg.APIVersion
	if opts.version != "" {
		if version, err = frost.ParseVersion(opts.version); err != nil {
			return &usageError{err: err}
		}
	}

	show, err := report.ParseShow(opts.show)
	if err != nil {
		return &usageError{err: err}
	}

	started := time.Now()
	svc := obs.New(obs.NewFrostClient(cfg.Config, logger), vars, stations, cfg.RequestTimeout, logger)
	res, err := svc.Run(ctx, obs.Query{
		Station: opts.station,
		Range: timerange.Input{
			Start:       opts.start,
			End:         opts.end,
			Delta:       time.Duration(opts.delta) * time.Hour,
			ExtraMargin: opts.extraMargin,
		},
		Version: version,
		TypeIDs: opts.instrument,
	}, started)
	if err != nil {
		return err
	}

	if opts.dump {
		series, err := res.Response.Series()
		if err != nil {
			return err
		}
		dumper := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		dumper.Fdump(stderr, series)
	}

	if err := report.New(vars).Write(stdout, res.Table, res.Station.Alias, show); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("time used: %.2f seconds", time.Since(started).Seconds()))

	path, format, ok := exportTarget(opts, cfg.Format, res)
	if !ok {
		return nil
	}
	if err := export.Write(path, format, res.Table); err != nil {
		return err
	}
	logger.Info("table exported", zap.String("path", path), zap.String("format", format))
	return nil
}

// exportTarget picks the export path and format. A format without a path writes
// <station>_<start>_<end>.<format> in the working directory; a path without a
// format uses its extension.
func exportTarget(opts options, defaultFormat string, res *obs.Result) (string, string, bool) {
	format := opts.format
	path := opts.output
	if format == "" && path == "" {
		return "", "", false
	}
	if format == "" {
		format = defaultFormat
	}
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	if path == "" {
		const stamp = "20060102T1504"
		path = fmt.Sprintf("%s_%s_%s.%s", res.Station.Alias,
			res.Interval.Start.Format(stamp), res.Interval.End.Format(stamp), format)
	}
	return path, format, true
}

// describe renders err as one line for the terminal.
func describe(err error) string {
	var (
		fetchErr *frost.FetchError
		tErr     *frost.TransportError
		empty    *reconcile.EmptyResultError
		uerr     *export.UnsupportedFormatError
		werr     *export.IOWriteError
	)
	switch {
	case errors.Is(err, catalog.ErrStationNotFound):
		return err.Error() + " (run printobs without -s for the list of stations)"
	case errors.Is(err, catalog.ErrStationIDNotConfigured):
		return err.Error() + " (set PRINTOBS_STATIONS or CATALOG_DATABASE_URL to a catalog with station ids)"
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("frost request failed with status %d: %s", fetchErr.StatusCode, fetchErr.Message)
	case errors.As(err, &tErr):
		return "frost request failed: " + tErr.Err.Error()
	case errors.As(err, &empty):
		return empty.Error() + " in the requested period"
	case errors.As(err, &uerr):
		return "report printed, but " + uerr.Error()
	case errors.As(err, &werr):
		return "report printed, but export failed: " + werr.Error()
	default:
		return err.Error()
	}
}
