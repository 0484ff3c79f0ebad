// Command leaderboard fetches every configured quiz once, prints the cumulative report and
// optionally writes the CSV exports.
//
// Usage:
//
//	leaderboard -csv cumulative.csv -dupes-csv dupes.csv -merged-csv merged.csv
//	leaderboard -file export.json -quiet -merged-csv merged.csv
//	leaderboard -csv -merged-csv
//
// An export flag given without a path writes to its default file name.
//
// Settings other than the flags come from QUIZBOARD_* variables and QUIZBOARD_CONFIG.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/okian/quizboard/internal/adapters/csvio"
	app "github.com/okian/quizboard/internal/app"
	"github.com/okian/quizboard/internal/config"
	"github.com/okian/quizboard/internal/domain/leaderboard"
	"github.com/okian/quizboard/internal/report"
	"github.com/okian/quizboard/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Default file names of the export flags.
var exportDefaults = map[string]string{
	"csv":        "cumulative-leaderboard.csv",
	"dupes-csv":  "potential-duplicates.csv",
	"merged-csv": "cumulative-leaderboard-merged.csv",
}

type options struct {
	csvPath    string
	dupesPath  string
	mergedPath string
	file       string
	quiet      bool
	debug      bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("leaderboard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.csvPath, "csv", "", "write the cumulative leaderboard CSV to this path (default name when empty: cumulative-leaderboard.csv)")
	fs.StringVar(&o.dupesPath, "dupes-csv", "", "write the potential duplicates CSV to this path (default name when empty: potential-duplicates.csv)")
	fs.StringVar(&o.mergedPath, "merged-csv", "", "write the merged leaderboard CSV to this path (default name when empty: cumulative-leaderboard-merged.csv)")
	fs.StringVar(&o.file, "file", "", "read a JSON export instead of fetching from the database")
	fs.BoolVar(&o.quiet, "quiet", false, "suppress the console report")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	if err := fs.Parse(withDefaultPaths(args)); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// withDefaultPaths rewrites an export flag that is last or followed by another flag into
// "-name=<default>".
func withDefaultPaths(args []string) []string {
	out := make([]string, 0, len(args))
	for i, a := range args {
		if a == "--" {
			return append(out, args[i:]...)
		}
		name := strings.TrimLeft(a, "-")
		def, ok := exportDefaults[name]
		if ok && name != a && (i+1 == len(args) || strings.HasPrefix(args[i+1], "-")) {
			out = append(out, "-"+name+"="+def)
			continue
		}
		out = append(out, a)
	}
	return out
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if o.file != "" {
		cfg.SnapshotFile = o.file
	}

	level := "warn"
	if o.debug {
		level = "debug"
	}
	if err := logger.Init(logger.WithWriter(stderr), logger.WithFormat(cfg.LogFormat), logger.WithLevel(level)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log := logger.Named("leaderboard")

	snap, fetchErr := app.NewSource(cfg, log).Fetch(ctx)
	if !o.quiet {
		_ = report.FetchSummary(stdout, snap, fetchErr)
	}
	if report.AuthRequired(fetchErr) {
		fmt.Fprint(stdout, report.AuthGuidance)
		return 1
	}
	if fetchErr != nil && !snap.Acquired() {
		fmt.Fprintf(stderr, "Error: no quiz data acquired: %v\n", fetchErr)
		return 1
	}
	if fetchErr != nil {
		log.Warn(ctx, "continuing with a partial snapshot", logger.Error(fetchErr))
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	res := app.NewEngine(cfg).Run(snap)
	if !o.quiet {
		if err := report.New().Render(stdout, res); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	exports := []struct {
		path  string
		label string
		unit  string
		count int
		write func(io.Writer, *leaderboard.Result) error
	}{
		{o.csvPath, "Wrote CSV file", "", len(res.Ranked), func(w io.Writer, r *leaderboard.Result) error {
			return csvio.WriteCumulative(w, r.QuizIDs, r.Ranked)
		}},
		{o.dupesPath, "Wrote potential duplicates CSV", "pairs", len(res.Duplicates), func(w io.Writer, r *leaderboard.Result) error {
			return csvio.WriteDuplicates(w, r.Duplicates)
		}},
		{o.mergedPath, "Wrote merged cumulative leaderboard CSV", "players", len(res.Merged), func(w io.Writer, r *leaderboard.Result) error {
			return csvio.WriteMerged(w, r.QuizIDs, r.Merged)
		}},
	}
	for _, e := range exports {
		if e.path == "" {
			continue
		}
		out, err := writeFile(e.path, func(w io.Writer) error { return e.write(w, res) })
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if e.unit == "" {
			fmt.Fprintf(stdout, "\n%s: %s\n", e.label, out)
		} else {
			fmt.Fprintf(stdout, "\n%s: %s (%d %s)\n", e.label, out, e.count, e.unit)
		}
	}
	return 0
}

// writeFile creates path (and its directory) and returns the absolute path written.
func writeFile(path string, write func(io.Writer) error) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", abs, err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", abs, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", abs, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", abs, err)
	}
	return abs, nil
}
