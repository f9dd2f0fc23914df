package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Pratee23389/Hack4Delhi/pkg/analysis"
	"github.com/Pratee23389/Hack4Delhi/pkg/config"
	"github.com/Pratee23389/Hack4Delhi/pkg/loader"
	"github.com/Pratee23389/Hack4Delhi/pkg/logging"
	"github.com/Pratee23389/Hack4Delhi/pkg/metrics"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
	"github.com/Pratee23389/Hack4Delhi/pkg/output"
	"github.com/Pratee23389/Hack4Delhi/pkg/watcher"
	"github.com/Pratee23389/Hack4Delhi/pkg/web"
)

var version = "dev"

// Exit codes. A WARNING report is not a failure, but scripts can tell it
// apart from a clean one.
const (
	exitClear   = 0
	exitError   = 1
	exitWarning = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("ghost-hunter", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	config.RegisterFlags(flags)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: ghost-hunter [flags]\n\nFinds clusters of payroll records that share identifiers.\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitClear
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		flags.Usage()
		return exitError
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	logging.SetOutput(stderr)
	if cfg.LogJSON {
		logging.SetJSONOutput(cfg.LogLevel())
	} else {
		logging.SetLevel(cfg.LogLevel())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case cfg.Web:
		err = serve(ctx, cfg)
	case cfg.Watch:
		err = watch(ctx, cfg, stdout)
	default:
		return once(ctx, cfg, stdout, stderr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitClear
}

// once prints a single report.
func once(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) int {
	if cfg.Input == "" {
		fmt.Fprintln(stderr, "Error: --input is required (or use --web)")
		return exitError
	}
	src, err := loader.OpenPath(cfg.Input, cfg.Loader)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	res, err := analysis.NewRunner(src, cfg.Analysis, nil, nil, nil).Run(ctx, "cli")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if err := output.Write(stdout, cfg.Format, src.Name(), res.Report); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if res.Report.Status == model.StatusWarning {
		return exitWarning
	}
	return exitClear
}

// printSink prints every finished run, for watch mode without the server.
type printSink struct {
	w      io.Writer
	format string
	source string
}

func (p printSink) SetResult(res *analysis.Result) {
	if err := output.Write(p.w, p.format, p.source, res.Report); err != nil {
		logging.Error("failed to print report", "error", err)
	}
}

// watch prints a report now and again after every change to the input.
func watch(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	if cfg.Input == "" {
		return fmt.Errorf("--watch needs --input")
	}
	src, err := loader.NewPathSource(cfg.Input, cfg.Loader)
	if err != nil {
		return err
	}
	runner := analysis.NewRunner(src, cfg.Analysis, printSink{w: stdout, format: cfg.Format, source: src.Name()}, nil, nil)
	if _, err := runner.Run(ctx, "startup"); err != nil {
		logging.Warn("initial analysis failed, waiting for changes", "error", err)
	}
	return watcher.Watch(ctx, []string{cfg.Input}, runner, watcher.DefaultOptions())
}

// serve starts the HTTP API. With an input, the first analysis runs in the
// background and --watch keeps it current.
func serve(ctx context.Context, cfg *config.Config) error {
	reg := metrics.NewRegistry()
	srv := web.NewServer(web.Options{
		Analysis: cfg.Analysis,
		Schema:   cfg.Loader,
		Metrics:  reg,
		Version:  version,
	})

	var runner *analysis.Runner
	if cfg.Input != "" {
		src, err := loader.NewPathSource(cfg.Input, cfg.Loader)
		if err != nil {
			return err
		}
		runner = analysis.NewRunner(src, cfg.Analysis, srv, srv, reg)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx, cfg.Port)
	})

	if runner != nil {
		g.Go(func() error {
			if _, err := runner.Run(ctx, "startup"); err != nil {
				logging.Warn("initial analysis failed", "error", err)
			}
			if !cfg.Watch {
				return nil
			}
			return watcher.Watch(ctx, []string{cfg.Input}, runner, watcher.DefaultOptions())
		})
	} else if cfg.Watch {
		logging.Warn("--watch ignored without --input")
	}

	if cfg.Open {
		url := fmt.Sprintf("http://localhost:%d", cfg.Port)
		g.Go(func() error {
			// Give the listener a moment to start.
			select {
			case <-ctx.Done():
			case <-time.After(500 * time.Millisecond):
				openBrowser(url)
			}
			return nil
		})
	}

	return g.Wait()
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on this platform", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
