package watcher

import (
	"context"
	"time"

	"github.com/Pratee23389/Hack4Delhi/pkg/analysis"
	"github.com/Pratee23389/Hack4Delhi/pkg/logging"
)

// Runner is the part of analysis.Runner the watch loop drives.
type Runner interface {
	Run(ctx context.Context, reason string) (*analysis.Result, error)
}

// Options tune the watch loop.
type Options struct {
	QuietPeriod time.Duration
	MaxWait     time.Duration
}

// DefaultOptions waits for half a second of quiet, and never more than five
// seconds after the first change.
func DefaultOptions() Options {
	return Options{QuietPeriod: 500 * time.Millisecond, MaxWait: 5 * time.Second}
}

// Watch re-runs r each time the inputs change, until ctx is cancelled.
// Failed runs are logged and the loop keeps watching.
func Watch(ctx context.Context, inputs []string, r Runner, opts Options) error {
	fw, err := NewFileWatcher(inputs)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}
	defer fw.Stop()

	debouncer := NewDebouncer(fw.Events(), opts.QuietPeriod, opts.MaxWait)
	debouncer.Start(ctx)

	log := logging.New("watcher")
	for event := range debouncer.Output() {
		changes := AnalyzeChanges(event)
		if !changes.NeedRerun {
			continue
		}
		log.Info("inputs changed, re-running analysis",
			"reason", changes.Reason,
			"input_set_changed", changes.InputSetChanged,
		)
		if _, err := r.Run(ctx, changes.Reason); err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("re-run failed, still watching", "error", err)
		}
	}
	return nil
}
