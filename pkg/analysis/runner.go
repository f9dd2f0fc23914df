package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pratee23389/Hack4Delhi/pkg/logging"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// RecordSource supplies the records for a run.
type RecordSource interface {
	Name() string
	Load(ctx context.Context) ([]model.Record, error)
}

// Status is published at each phase of a run.
type Status struct {
	RunID          string       `json:"run_id"`
	State          string       `json:"state"`
	Message        string       `json:"message"`
	Step           int          `json:"step"`
	Total          int          `json:"total"`
	Reason         string       `json:"reason,omitempty"`
	Source         string       `json:"source,omitempty"`
	ReportStatus   model.Status `json:"report_status,omitempty"`
	IntegrityScore *float64     `json:"integrity_score,omitempty"`
}

// StatusPublisher receives run progress, typically for SSE subscribers.
type StatusPublisher interface {
	PublishAnalysisStatus(Status)
}

// ResultSink stores the latest successful result.
type ResultSink interface {
	SetResult(*Result)
}

// Recorder observes finished runs, typically for metrics.
type Recorder interface {
	ObserveAnalysis(report *model.Report, elapsed time.Duration, err error)
}

// Runner loads records from a source and analyses them, one run at a time.
type Runner struct {
	source    RecordSource
	opts      Options
	sink      ResultSink
	publisher StatusPublisher
	recorder  Recorder
	mu        sync.Mutex
	last      *Result
}

// NewRunner creates a runner. sink, publisher and recorder may be nil.
func NewRunner(source RecordSource, opts Options, sink ResultSink, publisher StatusPublisher, recorder Recorder) *Runner {
	return &Runner{
		source:    source,
		opts:      opts,
		sink:      sink,
		publisher: publisher,
		recorder:  recorder,
	}
}

// Last returns the most recent successful result, or nil.
func (r *Runner) Last() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

const runSteps = 3

// Run loads the records and analyses them. Concurrent calls are serialised.
func (r *Runner) Run(ctx context.Context, reason string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.NewString()
	log := logging.New("analysis.runner").With("run", runID[:8])
	publish := func(state, msg string, step int) {
		if r.publisher == nil {
			return
		}
		r.publisher.PublishAnalysisStatus(Status{
			RunID:   runID,
			State:   state,
			Message: msg,
			Step:    step,
			Total:   runSteps,
			Reason:  reason,
			Source:  r.source.Name(),
		})
	}
	fail := func(step int, err error, elapsed time.Duration) (*Result, error) {
		log.Error(fmt.Sprintf("[%d/%d] run failed", step, runSteps), "error", err)
		publish("error", err.Error(), step)
		if r.recorder != nil {
			r.recorder.ObserveAnalysis(nil, elapsed, err)
		}
		return nil, err
	}

	start := time.Now()
	log.Info("starting analysis", "reason", reason, "source", r.source.Name())

	publish("loading", "Loading records...", 1)
	records, err := r.source.Load(ctx)
	if err != nil {
		return fail(1, fmt.Errorf("load %s: %w", r.source.Name(), err), time.Since(start))
	}
	log.Info(fmt.Sprintf("[1/%d] loaded records", runSteps), "count", len(records))

	publish("analyzing", "Building similarity graph...", 2)
	res, err := AnalyzeGraph(ctx, records, r.opts)
	if err != nil {
		return fail(2, err, time.Since(start))
	}
	rep := res.Report
	log.Info(fmt.Sprintf("[2/%d] analysis complete", runSteps),
		"components", rep.TotalComponents,
		"clusters", len(rep.Clusters),
		"flagged", rep.FlaggedRecords,
		"integrity", rep.IntegrityScore,
	)

	r.last = res
	if r.sink != nil {
		r.sink.SetResult(res)
	}
	elapsed := time.Since(start)
	if r.recorder != nil {
		r.recorder.ObserveAnalysis(rep, elapsed, nil)
	}

	if r.publisher != nil {
		score := rep.IntegrityScore
		r.publisher.PublishAnalysisStatus(Status{
			RunID:          runID,
			State:          "ready",
			Message:        fmt.Sprintf("%d cluster(s) flagged", len(rep.Clusters)),
			Step:           runSteps,
			Total:          runSteps,
			Reason:         reason,
			Source:         r.source.Name(),
			ReportStatus:   rep.Status,
			IntegrityScore: &score,
		})
	}
	log.Info(fmt.Sprintf("[3/%d] published", runSteps), "status", rep.Status, "durationMs", elapsed.Milliseconds())
	return res, nil
}
