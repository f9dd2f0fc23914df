package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"github.com/Pratee23389/Hack4Delhi/pkg/analysis"
	"github.com/Pratee23389/Hack4Delhi/pkg/lens"
	"github.com/Pratee23389/Hack4Delhi/pkg/loader"
	"github.com/Pratee23389/Hack4Delhi/pkg/logging"
	"github.com/Pratee23389/Hack4Delhi/pkg/metrics"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
	"github.com/Pratee23389/Hack4Delhi/pkg/pubsub"
)

// Modules lists the pipeline stages reported by the service banner.
var Modules = []string{
	"graph_builder",
	"component_partitioner",
	"cluster_metrics",
	"centrality_ranker",
	"result_aggregator",
}

// Options configure a Server.
type Options struct {
	// Analysis is the default for /api/analyze; requests may override fields.
	Analysis analysis.Options
	Schema   loader.Schema
	// Metrics is optional; /metrics answers 404 without it.
	Metrics *metrics.Registry
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
	Version        string
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	handler   http.Handler
	publisher *pubsub.SSEPublisher
	metrics   *metrics.Registry
	opts      analysis.Options
	schema    loader.Schema
	version   string

	mu       sync.RWMutex
	result   *analysis.Result
	snapshot *lens.Snapshot
	changes  *lens.ViewDiff
}

// NewServer creates a new web server
func NewServer(o Options) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// New subscribers only need the current state of each topic.
	ssePublisher.ConfigureTopic(pubsub.TopicAnalysisStatus, pubsub.TopicConfig{BufferSize: 10})
	ssePublisher.ConfigureTopic(pubsub.TopicReport, pubsub.TopicConfig{BufferSize: 5})

	version := o.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
		metrics:   o.Metrics,
		opts:      o.Analysis,
		schema:    o.Schema,
		version:   version,
	}
	s.setupRoutes()

	origins := o.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	// CORS wraps the router so preflight requests never need a route.
	s.handler = cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})(s.router)
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	s.router.HandleFunc("/", s.handleBanner).Methods("GET")
	s.router.HandleFunc("/api/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/api/analyze", s.handleAnalyze).Methods("POST")
	s.router.HandleFunc("/api/analyze/upload", s.handleUpload).Methods("POST")

	s.router.HandleFunc("/api/report", s.handleReport).Methods("GET")
	s.router.HandleFunc("/api/report/changes", s.handleChanges).Methods("GET")
	s.router.HandleFunc("/api/report/clusters/{id}", s.handleCluster).Methods("GET")
	s.router.HandleFunc("/api/records/{id}/focused", s.handleFocused).Methods("GET")

	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")
}

// Handler returns the complete HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetResult stores the latest runner result and publishes a report event
// describing what changed since the previous one.
func (s *Server) SetResult(res *analysis.Result) {
	view := lens.ClusterView(res.Graph, res.ClusterOf, s.opts.NameAttribute)

	s.mu.Lock()
	changes := lens.ComputeDiff(s.snapshot, view)
	s.result = res
	s.snapshot = lens.CreateSnapshot(view)
	s.changes = changes
	s.mu.Unlock()

	rep := res.Report
	event := reportEvent{
		ReportSummary: pubsub.ReportSummary{
			Status:         string(rep.Status),
			TotalRecords:   rep.TotalRecords,
			FlaggedRecords: rep.FlaggedRecords,
			Clusters:       len(rep.Clusters),
			Critical:       rep.CountBySeverity()[model.SeverityCritical],
			IntegrityScore: rep.IntegrityScore,
		},
		Changes: changes,
	}
	if err := s.publisher.Publish(pubsub.TopicReport, "ready", event); err != nil {
		logging.Warn("failed to publish report event", "error", err)
	}
}

type reportEvent struct {
	pubsub.ReportSummary
	Changes *lens.ViewDiff `json:"changes"`
}

// PublishAnalysisStatus forwards runner progress to SSE subscribers.
func (s *Server) PublishAnalysisStatus(st analysis.Status) {
	if err := s.publisher.Publish(pubsub.TopicAnalysisStatus, st.State, st); err != nil {
		logging.Warn("failed to publish analysis status", "state", st.State, "error", err)
	}
}

func (s *Server) latest() (*analysis.Result, *lens.ViewDiff) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.changes
}

// Start serves on port until ctx is cancelled, then shuts down gracefully.
// Open SSE streams are closed first so shutdown does not wait on them.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logging.Info("shutting down web server")
		s.publisher.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close ends all SSE subscriptions.
func (s *Server) Close() error {
	return s.publisher.Close()
}
