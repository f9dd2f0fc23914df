package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Pratee23389/Hack4Delhi/pkg/logging"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAnalysis records one finished run. A nil report means the run
// failed with err.
func (r *Registry) ObserveAnalysis(report *model.Report, elapsed time.Duration, err error) {
	r.AnalysisDuration.Observe(elapsed.Seconds())
	if err != nil || report == nil {
		kind := model.ErrorKind(err)
		if kind == "" {
			kind = "internal"
		}
		r.AnalysesTotal.WithLabelValues(kind).Inc()
		return
	}

	r.AnalysesTotal.WithLabelValues(outcome(report.Status)).Inc()
	r.RecordsPerAnalysis.Observe(float64(report.TotalRecords))

	counts := report.CountBySeverity()
	for _, sev := range []model.Severity{model.SeverityMedium, model.SeverityHigh, model.SeverityCritical} {
		r.FlaggedClusters.WithLabelValues(string(sev)).Set(float64(counts[sev]))
	}
	r.FlaggedRecords.Set(float64(report.FlaggedRecords))
	r.IntegrityScore.Set(report.IntegrityScore)
	r.LastSuccessTimestamp.SetToCurrentTime()
}

func outcome(s model.Status) string {
	if s == model.StatusWarning {
		return "warning"
	}
	return "clear"
}

// Middleware counts requests per route template so ids in paths do not
// explode label cardinality.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rec := &logging.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, req)
		r.RecordHTTPRequest(req.Method, routeName(req), rec.Status, time.Since(start))
	})
}

func routeName(req *http.Request) string {
	if route := mux.CurrentRoute(req); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}
