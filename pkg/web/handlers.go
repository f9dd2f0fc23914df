package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/Pratee23389/Hack4Delhi/pkg/analysis"
	"github.com/Pratee23389/Hack4Delhi/pkg/lens"
	"github.com/Pratee23389/Hack4Delhi/pkg/loader"
	"github.com/Pratee23389/Hack4Delhi/pkg/logging"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
	"github.com/Pratee23389/Hack4Delhi/pkg/pubsub"
)

// MaxBodySize caps request bodies and uploads.
const MaxBodySize = 32 << 20

const heartbeatInterval = 15 * time.Second

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

// writeAnalysisError maps input and config problems to 400 and everything
// else to 500.
func writeAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.ErrorKind(err)
	switch kind {
	case "invalid_input", "invalid_config":
		writeError(w, http.StatusBadRequest, kind, err.Error())
	default:
		logging.ErrorContext(r.Context(), "analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "ghost-hunter",
		"version": s.version,
		"status":  "running",
		"modules": Modules,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	res, _ := s.latest()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"report_available": res != nil,
	})
}

type analyzeRequest struct {
	Records []map[string]model.Value `json:"records"`
	Options json.RawMessage          `json:"options"`
}

// handleAnalyze analyses records sent in the body: CSV when the content
// type says so, otherwise JSON as either a bare array of objects or
// {"records": [...], "options": {...}}.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_input", err.Error())
		return
	}

	opts := s.requestOptions()
	var records []model.Record

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "text/csv":
		records, err = loader.ParseCSV(r.Context(), "request", bytes.NewReader(body), s.schema)
	case len(bytes.TrimSpace(body)) > 0 && bytes.TrimSpace(body)[0] == '[':
		var rows []map[string]model.Value
		if rows, err = loader.DecodeRows(body); err == nil {
			records, err = loader.RowsToRecords(r.Context(), "request", rows, s.schema)
		} else {
			err = fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
		}
	default:
		var req analyzeRequest
		if err = json.Unmarshal(body, &req); err != nil {
			err = fmt.Errorf("%w: malformed request body: %v", model.ErrInvalidInput, err)
			break
		}
		if len(req.Options) > 0 {
			if err = decodeOptions(req.Options, &opts); err != nil {
				break
			}
		}
		records, err = loader.RowsToRecords(r.Context(), "request", req.Records, s.schemaFor(opts))
	}
	if err != nil {
		writeAnalysisError(w, r, err)
		return
	}

	s.analyze(w, r, records, opts)
}

// handleUpload accepts a multipart "file" field holding a CSV or JSON export.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := r.ParseMultipartForm(MaxBodySize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "expected a multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "no file uploaded")
		return
	}
	defer file.Close()

	var records []model.Record
	name := filepath.Base(header.Filename)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		records, err = loader.ParseCSV(r.Context(), name, file, s.schema)
	case ".json":
		records, err = loader.ParseJSON(r.Context(), name, file, s.schema)
	default:
		writeError(w, http.StatusBadRequest, "invalid_input", "only .csv and .json files are accepted")
		return
	}
	if err != nil {
		writeAnalysisError(w, r, err)
		return
	}

	logging.InfoContext(r.Context(), "analysing upload", "file", name, "records", len(records))
	s.analyze(w, r, records, s.requestOptions())
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, records []model.Record, opts analysis.Options) {
	res, err := analysis.AnalyzeGraph(r.Context(), records, opts)
	if err != nil {
		writeAnalysisError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Report)
}

// requestOptions copies the server defaults so a request can override them.
func (s *Server) requestOptions() analysis.Options {
	opts := s.opts
	opts.LinkingAttributes = append([]string(nil), s.opts.LinkingAttributes...)
	return opts
}

// schemaFor requires the columns opts links on. The server schema already
// matches the default linking attributes.
func (s *Server) schemaFor(opts analysis.Options) loader.Schema {
	if slices.Equal(opts.LinkingAttributes, s.opts.LinkingAttributes) {
		return s.schema
	}
	return s.schema.RequireAttributes(opts.LinkingAttributes)
}

func decodeOptions(raw json.RawMessage, opts *analysis.Options) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(opts); err != nil {
		return fmt.Errorf("%w: options: %v", model.ErrInvalidConfig, err)
	}
	return nil
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, _ := s.latest()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "no analysis has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, res.Report)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	res, changes := s.latest()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "no analysis has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	res, _ := s.latest()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "no analysis has completed yet")
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "cluster id must be an integer")
		return
	}
	c, ok := res.Report.Cluster(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("cluster %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleFocused returns the neighbourhood of one record in the latest graph.
// Query parameters: depth (default 2), min_weight, metadata.
func (s *Server) handleFocused(w http.ResponseWriter, r *http.Request) {
	res, _ := s.latest()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "no analysis has completed yet")
		return
	}

	cfg := lens.DefaultConfig()
	cfg.LabelAttribute = s.opts.NameAttribute
	q := r.URL.Query()
	if v := q.Get("depth"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "depth must be an integer")
			return
		}
		cfg.Depth = depth
	}
	if v := q.Get("min_weight"); v != "" {
		weight, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "min_weight must be a number")
			return
		}
		cfg.MinWeight = weight
	}
	cfg.Metadata, _ = strconv.ParseBool(q.Get("metadata"))

	view, err := lens.Focus(res.Graph, mux.Vars(r)["id"], cfg, res.ClusterOf)
	switch {
	case errors.Is(err, lens.ErrUnknownRecord):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case err != nil:
		writeAnalysisError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

var topics = map[string]bool{
	pubsub.TopicAnalysisStatus: true,
	pubsub.TopicReport:         true,
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !topics[topic] {
		writeError(w, http.StatusNotFound, "not_found", "unknown topic "+topic)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Initial comment establishes the stream for Safari.
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "sse client gone", "topic", topic, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
