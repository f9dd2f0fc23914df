package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pratee23389/Hack4Delhi/pkg/analysis"
	"github.com/Pratee23389/Hack4Delhi/pkg/lens"
	"github.com/Pratee23389/Hack4Delhi/pkg/loader"
	"github.com/Pratee23389/Hack4Delhi/pkg/metrics"
	"github.com/Pratee23389/Hack4Delhi/pkg/model"
	"github.com/Pratee23389/Hack4Delhi/pkg/pubsub"
)

const payrollCSV = `employee_id,name,mobile,bank_account
E001,Asha Verma,9876500001,SBIN0001111
E002,Ravi Kumar,9876500002,SBIN0001111
E003,Meena Iyer,9876500003,HDFC0002222
E005,Tara Das,9876500099,PUNB0004444
E006,Vikram Rao,9876500099,PUNB0004444
E007,Nisha Gupta,9876500099,KOTK0005555
E008,Arun Mehta,9876500008,KOTK0005555
`

func newTestServer(t *testing.T, reg *metrics.Registry) *Server {
	t.Helper()
	s := NewServer(Options{
		Analysis: analysis.DefaultOptions(),
		Schema:   loader.DefaultSchema(),
		Metrics:  reg,
		Version:  "test",
	})
	t.Cleanup(func() { s.Close() })
	return s
}

func payrollResult(t *testing.T) *analysis.Result {
	t.Helper()
	records, err := loader.ParseCSV(context.Background(), "payroll.csv", strings.NewReader(payrollCSV), loader.DefaultSchema())
	require.NoError(t, err)
	res, err := analysis.AnalyzeGraph(context.Background(), records, analysis.DefaultOptions())
	require.NoError(t, err)
	return res
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestBannerAndHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	banner := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "ghost-hunter", banner["service"])
	assert.Equal(t, "test", banner["version"])
	assert.Len(t, banner["modules"], len(Modules))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]interface{}](t, rec)["report_available"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	rec := do(t, s, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestReportLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode[errorResponse](t, rec).Error)

	s.SetResult(payrollResult(t))

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[model.Report](t, rec)
	assert.Equal(t, 7, report.TotalRecords)
	assert.Equal(t, model.StatusWarning, report.Status)
	require.Len(t, report.Clusters, 2)
	assert.Equal(t, []string{"E001", "E002"}, report.Clusters[0].Members)
	assert.Equal(t, model.SeverityHigh, report.Clusters[1].Severity)
	assert.Equal(t, "E007", report.Clusters[1].Kingpin.RecordID)
}

func TestClusterEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.SetResult(payrollResult(t))

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/report/clusters/2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[model.Cluster](t, rec)
	assert.Equal(t, 2, c.ID)
	assert.Equal(t, 4, c.Size)
	assert.Equal(t, 4, c.EdgeCount)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/report/clusters/9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/report/clusters/first", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFocusedEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.SetResult(payrollResult(t))

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/records/E008/focused?depth=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[model.GraphView](t, rec)
	assert.Equal(t, "E008", view.Center)
	require.Len(t, view.Nodes, 2)
	assert.Equal(t, "E008", view.Nodes[0].ID)
	assert.Equal(t, "Arun Mehta", view.Nodes[0].Label)
	assert.Equal(t, "E007", view.Nodes[1].ID)
	assert.Equal(t, 2, view.Nodes[1].Cluster)
	require.Len(t, view.Edges, 1)
	assert.Equal(t, []string{"bank_account"}, view.Edges[0].Reasons)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/records/E008/focused", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[model.GraphView](t, rec).Nodes, 4, "default depth reaches the whole cluster")

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/records/E005/focused?min_weight=2&metadata=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[model.GraphView](t, rec)
	require.Len(t, view.Nodes, 2)
	assert.Equal(t, "PUNB0004444", view.Nodes[0].Metadata["bank_account"].Key())

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/records/NOPE/focused", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/records/E008/focused?depth=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/records/E008/focused?depth=two", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeJSONWithOptions(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{
		"records": [
			{"employee_id": "A", "mobile": "1", "bank_account": "X"},
			{"employee_id": "B", "mobile": "2", "bank_account": "X"},
			{"employee_id": "C", "mobile": "3", "bank_account": "Y"}
		],
		"options": {"centrality_algorithm": "degree", "top_suspects": 1}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[model.Report](t, rec)
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, "degree", report.Clusters[0].Kingpin.Algorithm)
	assert.Len(t, report.Clusters[0].TopSuspects, 1)
	assert.Equal(t, "betweenness", s.opts.CentralityAlgorithm, "request options must not leak into the defaults")
}

func TestAnalyzeLinkingAttributeOverride(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{
		"records": [
			{"employee_id": "A", "email": "x@example.com"},
			{"employee_id": "B", "email": "x@example.com"},
			{"employee_id": "C", "email": "c@example.com"}
		],
		"options": {"linking_attributes": ["email"]}
	}`
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[model.Report](t, rec)
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, []string{"A", "B"}, report.Clusters[0].Members)

	// The override still needs its own column.
	body = `{"records": [{"employee_id": "A", "mobile": "1", "bank_account": "X"}], "options": {"linking_attributes": ["email"]}}`
	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "invalid_input", resp.Error)
	assert.Contains(t, resp.Message, "email")
}

func TestAnalyzeBareArrayAndCSV(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze",
		strings.NewReader(`[{"employee_id": 1, "mobile": 5, "bank_account": "Z"}, {"employee_id": 2, "mobile": "5", "bank_account": "W"}]`))
	rec := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"1", "2"}, decode[model.Report](t, rec).Clusters[0].Members)

	req = httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(payrollCSV))
	req.Header.Set("Content-Type", "text/csv; charset=utf-8")
	rec = do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[model.Report](t, rec).Clusters, 2)
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		kind        string
	}{
		{"malformed json", "application/json", `{"records": [`, "invalid_input"},
		{"no records", "application/json", `{"records": []}`, "invalid_input"},
		{"unknown option", "application/json", `{"records": [], "options": {"colour": "red"}}`, "invalid_config"},
		{"bad option value", "application/json", `{"records": [{"employee_id": "A", "mobile": "1", "bank_account": "X"}], "options": {"min_cluster_size": 1}}`, "invalid_config"},
		{"duplicate ids", "application/json", `[{"employee_id": "A", "mobile": "1", "bank_account": "X"}, {"employee_id": "A", "mobile": "2", "bank_account": "Y"}]`, "invalid_input"},
		{"csv missing column", "text/csv", "employee_id,mobile\nA,1\n", "invalid_input"},
	}
	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := do(t, s, req)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decode[errorResponse](t, rec)
			assert.Equal(t, tt.kind, resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestUpload(t *testing.T) {
	s := newTestServer(t, nil)

	upload := func(filename, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/analyze/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return do(t, s, req)
	}

	rec := upload("payroll.csv", payrollCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[model.Report](t, rec)
	assert.Equal(t, 6, report.FlaggedRecords)
	assert.Equal(t, 0.0, report.IntegrityScore)

	rec = upload("payroll.xlsx", "binary")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/upload", strings.NewReader("not a form"))
	rec = do(t, s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	rec := do(t, s, req)
	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestChangesBetweenRuns(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/report/changes", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	res := payrollResult(t)
	s.SetResult(res)
	first := decode[lens.ViewDiff](t, do(t, s, httptest.NewRequest(http.MethodGet, "/api/report/changes", nil)))
	assert.True(t, first.FullGraph)
	assert.Len(t, first.AddedNodes, 6)

	s.SetResult(res)
	second := decode[lens.ViewDiff](t, do(t, s, httptest.NewRequest(http.MethodGet, "/api/report/changes", nil)))
	assert.True(t, second.Empty())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	s := newTestServer(t, reg)

	do(t, s, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/health"`)

	s = newTestServer(t, nil)
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscribeStreamsStatus(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	// Published before the client connects; replayed from the topic buffer.
	s.PublishAnalysisStatus(analysis.Status{RunID: "r1", State: "loading", Step: 1, Total: 3})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/subscribe/analysis_status", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.NotEmpty(t, data)

	var event pubsub.Event
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, pubsub.TopicAnalysisStatus, event.Topic)
	assert.Equal(t, "loading", event.Type)

	var st analysis.Status
	require.NoError(t, json.Unmarshal(event.Data, &st))
	assert.Equal(t, "r1", st.RunID)
}

func TestSubscribeUnknownTopic(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/subscribe/workspace_status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
