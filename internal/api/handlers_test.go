package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/citegap/citegap/internal/api"
	"github.com/citegap/citegap/internal/database"
	"github.com/citegap/citegap/internal/domain"
	"github.com/citegap/citegap/internal/generator"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/orchestrator"
	"github.com/citegap/citegap/internal/platform"
	"github.com/citegap/citegap/internal/prober"
	"github.com/gin-gonic/gin"
)

const testSecret = "scheduler-secret"

type mockRunner struct {
	report *orchestrator.Report
	err    error
	runs   int
}

func (m *mockRunner) Run(_ context.Context) (*orchestrator.Report, error) {
	m.runs++
	return m.report, m.err
}

type mockProber struct {
	citations []domain.Citation
	err       error
}

func (m *mockProber) ProbeAll(_ context.Context, _ []string, _ []platform.Adapter, _ prober.Options) ([]domain.Citation, error) {
	return m.citations, m.err
}

type mockAnalyzer struct {
	gaps       []domain.ContentGap
	windowDays int
}

func (m *mockAnalyzer) Analyze(_ context.Context, windowDays int) ([]domain.ContentGap, error) {
	m.windowDays = windowDays
	return m.gaps, nil
}

type mockGapStore struct {
	gaps       []domain.ContentGap
	byID       map[int64]*domain.ContentGap
	filter     database.GapFilter
	upsertErrs map[string]error
}

func (m *mockGapStore) UpsertBatch(_ context.Context, gaps []domain.ContentGap) (int, []error) {
	upserted := 0
	var errs []error
	for i := range gaps {
		if upsertErr := m.upsertErrs[gaps[i].Query]; upsertErr != nil {
			errs = append(errs, upsertErr)
			continue
		}
		gaps[i].ID = int64(100 + i)
		upserted++
	}
	return upserted, errs
}

func (m *mockGapStore) GetByID(_ context.Context, id int64) (*domain.ContentGap, error) {
	gap, ok := m.byID[id]
	if !ok {
		return nil, database.ErrGapNotFound
	}
	return gap, nil
}

func (m *mockGapStore) List(_ context.Context, filter database.GapFilter) ([]domain.ContentGap, error) {
	m.filter = filter
	return m.gaps, nil
}

type mockGenerator struct {
	result   *generator.Result
	err      error
	requests []generator.Request
}

func (m *mockGenerator) Generate(_ context.Context, req generator.Request) (*generator.Result, error) {
	m.requests = append(m.requests, req)
	return m.result, m.err
}

type mockContentLister struct {
	content []domain.GeneratedContent
	filter  database.ContentFilter
}

func (m *mockContentLister) List(_ context.Context, filter database.ContentFilter) ([]domain.GeneratedContent, error) {
	m.filter = filter
	return m.content, nil
}

type testDeps struct {
	runner    *mockRunner
	prober    *mockProber
	analyzer  *mockAnalyzer
	gaps      *mockGapStore
	generator *mockGenerator
	content   *mockContentLister
}

func setupRouter(t *testing.T) (*gin.Engine, *testDeps) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	deps := &testDeps{
		runner:    &mockRunner{report: &orchestrator.Report{Success: true}},
		prober:    &mockProber{},
		analyzer:  &mockAnalyzer{},
		gaps:      &mockGapStore{byID: map[int64]*domain.ContentGap{}},
		generator: &mockGenerator{result: &generator.Result{Content: &domain.GeneratedContent{Slug: "s"}}},
		content:   &mockContentLister{},
	}

	router := gin.New()
	api.SetupRoutes(router,
		api.NewPipelineHandler(deps.runner, logger.NewNop()),
		api.NewProbeHandler(deps.prober, []platform.Adapter{stubAdapter{}}),
		api.NewGapHandler(deps.analyzer, deps.gaps, deps.generator, 7),
		api.NewContentHandler(deps.content),
		testSecret,
	)

	return router, deps
}

type stubAdapter struct{}

func (stubAdapter) Name() string { return "openai" }

func (stubAdapter) Ask(_ context.Context, _ string) (string, error) { return "", nil }

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		bodyJSON, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			t.Fatalf("failed to marshal body: %v", marshalErr)
		}
		reader = bytes.NewBuffer(bodyJSON)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, reqErr := http.NewRequestWithContext(context.Background(), method, path, reader)
	if reqErr != nil {
		t.Fatalf("failed to create request: %v", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func bearer() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testSecret}
}

func TestAuth_MissingCredentials(t *testing.T) {
	router, deps := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/pipeline/run", nil, nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if deps.runner.runs != 0 {
		t.Error("pipeline ran despite failed auth")
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	router, deps := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/pipeline/run", nil,
		map[string]string{"Authorization": "Bearer nope"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if deps.runner.runs != 0 {
		t.Error("pipeline ran despite failed auth")
	}
}

func TestAuth_CronSecretHeader(t *testing.T) {
	router, deps := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/pipeline/run", nil,
		map[string]string{"X-Cron-Secret": testSecret})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if deps.runner.runs != 1 {
		t.Errorf("runs = %d, want 1", deps.runner.runs)
	}
}

func TestPipelineHandler_TriggerRun(t *testing.T) {
	router, deps := setupRouter(t)
	deps.runner.report = &orchestrator.Report{
		Success:    true,
		DurationMS: 1200,
		Log:        []string{"recovery: reset 0 generating gaps"},
	}

	w := doRequest(t, router, http.MethodPost, "/api/v1/pipeline/run", nil, bearer())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var report orchestrator.Report
	if decodeErr := json.Unmarshal(w.Body.Bytes(), &report); decodeErr != nil {
		t.Fatalf("failed to decode report: %v", decodeErr)
	}
	if !report.Success {
		t.Error("report.Success = false, want true")
	}
}

func TestPipelineHandler_TriggerRun_Failure(t *testing.T) {
	router, deps := setupRouter(t)
	deps.runner.report = &orchestrator.Report{Success: false}
	deps.runner.err = errors.New("recovery sweep: db down")

	w := doRequest(t, router, http.MethodPost, "/api/v1/pipeline/run", nil, bearer())

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestProbeHandler_RequiresQueries(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/probe",
		map[string]any{"queries": []string{}}, bearer())

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestProbeHandler_ReturnsCitations(t *testing.T) {
	router, deps := setupRouter(t)
	deps.prober.citations = []domain.Citation{
		{Platform: "openai", Query: "q1", ProductMentioned: true},
	}

	w := doRequest(t, router, http.MethodPost, "/api/v1/probe",
		map[string]any{"queries": []string{"q1"}, "test_mode": true}, bearer())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var response struct {
		Count    int  `json:"count"`
		TestMode bool `json:"test_mode"`
	}
	if decodeErr := json.Unmarshal(w.Body.Bytes(), &response); decodeErr != nil {
		t.Fatalf("failed to decode response: %v", decodeErr)
	}
	if response.Count != 1 || !response.TestMode {
		t.Errorf("response = %+v, want count 1, test_mode true", response)
	}
}

func TestGapHandler_Analyze_DefaultWindow(t *testing.T) {
	router, deps := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/analyze", map[string]any{}, bearer())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	if deps.analyzer.windowDays != 7 {
		t.Errorf("windowDays = %d, want default 7", deps.analyzer.windowDays)
	}
}

func TestGapHandler_Analyze_GenerateTopLinksGapID(t *testing.T) {
	router, deps := setupRouter(t)
	deps.analyzer.gaps = []domain.ContentGap{
		{Query: "best tool for x", Priority: 9},
		{Query: "how to do y", Priority: 7},
	}

	w := doRequest(t, router, http.MethodPost, "/api/v1/analyze",
		map[string]any{"generate_top": 2}, bearer())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	if len(deps.generator.requests) != 2 {
		t.Fatalf("generations = %d, want 2", len(deps.generator.requests))
	}
	for i, req := range deps.generator.requests {
		if req.GapID == nil {
			t.Fatalf("request %d carries no gap id", i)
		}
		if *req.GapID != int64(100+i) {
			t.Errorf("request %d gap id = %d, want %d", i, *req.GapID, 100+i)
		}
	}
}

func TestGapHandler_Analyze_GenerateTopSkipsFailedUpsert(t *testing.T) {
	router, deps := setupRouter(t)
	deps.analyzer.gaps = []domain.ContentGap{
		{Query: "best tool for x", Priority: 9},
		{Query: "how to do y", Priority: 7},
	}
	deps.gaps.upsertErrs = map[string]error{"best tool for x": errors.New("insert gap: db down")}

	w := doRequest(t, router, http.MethodPost, "/api/v1/analyze",
		map[string]any{"generate_top": 2}, bearer())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	if len(deps.generator.requests) != 1 {
		t.Fatalf("generations = %d, want 1", len(deps.generator.requests))
	}
	if deps.generator.requests[0].Query != "how to do y" {
		t.Errorf("generated query = %q, want the stored gap", deps.generator.requests[0].Query)
	}
}

func TestGapHandler_GenerateForGap_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/gaps/42/generate", nil, bearer())

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGapHandler_GenerateForGap_Success(t *testing.T) {
	router, deps := setupRouter(t)
	deps.gaps.byID[42] = &domain.ContentGap{ID: 42, Query: "q", Status: domain.GapIdentified}
	deps.generator.result = &generator.Result{
		Content:   &domain.GeneratedContent{Slug: "q-article"},
		Published: true,
	}

	w := doRequest(t, router, http.MethodPost, "/api/v1/gaps/42/generate", nil, bearer())

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
}

func TestGapHandler_GenerateForGap_InvalidID(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/gaps/abc/generate", nil, bearer())

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGapHandler_ListGaps_Filters(t *testing.T) {
	router, deps := setupRouter(t)

	w := doRequest(t, router, http.MethodGet,
		"/api/v1/gaps?status=identified&min_priority=6&limit=5", nil, bearer())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	filter := deps.gaps.filter
	if filter.Status != domain.GapIdentified || filter.MinPriority != 6 || filter.Limit != 5 {
		t.Errorf("filter = %+v, want identified/6/5", filter)
	}
}

func TestGapHandler_ListGaps_InvalidStatus(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/gaps?status=bogus", nil, bearer())

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestContentHandler_ListContent_PublishedFilter(t *testing.T) {
	router, deps := setupRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/content?published=true", nil, bearer())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	if deps.content.filter.Published == nil || !*deps.content.filter.Published {
		t.Errorf("filter.Published = %v, want true", deps.content.filter.Published)
	}
}
