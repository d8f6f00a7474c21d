package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Maestro/internal/dispatch"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/orchestrator"
)

// echoExecutor возвращает текст задачи как результат.
type echoExecutor struct{}

func (echoExecutor) Execute(ctx context.Context, task string, execCtx map[string]string) (string, error) {
	return "done: " + task, nil
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	registry := dispatch.NewRegistry()
	for _, capability := range domain.Capabilities {
		registry.Register(capability, echoExecutor{})
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dispatcher := dispatch.New(dispatch.Config{
		Registry: registry,
		Logger:   logger,
	})
	orch := orchestrator.New(orchestrator.Config{
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	service := orchestrator.NewService(orchestrator.ServiceConfig{
		Orchestrator: orch,
		Logger:       logger,
	})

	handler := NewHandler(Config{Service: service, Logger: logger})
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}

func decodeData(t *testing.T, body []byte, out any) {
	t.Helper()
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(wrapper.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestCreateRun_ExecutesPlan(t *testing.T) {
	mux := newTestMux(t)

	body := `{"plan":[
		{"id":"1","agent":"Web","need":[],"task":"search"},
		{"id":"2","agent":"Casual","need":["1"],"task":"summarize"}
	]}`

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/runs", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created RunResponse
	decodeData(t, rec.Body.Bytes(), &created)
	if created.Steps != 2 {
		t.Errorf("steps = %d, want 2", created.Steps)
	}

	// Дожидаемся завершения run и проверяем отчёт.
	deadline := time.Now().Add(5 * time.Second)
	var report ReportResponse
	for {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/runs/"+created.ID.String()+"/report", nil))
		if rec.Code == http.StatusOK {
			decodeData(t, rec.Body.Bytes(), &report)
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("report not ready, last status = %d", rec.Code)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if report.Outcome != string(domain.OutcomeAllCompleted) {
		t.Errorf("outcome = %q, want %q", report.Outcome, domain.OutcomeAllCompleted)
	}
	if len(report.Steps) != 2 {
		t.Fatalf("report has %d steps, want 2", len(report.Steps))
	}
	if report.Steps[0].ID != "1" || report.Steps[1].ID != "2" {
		t.Errorf("completion order = %s, %s", report.Steps[0].ID, report.Steps[1].ID)
	}
}

func TestCreateRun_CyclicPlanRejected(t *testing.T) {
	mux := newTestMux(t)

	body := `{"plan":[
		{"id":"1","agent":"Web","need":["2"],"task":"a"},
		{"id":"2","agent":"Casual","need":["1"],"task":"b"}
	]}`

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/runs", strings.NewReader(body)))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Error.Code != ErrCodeInvalidPlan {
		t.Errorf("code = %q, want %q", resp.Error.Code, ErrCodeInvalidPlan)
	}
	if len(resp.Error.CycleSteps) != 2 {
		t.Errorf("cycle_steps = %v, want both cycle steps", resp.Error.CycleSteps)
	}
}

func TestCreateRun_BadPolicy(t *testing.T) {
	mux := newTestMux(t)

	body := `{"plan":[{"id":"1","agent":"Web","need":[],"task":"a"}],"failure_policy":"never"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/runs", strings.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestValidatePlan(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/plans/validate",
		strings.NewReader(`{"plan":[{"id":"1","agent":"File","need":[],"task":"x"}]}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ValidatePlanResponse
	decodeData(t, rec.Body.Bytes(), &resp)
	if !resp.Valid || resp.Steps != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestValidatePlan_UnknownCapability(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/plans/validate",
		strings.NewReader(`{"plan":[{"id":"1","agent":"Quantum","need":[],"task":"x"}]}`)))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/runs/00000000-0000-0000-0000-000000000001", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetRun_BadID(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/runs/not-a-uuid", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListCapabilities(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/capabilities", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != len(domain.Capabilities) {
		t.Errorf("total = %d, want %d", resp.Total, len(domain.Capabilities))
	}
}

func TestListCapabilities_UsesConfiguredPolicies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	policies := domain.DefaultPolicies()
	web := policies[domain.CapabilityWeb]
	web.MaxConcurrent = 3
	web.TimeoutSec = 90
	policies[domain.CapabilityWeb] = web

	handler := NewHandler(Config{Policies: policies, Logger: logger})
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/capabilities", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var caps []CapabilityResponse
	decodeData(t, rec.Body.Bytes(), &caps)

	found := false
	for _, c := range caps {
		if c.Name != domain.CapabilityWeb.String() {
			continue
		}
		found = true
		if c.MaxConcurrent != 3 || c.TimeoutSec != 90 {
			t.Errorf("web policy = %+v, want max_concurrent 3, timeout_sec 90", c)
		}
	}
	if !found {
		t.Error("web capability missing from response")
	}
}
