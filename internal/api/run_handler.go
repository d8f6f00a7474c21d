package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/orchestrator"
)

// CreateRun валидирует план и запускает его выполнение.
// POST /api/v1/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	var policy orchestrator.FailurePolicy
	if req.FailurePolicy != "" {
		var err error
		policy, err = orchestrator.ParseFailurePolicy(req.FailurePolicy)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
	}

	plan := &domain.Plan{Steps: req.Plan}
	run, err := h.service.Submit(r.Context(), plan, policy)
	if err != nil {
		InvalidPlan(w, err)
		return
	}

	Created(w, RunFromDomain(run))
}

// ListRuns возвращает список runs.
// GET /api/v1/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.List(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.service.Get(r.Context(), id)
	if HandleServiceError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(run))
}

// GetRunReport возвращает отчёт завершённого run.
// GET /api/v1/runs/{id}/report
func (h *Handler) GetRunReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.service.Get(r.Context(), id)
	if HandleServiceError(w, h.logger, err, "run not found") {
		return
	}

	if run.Report == nil {
		InvalidState(w, "run has no report yet")
		return
	}

	Success(w, ReportFromDomain(run.ID, run.Report))
}

// CancelRun отменяет выполняющийся run.
// POST /api/v1/runs/{id}/cancel
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.service.Cancel(id)
	if HandleServiceError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(run))
}
