package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
)

// Run DTOs

// CreateRunRequest — запрос на запуск плана.
//
// Plan — план в проводном формате {"plan": [...]}.
// FailurePolicy — переопределение политики на один запуск
// ("best_effort" или "fail_fast"; пусто — политика сервиса).
type CreateRunRequest struct {
	Plan          []domain.Step `json:"plan"`
	FailurePolicy string        `json:"failure_policy,omitempty"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID         uuid.UUID  `json:"id"`
	Status     string     `json:"status"`
	Steps      int        `json:"steps"`
	Outcome    string     `json:"outcome,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r *domain.Run) RunResponse {
	resp := RunResponse{
		ID:         r.ID,
		Status:     string(r.Status),
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		CreatedAt:  r.CreatedAt,
	}
	if r.Plan != nil {
		resp.Steps = r.Plan.Size()
	}
	if r.Report != nil {
		resp.Outcome = string(r.Report.Outcome)
	}
	return resp
}

// Report DTOs

// ReportResponse — отчёт о выполнении run.
type ReportResponse struct {
	RunID   uuid.UUID        `json:"run_id"`
	Outcome string           `json:"outcome"`
	Steps   []StepReportDTO  `json:"steps"`
	Summary ReportSummaryDTO `json:"summary"`
}

// StepReportDTO — итог одного шага в порядке завершения.
type StepReportDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ReportSummaryDTO — сводка по шагам отчёта.
type ReportSummaryDTO struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Blocked   int `json:"blocked"`
}

// ReportFromDomain конвертирует отчёт в ReportResponse.
func ReportFromDomain(runID uuid.UUID, report *domain.ExecutionReport) ReportResponse {
	steps := make([]StepReportDTO, len(report.Steps))
	for i, s := range report.Steps {
		steps[i] = StepReportDTO{
			ID:     s.ID,
			Status: string(s.Status),
			Result: s.Result,
			Error:  s.Error,
		}
	}
	return ReportResponse{
		RunID:   runID,
		Outcome: string(report.Outcome),
		Steps:   steps,
		Summary: ReportSummaryDTO{
			Completed: report.Completed(),
			Failed:    report.Failed(),
			Blocked:   report.Blocked(),
		},
	}
}

// Capability DTOs

// CapabilityResponse — описание одной capability.
type CapabilityResponse struct {
	Name          string `json:"name"`
	MaxConcurrent int    `json:"max_concurrent,omitempty"`
	TimeoutSec    int    `json:"timeout_sec,omitempty"`
}

// Validation DTOs

// ValidatePlanRequest — запрос на валидацию плана.
type ValidatePlanRequest struct {
	Plan []domain.Step `json:"plan"`
}

// ValidatePlanResponse — результат валидации.
type ValidatePlanResponse struct {
	Valid bool `json:"valid"`
	Steps int  `json:"steps"`
}
