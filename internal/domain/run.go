package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//	          (или) → CANCELLED (из PENDING или RUNNING)
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — все шаги плана завершились успешно.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — хотя бы один шаг упал или заблокирован.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusCancelled — run отменён пользователем.
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// Run — одно выполнение плана на уровне сервиса.
//
// Run живёт в памяти, пока план выполняется; после завершения итоговый
// отчёт уходит в архив. Run не используется для возобновления плана
// после рестарта процесса.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Status — текущий статус run.
	Status RunStatus `json:"status"`

	// Plan — план, поданный на выполнение.
	Plan *Plan `json:"plan,omitempty"`

	// Report — итоговый отчёт. Заполнен только в терминальном статусе.
	Report *ExecutionReport `json:"report,omitempty"`

	// Error — текст ошибки уровня run (например, ошибка валидации).
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт новый run для плана.
func NewRun(plan *Plan) *Run {
	return &Run{
		ID:        uuid.New(),
		Status:    RunStatusPending,
		Plan:      plan,
		CreatedAt: time.Now(),
	}
}

// Snapshot возвращает глубокую копию run. Копия не делит мутируемое
// состояние с оригиналом и безопасна для чтения без синхронизации.
func (r *Run) Snapshot() *Run {
	snap := *r
	if r.Plan != nil {
		snap.Plan = r.Plan.Clone()
	}
	if r.Report != nil {
		report := *r.Report
		report.Steps = make([]StepReport, len(r.Report.Steps))
		copy(report.Steps, r.Report.Steps)
		snap.Report = &report
	}
	if r.StartedAt != nil {
		startedAt := *r.StartedAt
		snap.StartedAt = &startedAt
	}
	if r.FinishedAt != nil {
		finishedAt := *r.FinishedAt
		snap.FinishedAt = &finishedAt
	}
	return &snap
}

// Duration возвращает продолжительность выполнения.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkFinished переводит run в терминальный статус по итогам отчёта.
func (r *Run) MarkFinished(report *ExecutionReport) {
	now := time.Now()
	r.FinishedAt = &now
	r.Report = report

	if report.Outcome == OutcomeAllCompleted {
		r.Status = RunStatusSucceeded
	} else {
		r.Status = RunStatusFailed
	}
}

// MarkFailed переводит run в FAILED с ошибкой уровня run.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}

// MarkCancelled переводит run в CANCELLED.
func (r *Run) MarkCancelled() {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
}
