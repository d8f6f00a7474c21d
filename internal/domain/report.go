package domain

// Outcome — итоговый исход выполнения плана.
type Outcome string

const (
	// OutcomeAllCompleted — все шаги завершились успешно.
	OutcomeAllCompleted Outcome = "ALL_COMPLETED"

	// OutcomePartialFailure — часть шагов упала или заблокирована,
	// но хотя бы один завершился успешно.
	OutcomePartialFailure Outcome = "PARTIAL_FAILURE"

	// OutcomeTotalFailure — ни один шаг не завершился успешно.
	OutcomeTotalFailure Outcome = "TOTAL_FAILURE"
)

// ExecutionReport — итоговый отчёт о выполнении плана.
//
// Steps упорядочены по времени завершения, а не по порядку объявления
// в плане. Шаги, которые не запускались (BLOCKED), идут в конце.
type ExecutionReport struct {
	// Outcome — общий исход выполнения.
	Outcome Outcome `json:"outcome"`

	// Steps — финальные состояния шагов в порядке завершения.
	Steps []StepReport `json:"steps"`
}

// StepReport — финальное состояние одного шага в отчёте.
type StepReport struct {
	// ID — идентификатор шага.
	ID string `json:"id"`

	// Status — финальный статус: COMPLETED, FAILED или BLOCKED.
	Status StepStatus `json:"status"`

	// Result — результат выполнения (только при COMPLETED).
	Result string `json:"result,omitempty"`

	// Error — текст ошибки (только при FAILED).
	Error string `json:"error,omitempty"`
}

// Completed возвращает количество успешно завершённых шагов.
func (r *ExecutionReport) Completed() int {
	n := 0
	for i := range r.Steps {
		if r.Steps[i].Status == StepStatusCompleted {
			n++
		}
	}
	return n
}

// Failed возвращает количество упавших шагов.
func (r *ExecutionReport) Failed() int {
	n := 0
	for i := range r.Steps {
		if r.Steps[i].Status == StepStatusFailed {
			n++
		}
	}
	return n
}

// Blocked возвращает количество заблокированных шагов.
func (r *ExecutionReport) Blocked() int {
	n := 0
	for i := range r.Steps {
		if r.Steps[i].Status == StepStatusBlocked {
			n++
		}
	}
	return n
}
