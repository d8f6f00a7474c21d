package domain

import "encoding/json"

// Plan — набор шагов, поданный на выполнение.
//
// Plan создаётся снаружи (планировщиком или вручную) и после старта
// выполнения неизменяем — мутируют только Status/Result/Error шагов.
//
// Wire-формат:
//
//	{"plan": [{"id": "1", "agent": "Web", "need": [], "task": "..."}]}
type Plan struct {
	// Steps — упорядоченный список шагов.
	Steps []Step `json:"plan"`
}

// Step — одна единица работы, привязанная к capability.
type Step struct {
	// ID — уникальный идентификатор шага в рамках плана.
	// Используется в need и для ссылок на результаты.
	ID string `json:"id"`

	// Capability — тип исполнителя, которому адресован шаг.
	Capability Capability `json:"agent"`

	// Need — список ID шагов, от которых зависит этот шаг.
	// Шаг начнёт выполнение только после успешного завершения всех зависимостей.
	Need []string `json:"need"`

	// Task — текстовая инструкция для исполнителя.
	Task string `json:"task"`

	// Status — текущий статус шага. Мутируется только планировщиком.
	Status StepStatus `json:"status,omitempty"`

	// Result — результат выполнения. Заполнен только при COMPLETED.
	Result string `json:"result,omitempty"`

	// Error — текст ошибки. Заполнен только при FAILED.
	Error string `json:"error,omitempty"`
}

// ParsePlan разбирает план из wire-формата.
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Size возвращает количество шагов в плане.
func (p *Plan) Size() int {
	return len(p.Steps)
}

// Clone возвращает глубокую копию плана. Мутации шагов копии
// (Status/Result/Error при выполнении) не видны оригиналу.
func (p *Plan) Clone() *Plan {
	steps := make([]Step, len(p.Steps))
	copy(steps, p.Steps)
	for i := range steps {
		if steps[i].Need != nil {
			need := make([]string, len(steps[i].Need))
			copy(need, steps[i].Need)
			steps[i].Need = need
		}
	}
	return &Plan{Steps: steps}
}

// Step возвращает шаг по ID (nil, если не найден).
func (p *Plan) Step(id string) *Step {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// StepStatus — статус выполнения шага.
//
// Жизненный цикл:
//
//	PENDING → READY → RUNNING → COMPLETED
//	                          ↘ FAILED
//	PENDING → BLOCKED (зависимость упала — шаг никогда не запустится)
type StepStatus string

const (
	// StepStatusPending — шаг ожидает выполнения зависимостей.
	StepStatusPending StepStatus = "PENDING"

	// StepStatusReady — все зависимости завершены, шаг готов к диспетчеризации.
	StepStatusReady StepStatus = "READY"

	// StepStatusRunning — шаг выполняется исполнителем.
	StepStatusRunning StepStatus = "RUNNING"

	// StepStatusCompleted — шаг успешно завершён, Result заполнен.
	StepStatusCompleted StepStatus = "COMPLETED"

	// StepStatusFailed — шаг завершился с ошибкой (после всех retry).
	StepStatusFailed StepStatus = "FAILED"

	// StepStatusBlocked — транзитивная зависимость упала, шаг не будет запущен.
	StepStatusBlocked StepStatus = "BLOCKED"
)

// IsTerminal возвращает true, если статус финальный.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepStatusCompleted, StepStatusFailed, StepStatusBlocked:
		return true
	default:
		return false
	}
}
