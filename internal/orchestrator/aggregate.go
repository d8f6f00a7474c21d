package orchestrator

import "github.com/shaiso/Maestro/internal/domain"

// Aggregate собирает итоговый отчёт из терминального состояния выполнения.
//
// Шаги идут в порядке достижения терминального статуса (время завершения,
// не порядок объявления). Функция чистая: повторный вызов на том же
// терминальном состоянии даёт идентичный отчёт.
func Aggregate(state *RunState) *domain.ExecutionReport {
	order := state.Order()

	report := &domain.ExecutionReport{
		Steps: make([]domain.StepReport, 0, len(order)),
	}

	seen := make(map[string]bool, len(order))

	for _, stepID := range order {
		if seen[stepID] {
			continue
		}
		seen[stepID] = true

		step := state.Graph.Node(stepID).Step
		report.Steps = append(report.Steps, domain.StepReport{
			ID:     step.ID,
			Status: step.Status,
			Result: step.Result,
			Error:  step.Error,
		})
	}

	// Шаги, не попавшие в порядок завершения (не должны существовать
	// на терминальном состоянии), добавляются в конце как есть.
	for i := range state.Plan.Steps {
		step := &state.Plan.Steps[i]
		if !seen[step.ID] {
			report.Steps = append(report.Steps, domain.StepReport{
				ID:     step.ID,
				Status: step.Status,
				Result: step.Result,
				Error:  step.Error,
			})
		}
	}

	report.Outcome = deriveOutcome(report)
	return report
}

// deriveOutcome выводит общий исход из финальных статусов шагов.
func deriveOutcome(report *domain.ExecutionReport) domain.Outcome {
	completed := 0
	for i := range report.Steps {
		if report.Steps[i].Status == domain.StepStatusCompleted {
			completed++
		}
	}

	switch {
	case completed == len(report.Steps):
		return domain.OutcomeAllCompleted
	case completed > 0:
		return domain.OutcomePartialFailure
	default:
		return domain.OutcomeTotalFailure
	}
}
