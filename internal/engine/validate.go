package engine

import (
	"fmt"

	"github.com/shaiso/Maestro/internal/domain"
)

// Validate выполняет полную структурную валидацию плана.
//
// Проверки, по порядку:
//   - Наличие шагов
//   - Непустые и уникальные ID шагов
//   - Валидность зависимостей (need ссылается на объявленный шаг)
//   - Корректность capability
//   - Отсутствие циклов (DFS с пометками Visiting/Visited)
//
// Валидация выполняется один раз, до любого выполнения. Невалидный
// план отклоняется целиком — частичное планирование не допускается.
func Validate(plan *domain.Plan) error {
	if plan == nil || len(plan.Steps) == 0 {
		return ErrEmptyPlan
	}

	// Собираем ID шагов, попутно проверяя уникальность
	stepIDs := make(map[string]bool, len(plan.Steps))

	for i := range plan.Steps {
		step := &plan.Steps[i]

		if step.ID == "" {
			return NewValidationError("", "id", "step has empty ID", ErrEmptyStepID)
		}

		if stepIDs[step.ID] {
			return NewValidationError(step.ID, "id",
				fmt.Sprintf("duplicate step ID: %s", step.ID), ErrDuplicateStepID)
		}
		stepIDs[step.ID] = true
	}

	// Проверяем зависимости и capability
	for i := range plan.Steps {
		step := &plan.Steps[i]

		for _, dep := range step.Need {
			if dep == step.ID {
				return NewValidationError(step.ID, "need",
					"step depends on itself", ErrSelfDependency)
			}
			if !stepIDs[dep] {
				return NewValidationError(step.ID, "need",
					fmt.Sprintf("depends on unknown step: %s", dep), ErrMissingDependency)
			}
		}

		if !step.Capability.IsValid() {
			return NewValidationError(step.ID, "agent",
				fmt.Sprintf("unknown capability: %s", step.Capability), ErrUnknownCapability)
		}
	}

	// Проверяем отсутствие циклов
	return detectCycle(plan)
}

// Цвета вершин для обхода в глубину.
const (
	colorWhite = iota // не посещена
	colorGray         // в текущем пути обхода (Visiting)
	colorBlack        // обход завершён (Visited)
)

// detectCycle ищет цикл обходом в глубину.
// Первое найденное back-ребро репортится с ID шагов цикла.
func detectCycle(plan *domain.Plan) error {
	colors := make(map[string]int, len(plan.Steps))
	needs := make(map[string][]string, len(plan.Steps))

	for i := range plan.Steps {
		needs[plan.Steps[i].ID] = plan.Steps[i].Need
	}

	// path — текущий путь обхода, для восстановления цикла
	var path []string

	var visit func(id string) *CycleError
	visit = func(id string) *CycleError {
		colors[id] = colorGray
		path = append(path, id)

		for _, dep := range needs[id] {
			switch colors[dep] {
			case colorGray:
				// Back-ребро: цикл от dep до текущего шага
				return extractCycle(path, dep)
			case colorWhite:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		colors[id] = colorBlack
		return nil
	}

	for i := range plan.Steps {
		id := plan.Steps[i].ID
		if colors[id] == colorWhite {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}

// extractCycle вырезает из пути обхода участок, образующий цикл.
func extractCycle(path []string, from string) *CycleError {
	for i, id := range path {
		if id == from {
			cycle := make([]string, len(path)-i)
			copy(cycle, path[i:])
			return &CycleError{Steps: cycle}
		}
	}
	// from всегда в path при back-ребре; на всякий случай весь путь
	return &CycleError{Steps: path}
}
