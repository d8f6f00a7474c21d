package engine

import (
	"errors"
	"strings"
)

// Ошибки валидации плана.
var (
	// ErrEmptyPlan — план не содержит шагов.
	ErrEmptyPlan = errors.New("plan has no steps")

	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = errors.New("step has empty ID")

	// ErrDuplicateStepID — несколько шагов с одинаковым ID.
	ErrDuplicateStepID = errors.New("duplicate step ID")

	// ErrUnknownCapability — неизвестная capability.
	ErrUnknownCapability = errors.New("unknown capability")

	// ErrMissingDependency — шаг зависит от несуществующего шага.
	ErrMissingDependency = errors.New("step depends on unknown step")

	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrSelfDependency — шаг зависит от самого себя.
	ErrSelfDependency = errors.New("step depends on itself")
)

// Ошибки хранилища контекста.
var (
	// ErrResultExists — результат для шага уже записан.
	// Результаты append-once: повторная запись запрещена.
	ErrResultExists = errors.New("result already recorded for step")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	StepID  string // ID шага, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StepID != "" {
		return "step " + e.StepID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stepID, field, message string, err error) *ValidationError {
	return &ValidationError{
		StepID:  stepID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// CycleError — ошибка цикла с перечислением участвующих шагов.
type CycleError struct {
	// Steps — ID шагов, образующих цикл, в порядке обхода.
	Steps []string
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	return "cyclic dependency detected: " + strings.Join(e.Steps, " -> ")
}

// Unwrap возвращает базовую ошибку ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}
