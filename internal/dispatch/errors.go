package dispatch

import "errors"

// Ошибки диспетчеризации.
var (
	// ErrNoExecutor — для capability не зарегистрирован исполнитель.
	ErrNoExecutor = errors.New("no executor registered for capability")

	// ErrTimeout — диспетчеризация шага не уложилась в таймаут.
	ErrTimeout = errors.New("step execution timed out")

	// ErrCancelled — выполнение шага отменено.
	ErrCancelled = errors.New("step execution cancelled")
)

// ErrorKind — класс ошибки выполнения шага.
type ErrorKind string

const (
	// KindExecutor — исполнитель вернул ошибку.
	KindExecutor ErrorKind = "executor"

	// KindTimeout — истёк таймаут шага.
	KindTimeout ErrorKind = "timeout"

	// KindCancelled — выполнение отменено (fail-fast или shutdown).
	KindCancelled ErrorKind = "cancelled"
)

// ExecutionError — ошибка выполнения одного шага.
//
// Привязана к упавшему шагу: процесс она не завершает, падение
// распространяется только на транзитивных зависимых шага.
type ExecutionError struct {
	StepID     string    // ID шага
	Capability string    // capability шага
	Kind       ErrorKind // класс ошибки
	Attempts   int       // сколько попыток сделано
	Err        error     // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ExecutionError) Error() string {
	return "step " + e.StepID + " (" + e.Capability + "): " + string(e.Kind) + ": " + e.Err.Error()
}

// Unwrap возвращает базовую ошибку.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}
