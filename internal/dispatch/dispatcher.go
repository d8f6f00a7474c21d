package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/telemetry"
)

// Executor — интерфейс исполнителя одной capability.
//
// Это единый контракт между ядром и внешними коллабораторами:
// исполнитель получает текст инструкции и срез контекста (результаты
// зависимостей шага) и возвращает текстовый результат либо ошибку.
//
// Реализации: LLMExecutor, FileExecutor, WebExecutor, RemoteExecutor.
type Executor interface {
	Execute(ctx context.Context, task string, execCtx map[string]string) (string, error)
}

// Registry — реестр исполнителей по capability.
type Registry struct {
	executors map[domain.Capability]Executor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[domain.Capability]Executor)}
}

// Register добавляет исполнителя для capability.
func (r *Registry) Register(capability domain.Capability, executor Executor) {
	r.executors[capability] = executor
}

// Get возвращает исполнителя для capability.
func (r *Registry) Get(capability domain.Capability) (Executor, error) {
	executor, ok := r.executors[capability]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoExecutor, capability)
	}
	return executor, nil
}

// Dispatcher маршрутизирует готовый шаг к исполнителю его capability.
//
// Dispatcher — слой lookup-and-forward без бизнес-логики. На его
// границе применяются:
//   - per-capability mutual-exclusion token (сериализация шагов,
//     делящих ограниченную capability, даже без зависимости между ними)
//   - таймаут одной диспетчеризации (истечение — Failed с kind timeout)
//   - retry согласно политике capability
type Dispatcher struct {
	registry *Registry
	policies map[domain.Capability]domain.CapabilityPolicy

	// tokens — семафоры для capability с MaxConcurrent > 0.
	// Захват токена — предусловие диспетчеризации, освобождение —
	// при завершении или ошибке.
	tokens map[domain.Capability]chan struct{}

	logger *slog.Logger
}

// Config — конфигурация Dispatcher.
type Config struct {
	// Registry — реестр исполнителей.
	Registry *Registry

	// Policies — политики capabilities (опционально;
	// если nil — используется domain.DefaultPolicies()).
	Policies map[domain.Capability]domain.CapabilityPolicy

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Dispatcher.
func New(cfg Config) *Dispatcher {
	policies := cfg.Policies
	if policies == nil {
		policies = domain.DefaultPolicies()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tokens := make(map[domain.Capability]chan struct{})
	for capability, policy := range policies {
		if policy.MaxConcurrent > 0 {
			tokens[capability] = make(chan struct{}, policy.MaxConcurrent)
		}
	}

	return &Dispatcher{
		registry: cfg.Registry,
		policies: policies,
		tokens:   tokens,
		logger:   logger,
	}
}

// Dispatch выполняет шаг через исполнителя его capability.
//
// execCtx — срез контекста с результатами зависимостей шага.
// Возвращает результат либо *ExecutionError.
func (d *Dispatcher) Dispatch(ctx context.Context, step *domain.Step, execCtx map[string]string) (string, error) {
	executor, err := d.registry.Get(step.Capability)
	if err != nil {
		return "", &ExecutionError{
			StepID:     step.ID,
			Capability: step.Capability.String(),
			Kind:       KindExecutor,
			Attempts:   0,
			Err:        err,
		}
	}

	// Захватываем token capability (если она ограничена)
	release, err := d.acquire(ctx, step.Capability)
	if err != nil {
		return "", &ExecutionError{
			StepID:     step.ID,
			Capability: step.Capability.String(),
			Kind:       KindCancelled,
			Attempts:   0,
			Err:        ErrCancelled,
		}
	}
	defer release()

	policy := d.policies[step.Capability]
	return d.executeWithRetry(ctx, executor, step, execCtx, policy)
}

// acquire захватывает token capability. Возвращает функцию освобождения.
func (d *Dispatcher) acquire(ctx context.Context, capability domain.Capability) (func(), error) {
	token, limited := d.tokens[capability]
	if !limited {
		return func() {}, nil
	}

	select {
	case token <- struct{}{}:
		return func() { <-token }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// executeWithRetry выполняет шаг с retry согласно политике capability.
func (d *Dispatcher) executeWithRetry(ctx context.Context, executor Executor, step *domain.Step, execCtx map[string]string, policy domain.CapabilityPolicy) (string, error) {
	maxAttempts := 1
	if policy.Retry != nil && policy.Retry.MaxAttempts > 0 {
		maxAttempts = policy.Retry.MaxAttempts
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := d.executeOnce(ctx, executor, step, execCtx, policy)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Отмена и таймаут родительского контекста не ретраятся
		if ctx.Err() != nil {
			return "", &ExecutionError{
				StepID:     step.ID,
				Capability: step.Capability.String(),
				Kind:       KindCancelled,
				Attempts:   attempt,
				Err:        ErrCancelled,
			}
		}

		if attempt == maxAttempts {
			break
		}

		delay := calculateBackoff(attempt, policy.Retry)

		telemetry.WithStepID(d.logger, step.ID).Debug("retrying step",
			"capability", step.Capability,
			"attempt", attempt,
			"delay", delay,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", &ExecutionError{
				StepID:     step.ID,
				Capability: step.Capability.String(),
				Kind:       KindCancelled,
				Attempts:   attempt,
				Err:        ErrCancelled,
			}
		}
	}

	kind := KindExecutor
	if errors.Is(lastErr, ErrTimeout) {
		kind = KindTimeout
	}

	return "", &ExecutionError{
		StepID:     step.ID,
		Capability: step.Capability.String(),
		Kind:       kind,
		Attempts:   maxAttempts,
		Err:        lastErr,
	}
}

// executeOnce выполняет одну попытку с таймаутом capability.
//
// Исполнитель запускается в отдельной горутине: при истечении таймаута
// Dispatch возвращается сразу, а опоздавший результат отбрасывается.
func (d *Dispatcher) executeOnce(ctx context.Context, executor Executor, step *domain.Step, execCtx map[string]string, policy domain.CapabilityPolicy) (string, error) {
	attemptCtx := ctx
	if policy.TimeoutSec > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(policy.TimeoutSec)*time.Second)
		defer cancel()
	}

	type outcome struct {
		result string
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		result, err := executor.Execute(attemptCtx, step.Task, execCtx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				return "", fmt.Errorf("%w after %ds", ErrTimeout, policy.TimeoutSec)
			}
			return "", out.err
		}
		return out.result, nil

	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w after %ds", ErrTimeout, policy.TimeoutSec)
		}
		return "", attemptCtx.Err()
	}
}

// calculateBackoff вычисляет задержку перед retry.
func calculateBackoff(attempt int, policy *domain.RetryPolicy) time.Duration {
	if policy == nil {
		return time.Second
	}

	initialDelay := time.Duration(policy.InitialDelayMs) * time.Millisecond
	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	maxDelay := time.Duration(policy.MaxDelayMs) * time.Millisecond
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	var delay time.Duration
	switch policy.Backoff {
	case "exponential":
		// delay = initialDelay * 2^(attempt-1)
		delay = initialDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
				break
			}
		}
	default:
		// "fixed" или неизвестный — используем initialDelay
		delay = initialDelay
	}

	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
