package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Maestro/internal/dispatch"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/engine"
)

// Default configuration values.
const defaultMaxWorkers = 4

// FailurePolicy — глобальная политика реакции на падение шага.
type FailurePolicy string

const (
	// PolicyBestEffort — независимые ветки продолжают выполнение,
	// падение блокирует только транзитивных зависимых. По умолчанию.
	PolicyBestEffort FailurePolicy = "best_effort"

	// PolicyFailFast — первое падение отменяет всю очередь и in-flight
	// работу; уже выполняющиеся шаги дорабатывают, но их результаты
	// отбрасываются.
	PolicyFailFast FailurePolicy = "fail_fast"
)

// ParseFailurePolicy парсит строку в FailurePolicy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", string(PolicyBestEffort):
		return PolicyBestEffort, nil
	case string(PolicyFailFast):
		return PolicyFailFast, nil
	default:
		return "", fmt.Errorf("unknown failure policy: %q", s)
	}
}

// Orchestrator выполняет планы: ведёт очередь готовых шагов,
// ограниченный пул воркеров и состояние графа до терминального отчёта.
//
// Гарантии:
//   - Шаг диспетчеризуется только после COMPLETED всех его зависимостей
//   - Каждый шаг запускается не более одного раза
//   - Падение шага блокирует транзитивных зависимых, не процесс
type Orchestrator struct {
	dispatcher *dispatch.Dispatcher
	maxWorkers int
	policy     FailurePolicy
	logger     *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Dispatcher — диспетчер исполнителей capabilities.
	Dispatcher *dispatch.Dispatcher

	// MaxWorkers — размер пула воркеров (default: 4).
	MaxWorkers int

	// Policy — политика реакции на падение (default: best_effort).
	Policy FailurePolicy

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	policy := cfg.Policy
	if policy == "" {
		policy = PolicyBestEffort
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		dispatcher: cfg.Dispatcher,
		maxWorkers: maxWorkers,
		policy:     policy,
		logger:     logger,
	}
}

// stepOutcome — результат выполнения одного шага.
type stepOutcome struct {
	stepID string
	result string
	err    error
}

// Run выполняет план до терминального состояния и возвращает отчёт.
//
// Невалидный план отклоняется целиком до любого выполнения.
// Ошибки выполнения отдельных шагов в отчёте, не в error.
func (o *Orchestrator) Run(ctx context.Context, plan *domain.Plan) (*domain.ExecutionReport, error) {
	return o.RunWithPolicy(ctx, plan, o.policy)
}

// RunWithPolicy выполняет план с переопределённой политикой падения.
func (o *Orchestrator) RunWithPolicy(ctx context.Context, plan *domain.Plan, policy FailurePolicy) (*domain.ExecutionReport, error) {
	// 1. Валидация — до любого выполнения
	if err := engine.Validate(plan); err != nil {
		return nil, err
	}

	// 2. Построение графа
	graph, err := engine.BuildGraph(plan)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	// 3. Состояние выполнения
	state := NewRunState(plan, graph)

	o.logger.Info("run started",
		"steps", graph.Size(),
		"roots", len(graph.Roots),
		"policy", policy,
	)

	// runCtx отменяется при fail-fast падении или отмене вызывающего
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan stepOutcome)
	workers := make(chan struct{}, o.maxWorkers)

	inFlight := 0

	// launch ставит готовый шаг в очередь пула воркеров.
	launch := func(node *engine.Node) {
		state.MarkReady(node.ID)
		inFlight++

		go func() {
			// Место в пуле воркеров
			select {
			case workers <- struct{}{}:
			case <-runCtx.Done():
				outcomes <- stepOutcome{stepID: node.ID, err: runCtx.Err()}
				return
			}
			defer func() { <-workers }()

			state.MarkRunning(node.ID)

			// Срез контекста: ровно результаты зависимостей шага
			snapshot := state.Store.SnapshotFor(node.Step)

			result, err := o.dispatcher.Dispatch(runCtx, node.Step, snapshot)
			outcomes <- stepOutcome{stepID: node.ID, result: result, err: err}
		}()
	}

	// 4. Засеваем очередь шагами с in-degree 0
	for _, root := range graph.Roots {
		launch(root)
	}

	// 5. Цикл до опустошения: ничего не готово и ничего не выполняется
	aborted := false

	for inFlight > 0 {
		out := <-outcomes
		inFlight--

		switch {
		case out.err == nil && !aborted:
			if err := state.MarkCompleted(out.stepID, out.result); err != nil {
				// Append-once нарушен быть не может: каждый шаг запускается один раз
				return nil, fmt.Errorf("record result: %w", err)
			}

			o.logger.Debug("step completed", "step_id", out.stepID)

			for _, next := range state.ReadyDependents(out.stepID) {
				launch(next)
			}

		case out.err == nil && aborted:
			// Fail-fast: шаг доработал после отмены, результат отбрасывается
			state.MarkFailed(out.stepID, "cancelled: result discarded")
			state.BlockDependents(out.stepID)

			o.logger.Debug("step result discarded", "step_id", out.stepID)

		default:
			state.MarkFailed(out.stepID, out.err.Error())
			blocked := state.BlockDependents(out.stepID)

			o.logger.Warn("step failed",
				"step_id", out.stepID,
				"blocked", len(blocked),
				"error", out.err,
			)

			if policy == PolicyFailFast && !aborted {
				aborted = true
				cancel()
			}
		}
	}

	report := Aggregate(state)

	stats := state.Stats()
	o.logger.Info("run finished",
		"outcome", report.Outcome,
		"completed", stats.Completed,
		"failed", stats.Failed,
		"blocked", stats.Blocked,
	)

	return report, nil
}
