package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Maestro/internal/dispatch"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/engine"
)

// recordingExecutor — исполнитель для тестов: запоминает порядок
// завершения шагов и переданные срезы контекста.
type recordingExecutor struct {
	mu       sync.Mutex
	finished []string
	contexts map[string]map[string]string

	// fail — шаги, которые должны упасть.
	fail map[string]bool

	// delay — искусственная задержка выполнения per-step.
	delay map[string]time.Duration

	calls int32
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{
		contexts: make(map[string]map[string]string),
		fail:     make(map[string]bool),
		delay:    make(map[string]time.Duration),
	}
}

func (e *recordingExecutor) Execute(ctx context.Context, task string, execCtx map[string]string) (string, error) {
	atomic.AddInt32(&e.calls, 1)

	// task в тестах — это ID шага
	e.mu.Lock()
	e.contexts[task] = execCtx
	d := e.delay[task]
	shouldFail := e.fail[task]
	e.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if shouldFail {
		return "", fmt.Errorf("step %s exploded", task)
	}

	e.mu.Lock()
	e.finished = append(e.finished, task)
	e.mu.Unlock()

	return "result of " + task, nil
}

func (e *recordingExecutor) finishedBefore(a, b string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ia, ib := -1, -1
	for i, id := range e.finished {
		if id == a {
			ia = i
		}
		if id == b {
			ib = i
		}
	}
	return ia >= 0 && ib >= 0 && ia < ib
}

func newTestOrchestrator(executor dispatch.Executor, policy FailurePolicy) *Orchestrator {
	registry := dispatch.NewRegistry()
	for _, capability := range domain.Capabilities {
		registry.Register(capability, executor)
	}

	return New(Config{
		Dispatcher: dispatch.New(dispatch.Config{Registry: registry}),
		Policy:     policy,
	})
}

// scenarioPlan — план из пяти шагов: 1 → {2,3} → 4 → 5.
func scenarioPlan() *domain.Plan {
	return &domain.Plan{
		Steps: []domain.Step{
			{ID: "1", Capability: domain.CapabilityWeb, Task: "1"},
			{ID: "2", Capability: domain.CapabilityWeb, Task: "2", Need: []string{"1"}},
			{ID: "3", Capability: domain.CapabilityFile, Task: "3", Need: []string{"1"}},
			{ID: "4", Capability: domain.CapabilityCoder, Task: "4", Need: []string{"2", "3"}},
			{ID: "5", Capability: domain.CapabilityCasual, Task: "5", Need: []string{"1", "2", "3", "4"}},
		},
	}
}

func TestRun_DependencyOrder(t *testing.T) {
	executor := newRecordingExecutor()
	o := newTestOrchestrator(executor, PolicyBestEffort)

	report, err := o.Run(context.Background(), scenarioPlan())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Outcome != domain.OutcomeAllCompleted {
		t.Errorf("expected ALL_COMPLETED, got %s", report.Outcome)
	}
	if len(report.Steps) != 5 {
		t.Fatalf("expected 5 steps in report, got %d", len(report.Steps))
	}

	// 1 раньше {2,3}, {2,3} раньше 4, 4 раньше 5
	for _, pair := range [][2]string{{"1", "2"}, {"1", "3"}, {"2", "4"}, {"3", "4"}, {"4", "5"}} {
		if !executor.finishedBefore(pair[0], pair[1]) {
			t.Errorf("step %s should finish before %s, order: %v", pair[0], pair[1], executor.finished)
		}
	}
}

func TestRun_CyclicPlanNeverExecutes(t *testing.T) {
	executor := newRecordingExecutor()
	o := newTestOrchestrator(executor, PolicyBestEffort)

	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "1", Capability: domain.CapabilityWeb, Task: "1", Need: []string{"2"}},
			{ID: "2", Capability: domain.CapabilityWeb, Task: "2", Need: []string{"1"}},
		},
	}

	report, err := o.Run(context.Background(), plan)
	if !errors.Is(err, engine.ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
	if report != nil {
		t.Error("report should be nil for invalid plan")
	}

	// Никакого выполнения для невалидного плана
	if atomic.LoadInt32(&executor.calls) != 0 {
		t.Errorf("executor should never be called, got %d calls", executor.calls)
	}
}

func TestRun_FailurePropagation(t *testing.T) {
	executor := newRecordingExecutor()
	executor.fail["2"] = true
	o := newTestOrchestrator(executor, PolicyBestEffort)

	report, err := o.Run(context.Background(), scenarioPlan())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Outcome != domain.OutcomePartialFailure {
		t.Errorf("expected PARTIAL_FAILURE, got %s", report.Outcome)
	}

	statuses := make(map[string]domain.StepStatus)
	for _, s := range report.Steps {
		statuses[s.ID] = s.Status
	}

	// Независимая ветка доработала
	if statuses["1"] != domain.StepStatusCompleted {
		t.Errorf("step 1 should be COMPLETED, got %s", statuses["1"])
	}
	if statuses["3"] != domain.StepStatusCompleted {
		t.Errorf("step 3 should be COMPLETED, got %s", statuses["3"])
	}

	// Упавший шаг и транзитивные зависимые
	if statuses["2"] != domain.StepStatusFailed {
		t.Errorf("step 2 should be FAILED, got %s", statuses["2"])
	}
	if statuses["4"] != domain.StepStatusBlocked {
		t.Errorf("step 4 should be BLOCKED, got %s", statuses["4"])
	}
	if statuses["5"] != domain.StepStatusBlocked {
		t.Errorf("step 5 should be BLOCKED, got %s", statuses["5"])
	}
}

func TestRun_BlockedStepsNeverDispatched(t *testing.T) {
	executor := newRecordingExecutor()
	executor.fail["2"] = true
	o := newTestOrchestrator(executor, PolicyBestEffort)

	if _, err := o.Run(context.Background(), scenarioPlan()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Шаги 4 и 5 не должны были дойти до исполнителя
	executor.mu.Lock()
	defer executor.mu.Unlock()
	if _, ok := executor.contexts["4"]; ok {
		t.Error("blocked step 4 must never be dispatched")
	}
	if _, ok := executor.contexts["5"]; ok {
		t.Error("blocked step 5 must never be dispatched")
	}
}

func TestRun_ContextIsolation(t *testing.T) {
	executor := newRecordingExecutor()
	o := newTestOrchestrator(executor, PolicyBestEffort)

	if _, err := o.Run(context.Background(), scenarioPlan()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Шаг 4 видит ровно результаты своих need: {2, 3}
	executor.mu.Lock()
	ctx4 := executor.contexts["4"]
	executor.mu.Unlock()

	if len(ctx4) != 2 {
		t.Fatalf("step 4 context should have exactly 2 entries, got %v", ctx4)
	}
	if ctx4["2"] != "result of 2" || ctx4["3"] != "result of 3" {
		t.Errorf("unexpected context for step 4: %v", ctx4)
	}
	if _, ok := ctx4["1"]; ok {
		t.Error("step 4 context must not contain step 1 (not in its need)")
	}
}

func TestRun_FileStepsSerialized(t *testing.T) {
	// Два независимых File шага: суммарное время ≥ суммы длительностей
	executor := newRecordingExecutor()
	executor.delay["a"] = 150 * time.Millisecond
	executor.delay["b"] = 150 * time.Millisecond
	o := newTestOrchestrator(executor, PolicyBestEffort)

	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "a", Capability: domain.CapabilityFile, Task: "a"},
			{ID: "b", Capability: domain.CapabilityFile, Task: "b"},
		},
	}

	start := time.Now()
	report, err := o.Run(context.Background(), plan)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcome != domain.OutcomeAllCompleted {
		t.Errorf("expected ALL_COMPLETED, got %s", report.Outcome)
	}
	if elapsed < 300*time.Millisecond {
		t.Errorf("File steps must be serialized: wall time %v < 300ms", elapsed)
	}
}

func TestRun_IndependentStepsRunConcurrently(t *testing.T) {
	executor := newRecordingExecutor()
	executor.delay["a"] = 150 * time.Millisecond
	executor.delay["b"] = 150 * time.Millisecond
	o := newTestOrchestrator(executor, PolicyBestEffort)

	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "a", Capability: domain.CapabilityWeb, Task: "a"},
			{ID: "b", Capability: domain.CapabilityWeb, Task: "b"},
		},
	}

	start := time.Now()
	if _, err := o.Run(context.Background(), plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed >= 280*time.Millisecond {
		t.Errorf("independent Web steps should run in parallel, wall time %v", elapsed)
	}
}

func TestRun_FailFastCancelsIndependentBranch(t *testing.T) {
	executor := newRecordingExecutor()
	executor.fail["bad"] = true
	// slow стартует вместе с bad и должен быть отменён до завершения
	executor.delay["slow"] = 2 * time.Second
	o := newTestOrchestrator(executor, PolicyFailFast)

	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "bad", Capability: domain.CapabilityWeb, Task: "bad"},
			{ID: "slow", Capability: domain.CapabilityCasual, Task: "slow"},
			{ID: "after", Capability: domain.CapabilityCasual, Task: "after", Need: []string{"slow"}},
		},
	}

	start := time.Now()
	report, err := o.Run(context.Background(), plan)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed >= 1500*time.Millisecond {
		t.Errorf("fail-fast should cancel the slow branch, wall time %v", elapsed)
	}

	statuses := make(map[string]domain.StepStatus)
	for _, s := range report.Steps {
		statuses[s.ID] = s.Status
	}
	if statuses["bad"] != domain.StepStatusFailed {
		t.Errorf("step bad should be FAILED, got %s", statuses["bad"])
	}
	if statuses["slow"] != domain.StepStatusFailed {
		t.Errorf("cancelled step slow should be FAILED, got %s", statuses["slow"])
	}
	if statuses["after"] != domain.StepStatusBlocked {
		t.Errorf("step after should be BLOCKED, got %s", statuses["after"])
	}
	if report.Outcome != domain.OutcomeTotalFailure {
		t.Errorf("expected TOTAL_FAILURE, got %s", report.Outcome)
	}
}

func TestRun_BestEffortLetsBranchesFinish(t *testing.T) {
	executor := newRecordingExecutor()
	executor.fail["bad"] = true
	executor.delay["slow"] = 100 * time.Millisecond
	o := newTestOrchestrator(executor, PolicyBestEffort)

	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "bad", Capability: domain.CapabilityWeb, Task: "bad"},
			{ID: "slow", Capability: domain.CapabilityCasual, Task: "slow"},
		},
	}

	report, err := o.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	statuses := make(map[string]domain.StepStatus)
	for _, s := range report.Steps {
		statuses[s.ID] = s.Status
	}
	if statuses["slow"] != domain.StepStatusCompleted {
		t.Errorf("independent branch should complete under best-effort, got %s", statuses["slow"])
	}
	if report.Outcome != domain.OutcomePartialFailure {
		t.Errorf("expected PARTIAL_FAILURE, got %s", report.Outcome)
	}
}

func TestRun_TotalFailure(t *testing.T) {
	executor := newRecordingExecutor()
	executor.fail["only"] = true
	o := newTestOrchestrator(executor, PolicyBestEffort)

	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "only", Capability: domain.CapabilityWeb, Task: "only"},
		},
	}

	report, err := o.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcome != domain.OutcomeTotalFailure {
		t.Errorf("expected TOTAL_FAILURE, got %s", report.Outcome)
	}
	if report.Steps[0].Error == "" {
		t.Error("failed step should carry its error")
	}
}

func TestRun_EachStepDispatchedAtMostOnce(t *testing.T) {
	executor := newRecordingExecutor()
	o := newTestOrchestrator(executor, PolicyBestEffort)

	// Ромб: D зависит от B и C — завершение обоих не должно
	// диспетчеризовать D дважды
	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "A", Capability: domain.CapabilityWeb, Task: "A"},
			{ID: "B", Capability: domain.CapabilityWeb, Task: "B", Need: []string{"A"}},
			{ID: "C", Capability: domain.CapabilityWeb, Task: "C", Need: []string{"A"}},
			{ID: "D", Capability: domain.CapabilityWeb, Task: "D", Need: []string{"B", "C"}},
		},
	}

	if _, err := o.Run(context.Background(), plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls := atomic.LoadInt32(&executor.calls); calls != 4 {
		t.Errorf("expected exactly 4 dispatches, got %d", calls)
	}
}

func TestRun_ReportOrderedByCompletion(t *testing.T) {
	executor := newRecordingExecutor()
	// b завершается позже a, хотя объявлен раньше
	executor.delay["b"] = 200 * time.Millisecond
	o := newTestOrchestrator(executor, PolicyBestEffort)

	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "b", Capability: domain.CapabilityWeb, Task: "b"},
			{ID: "a", Capability: domain.CapabilityCasual, Task: "a"},
		},
	}

	report, err := o.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Steps[0].ID != "a" || report.Steps[1].ID != "b" {
		t.Errorf("report should be ordered by completion time, got %s, %s",
			report.Steps[0].ID, report.Steps[1].ID)
	}
}
