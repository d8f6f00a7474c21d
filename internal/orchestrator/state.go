package orchestrator

import (
	"sync"

	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/engine"
)

// RunState — состояние выполнения одного плана в памяти.
//
// RunState создаётся при старте выполнения и умирает вместе с ним —
// после терминального отчёта состояние не переживает процесс.
//
// Содержит:
//   - План и построенный граф (структурно неизменны)
//   - Хранилище результатов завершённых шагов
//   - Текущие in-degree и статусы шагов
//   - Порядок завершения для итогового отчёта
type RunState struct {
	// Plan — выполняемый план. Мутируются только Status/Result/Error шагов.
	Plan *domain.Plan

	// Graph — граф зависимостей шагов.
	Graph *engine.Graph

	// Store — хранилище результатов завершённых шагов.
	Store *engine.Store

	// inDegree — оставшиеся неудовлетворённые зависимости (stepID → count).
	inDegree map[string]int

	// order — ID шагов в порядке достижения терминального статуса.
	order []string

	// mu — мьютекс для потокобезопасного доступа.
	mu sync.Mutex
}

// NewRunState создаёт состояние для валидного плана и его графа.
func NewRunState(plan *domain.Plan, graph *engine.Graph) *RunState {
	inDegree := make(map[string]int, graph.Size())
	for id, node := range graph.Nodes {
		inDegree[id] = node.InDegree
		node.Step.Status = domain.StepStatusPending
	}

	return &RunState{
		Plan:     plan,
		Graph:    graph,
		Store:    engine.NewStore(),
		inDegree: inDegree,
		order:    make([]string, 0, graph.Size()),
	}
}

// MarkReady помечает шаг готовым к диспетчеризации.
func (s *RunState) MarkReady(stepID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Graph.Node(stepID).Step.Status = domain.StepStatusReady
}

// MarkRunning помечает шаг выполняющимся.
func (s *RunState) MarkRunning(stepID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Graph.Node(stepID).Step.Status = domain.StepStatusRunning
}

// MarkCompleted помечает шаг успешно завершённым и записывает результат
// в хранилище. Возвращает ошибку при повторной записи результата.
func (s *RunState) MarkCompleted(stepID, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Store.Put(stepID, result); err != nil {
		return err
	}

	step := s.Graph.Node(stepID).Step
	step.Status = domain.StepStatusCompleted
	step.Result = result
	s.order = append(s.order, stepID)
	return nil
}

// MarkFailed помечает шаг упавшим. Результат не записывается.
func (s *RunState) MarkFailed(stepID, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := s.Graph.Node(stepID).Step
	step.Status = domain.StepStatusFailed
	step.Error = errMsg
	s.order = append(s.order, stepID)
}

// ReadyDependents уменьшает in-degree зависимых завершённого шага и
// возвращает тех, кто стал готов: in-degree достиг нуля и все
// зависимости завершились успешно (не BLOCKED).
func (s *RunState) ReadyDependents(stepID string) []*engine.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ready []*engine.Node
	for _, dependent := range s.Graph.Node(stepID).Dependents {
		s.inDegree[dependent.ID]--
		if s.inDegree[dependent.ID] != 0 {
			continue
		}
		// Заблокированные транзитивным падением не планируются
		if dependent.Step.Status != domain.StepStatusPending {
			continue
		}
		ready = append(ready, dependent)
	}
	return ready
}

// BlockDependents помечает всех транзитивных зависимых упавшего шага
// как BLOCKED. Возвращает ID заблокированных шагов.
func (s *RunState) BlockDependents(stepID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blocked []string
	queue := []*engine.Node{s.Graph.Node(stepID)}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, dependent := range node.Dependents {
			if dependent.Step.Status.IsTerminal() {
				continue
			}
			dependent.Step.Status = domain.StepStatusBlocked
			s.order = append(s.order, dependent.ID)
			blocked = append(blocked, dependent.ID)
			queue = append(queue, dependent)
		}
	}

	return blocked
}

// Order возвращает копию порядка завершения шагов.
func (s *RunState) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := make([]string, len(s.order))
	copy(order, s.order)
	return order
}

// IsTerminal проверяет, достигли ли все шаги терминального статуса.
func (s *RunState) IsTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, node := range s.Graph.Nodes {
		if !node.Step.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Stats возвращает статистику выполнения.
func (s *RunState) Stats() RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := RunStats{Total: s.Graph.Size()}
	for _, node := range s.Graph.Nodes {
		switch node.Step.Status {
		case domain.StepStatusCompleted:
			stats.Completed++
		case domain.StepStatusFailed:
			stats.Failed++
		case domain.StepStatusBlocked:
			stats.Blocked++
		case domain.StepStatusRunning:
			stats.Running++
		}
	}
	return stats
}

// RunStats — статистика выполнения плана.
type RunStats struct {
	Total     int
	Completed int
	Failed    int
	Blocked   int
	Running   int
}
