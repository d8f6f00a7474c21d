package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/engine"
	"github.com/shaiso/Maestro/internal/repo"
	"github.com/shaiso/Maestro/internal/telemetry"
)

// ErrRunNotFound — run с таким ID не найден.
var ErrRunNotFound = errors.New("run not found")

// ErrRunFinished — run уже завершён.
var ErrRunFinished = errors.New("run is already finished")

// archiveListLimit — сколько архивных runs подмешивается в List.
const archiveListLimit = 100

// Service управляет жизненным циклом runs поверх Orchestrator.
//
// Активные runs живут в памяти; после завершения итоговый отчёт
// уходит в архив (если он настроен). Архив — только история:
// runs никогда не возобновляются из него после рестарта.
//
// Submit, Get, List и Cancel возвращают снапшоты: копии run,
// не делящие состояние с горутиной выполнения.
type Service struct {
	orch    *Orchestrator
	archive *repo.RunRepo
	logger  *slog.Logger

	mu      sync.RWMutex
	runs    map[uuid.UUID]*domain.Run
	cancels map[uuid.UUID]context.CancelFunc

	wg sync.WaitGroup
}

// ServiceConfig — конфигурация Service.
type ServiceConfig struct {
	Orchestrator *Orchestrator

	// Archive — архив завершённых runs (nil — без архива).
	Archive *repo.RunRepo

	Logger *slog.Logger
}

// NewService создаёт Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		orch:    cfg.Orchestrator,
		archive: cfg.Archive,
		logger:  logger,
		runs:    make(map[uuid.UUID]*domain.Run),
		cancels: make(map[uuid.UUID]context.CancelFunc),
	}
}

// Submit валидирует план и запускает его выполнение в фоне.
// Возвращает run в статусе RUNNING или ошибку валидации.
func (s *Service) Submit(ctx context.Context, plan *domain.Plan, policy FailurePolicy) (*domain.Run, error) {
	if err := engine.Validate(plan); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = s.orch.policy
	}

	run := domain.NewRun(plan)
	run.MarkRunning()

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.runs[run.ID] = run
	s.cancels[run.ID] = cancel
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.Create(ctx, run); err != nil {
			s.logger.Warn("failed to archive run", "run_id", run.ID, "error", err)
		}
	}

	telemetry.WithRunID(s.logger, run.ID.String()).Info("run submitted",
		"steps", plan.Size(),
		"policy", policy,
	)

	// Снапшот до старта горутины: после него run мутирует только execute
	snap := run.Snapshot()

	s.wg.Add(1)
	go s.execute(runCtx, run, policy)

	return snap, nil
}

// execute выполняет план и фиксирует итог run.
//
// Оркестратору отдаётся копия плана: статусы шагов мутируют в ней,
// а run.Plan остаётся планом в том виде, в каком он был подан.
func (s *Service) execute(ctx context.Context, run *domain.Run, policy FailurePolicy) {
	defer s.wg.Done()

	logger := telemetry.WithRunID(s.logger, run.ID.String())

	report, err := s.orch.RunWithPolicy(ctx, run.Plan.Clone(), policy)

	s.mu.Lock()
	switch {
	case ctx.Err() != nil && run.Status == domain.RunStatusCancelled:
		// Итог уже зафиксирован в Cancel
	case err != nil:
		run.MarkFailed(err.Error())
	default:
		run.MarkFinished(report)
	}
	delete(s.cancels, run.ID)
	status := run.Status
	duration := run.Duration()
	s.mu.Unlock()

	logger.Info("run finished",
		"status", status,
		"duration", duration,
	)

	if s.archive != nil {
		if err := s.archive.Update(context.Background(), run); err != nil {
			logger.Warn("failed to archive run result", "error", err)
		}
	}
}

// Get возвращает run по ID: сначала из памяти, затем из архива.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	s.mu.RLock()
	run, ok := s.runs[id]
	var snap *domain.Run
	if ok {
		snap = run.Snapshot()
	}
	s.mu.RUnlock()
	if ok {
		return snap, nil
	}

	if s.archive != nil {
		archived, err := s.archive.GetByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		if err != nil {
			return nil, err
		}
		return archived, nil
	}

	return nil, ErrRunNotFound
}

// List возвращает известные runs, новые первыми: активные и завершённые
// из памяти плюс архивные, пережившие рестарт процесса.
func (s *Service) List(ctx context.Context) ([]*domain.Run, error) {
	s.mu.RLock()
	runs := make([]*domain.Run, 0, len(s.runs))
	seen := make(map[uuid.UUID]bool, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run.Snapshot())
		seen[run.ID] = true
	}
	s.mu.RUnlock()

	if s.archive != nil {
		archived, err := s.archive.List(ctx, repo.RunFilter{Limit: archiveListLimit})
		if err != nil {
			return nil, fmt.Errorf("list archived runs: %w", err)
		}
		for i := range archived {
			if seen[archived[i].ID] {
				continue
			}
			runs = append(runs, &archived[i])
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// Cancel отменяет выполняющийся run.
func (s *Service) Cancel(id uuid.UUID) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	if run.Status.IsTerminal() {
		return nil, ErrRunFinished
	}

	run.MarkCancelled()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}

	telemetry.WithRunID(s.logger, id.String()).Info("run cancelled")
	return run.Snapshot(), nil
}

// Shutdown отменяет активные runs и дожидается их завершения.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for id, cancel := range s.cancels {
		run := s.runs[id]
		if run != nil && !run.Status.IsTerminal() {
			run.MarkCancelled()
		}
		cancel()
	}
	s.cancels = make(map[uuid.UUID]context.CancelFunc)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
