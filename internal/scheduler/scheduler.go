package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/engine"
	"github.com/shaiso/Maestro/internal/orchestrator"
)

// Entry — одно расписание: cron-выражение и файл плана.
type Entry struct {
	// Name — имя расписания (для логов).
	Name string

	// CronExpr — cron-выражение (5 полей).
	CronExpr string

	// PlanFile — путь к JSON-файлу плана в проводном формате.
	PlanFile string

	nextDue time.Time
}

// Scheduler подаёт планы на выполнение по расписанию.
type Scheduler struct {
	service *orchestrator.Service
	entries []*Entry
	logger  *slog.Logger
}

// Config — конфигурация Scheduler.
type Config struct {
	Service *orchestrator.Service
	Entries []Entry
	Logger  *slog.Logger
}

// New создаёт новый Scheduler. Все cron-выражения и файлы планов
// проверяются сразу: некорректное расписание — ошибка конфигурации.
func New(cfg Config) (*Scheduler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := time.Now()
	entries := make([]*Entry, 0, len(cfg.Entries))
	for i := range cfg.Entries {
		e := cfg.Entries[i]

		nextDue, err := CalculateNextDue(e.CronExpr, now)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", e.Name, err)
		}
		e.nextDue = nextDue

		if _, err := loadPlan(e.PlanFile); err != nil {
			return nil, fmt.Errorf("schedule %q: %w", e.Name, err)
		}

		entries = append(entries, &e)
	}

	return &Scheduler{
		service: cfg.Service,
		entries: entries,
		logger:  logger,
	}, nil
}

// Run крутит цикл планировщика до отмены контекста.
// Тик — раз в секунду.
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.entries) == 0 {
		return
	}

	s.logger.Info("scheduler started", "schedules", len(s.entries))

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick обрабатывает расписания с истекшим nextDue.
// Ошибки одного расписания не блокируют остальные.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	for _, e := range s.entries {
		if now.Before(e.nextDue) {
			continue
		}

		if err := s.submit(ctx, e); err != nil {
			s.logger.Error("scheduled run failed to start",
				"schedule", e.Name,
				"error", err,
			)
		}

		nextDue, err := CalculateNextDue(e.CronExpr, now)
		if err != nil {
			// Выражение проверено в New; сюда попасть нельзя
			s.logger.Error("failed to calculate next due", "schedule", e.Name, "error", err)
			continue
		}
		e.nextDue = nextDue
	}
}

// submit читает файл плана и запускает его.
func (s *Scheduler) submit(ctx context.Context, e *Entry) error {
	plan, err := loadPlan(e.PlanFile)
	if err != nil {
		return err
	}

	run, err := s.service.Submit(ctx, plan, "")
	if err != nil {
		return fmt.Errorf("submit plan: %w", err)
	}

	s.logger.Info("scheduled run started",
		"schedule", e.Name,
		"run_id", run.ID,
		"steps", plan.Size(),
	)
	return nil
}

// loadPlan читает и валидирует план из файла.
func loadPlan(path string) (*domain.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}

	plan, err := domain.ParsePlan(data)
	if err != nil {
		return nil, fmt.Errorf("parse plan file %s: %w", path, err)
	}

	if err := engine.Validate(plan); err != nil {
		return nil, fmt.Errorf("plan file %s: %w", path, err)
	}

	return plan, nil
}
