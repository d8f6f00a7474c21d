package scheduler

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaiso/Maestro/internal/dispatch"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/orchestrator"
)

func TestValidateCronExpr(t *testing.T) {
	valid := []string{"* * * * *", "0 3 * * *", "*/5 * * * 1-5"}
	for _, expr := range valid {
		if err := ValidateCronExpr(expr); err != nil {
			t.Errorf("ValidateCronExpr(%q) = %v, want nil", expr, err)
		}
	}

	invalid := []string{"", "not cron", "61 * * * *", "* * * *"}
	for _, expr := range invalid {
		if err := ValidateCronExpr(expr); err == nil {
			t.Errorf("ValidateCronExpr(%q) = nil, want error", expr)
		}
	}
}

func TestCalculateNextDue(t *testing.T) {
	from := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	next, err := CalculateNextDue("0 3 * * *", from)
	if err != nil {
		t.Fatalf("CalculateNextDue: %v", err)
	}

	want := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

type noopExecutor struct{}

func (noopExecutor) Execute(ctx context.Context, task string, execCtx map[string]string) (string, error) {
	return "ok", nil
}

func newTestService(t *testing.T) *orchestrator.Service {
	t.Helper()

	registry := dispatch.NewRegistry()
	for _, capability := range domain.Capabilities {
		registry.Register(capability, noopExecutor{})
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := orchestrator.New(orchestrator.Config{
		Dispatcher: dispatch.New(dispatch.Config{Registry: registry, Logger: logger}),
		Logger:     logger,
	})
	return orchestrator.NewService(orchestrator.ServiceConfig{
		Orchestrator: orch,
		Logger:       logger,
	})
}

func writePlanFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	return path
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	service := newTestService(t)
	planFile := writePlanFile(t, `{"plan":[{"id":"1","agent":"Casual","need":[],"task":"hi"}]}`)

	cases := []struct {
		name  string
		entry Entry
	}{
		{"bad cron", Entry{Name: "x", CronExpr: "nope", PlanFile: planFile}},
		{"missing plan file", Entry{Name: "x", CronExpr: "* * * * *", PlanFile: "/does/not/exist.json"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(Config{Service: service, Entries: []Entry{tc.entry}})
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_RejectsInvalidPlanFile(t *testing.T) {
	service := newTestService(t)
	// План с циклом проходит парсинг, но не валидацию.
	planFile := writePlanFile(t, `{"plan":[
		{"id":"1","agent":"Casual","need":["2"],"task":"a"},
		{"id":"2","agent":"Casual","need":["1"],"task":"b"}
	]}`)

	_, err := New(Config{
		Service: service,
		Entries: []Entry{{Name: "cyclic", CronExpr: "* * * * *", PlanFile: planFile}},
	})
	if err == nil {
		t.Error("expected error for cyclic plan file")
	}
}

func TestTick_SubmitsDuePlans(t *testing.T) {
	service := newTestService(t)
	planFile := writePlanFile(t, `{"plan":[{"id":"1","agent":"Casual","need":[],"task":"hi"}]}`)

	sched, err := New(Config{
		Service: service,
		Entries: []Entry{{Name: "every-minute", CronExpr: "* * * * *", PlanFile: planFile}},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Тик в будущем после nextDue — план должен запуститься.
	sched.Tick(context.Background(), time.Now().Add(2*time.Minute))

	runs, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}

	// Повторный тик в то же время — nextDue уже сдвинут, без нового run.
	sched.Tick(context.Background(), time.Now().Add(2*time.Minute))
	runs, err = service.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("runs after repeat tick = %d, want 1", len(runs))
	}
}
