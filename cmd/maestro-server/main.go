package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Maestro/internal/api"
	"github.com/shaiso/Maestro/internal/config"
	"github.com/shaiso/Maestro/internal/dispatch"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/executors"
	"github.com/shaiso/Maestro/internal/mq"
	"github.com/shaiso/Maestro/internal/orchestrator"
	"github.com/shaiso/Maestro/internal/repo"
	"github.com/shaiso/Maestro/internal/scheduler"
	"github.com/shaiso/Maestro/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maestro_http_requests_total",
		Help: "Total HTTP requests handled by maestro-server",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting maestro-server")

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	policy, err := orchestrator.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		logger.Error("invalid failure policy", "error", err)
		os.Exit(1)
	}

	// Архив завершённых runs (опционально)
	var runRepo *repo.RunRepo
	if cfg.DBURL != "" {
		pool, err := repo.NewPoolWithDSN(context.Background(), cfg.DBURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		runRepo = repo.NewRunRepo(pool)
		logger.Info("connected to run archive")
	}

	// Соединение с RabbitMQ для удалённых capabilities (опционально)
	var conn *mq.Connection
	if len(cfg.RemoteCapabilities) > 0 {
		conn, err = mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		logger.Info("connected to rabbitmq", "remote", cfg.RemoteCapabilities)
	}

	remote := make(map[domain.Capability]bool)
	for _, name := range cfg.RemoteCapabilities {
		remote[domain.Capability(name)] = true
	}

	registry, err := executors.BuildRegistry(executors.RegistryConfig{
		LLM:       cfg.LLM,
		Workspace: cfg.Workspace,
		Remote:    remote,
		Conn:      conn,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to build executor registry", "error", err)
		os.Exit(1)
	}

	dispatcher := dispatch.New(dispatch.Config{
		Registry: registry,
		Policies: cfg.Policies(),
		Logger:   logger,
	})

	orch := orchestrator.New(orchestrator.Config{
		Dispatcher: dispatcher,
		MaxWorkers: cfg.MaxWorkers,
		Policy:     policy,
		Logger:     logger,
	})

	service := orchestrator.NewService(orchestrator.ServiceConfig{
		Orchestrator: orch,
		Archive:      runRepo,
		Logger:       logger,
	})

	// Планировщик cron-расписаний
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()

	if len(cfg.Schedules) > 0 {
		entries := make([]scheduler.Entry, len(cfg.Schedules))
		for i, s := range cfg.Schedules {
			entries[i] = scheduler.Entry{
				Name:     s.Name,
				CronExpr: s.Cron,
				PlanFile: s.PlanFile,
			}
		}

		sched, err := scheduler.New(scheduler.Config{
			Service: service,
			Entries: entries,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to create scheduler", "error", err)
			os.Exit(1)
		}
		go sched.Run(schedCtx)
	}

	// API handler
	handler := api.NewHandler(api.Config{
		Service:  service,
		Policies: cfg.Policies(),
		Logger:   logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	schedCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := service.Shutdown(shutdownCtx); err != nil {
		logger.Error("service shutdown error", "error", err)
	}

	logger.Info("stopped")
}
