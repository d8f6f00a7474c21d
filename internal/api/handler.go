package api

import (
	"log/slog"

	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/orchestrator"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	service  *orchestrator.Service
	policies map[domain.Capability]domain.CapabilityPolicy
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Service *orchestrator.Service

	// Policies — действующие политики capabilities (опционально;
	// если nil — используется domain.DefaultPolicies()).
	Policies map[domain.Capability]domain.CapabilityPolicy

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	policies := cfg.Policies
	if policies == nil {
		policies = domain.DefaultPolicies()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:  cfg.Service,
		policies: policies,
		logger:   logger,
	}
}
