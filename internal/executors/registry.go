package executors

import (
	"fmt"
	"log/slog"

	"github.com/shaiso/Maestro/internal/dispatch"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/mq"
)

// RegistryConfig — параметры сборки реестра исполнителей.
type RegistryConfig struct {
	// LLM — провайдер для Casual и Coder.
	LLM LLMConfig

	// Workspace — корень файлового workspace для File.
	Workspace string

	// Remote — capabilities, делегируемые внешним воркерам по AMQP.
	// Требует ненулевого Conn.
	Remote map[domain.Capability]bool

	// Conn — соединение с RabbitMQ (nil, если Remote пуст).
	Conn *mq.Connection

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// BuildRegistry собирает реестр исполнителей для всех capabilities.
//
// In-process по умолчанию: Casual и Coder — LLM, File — workspace,
// Web — поиск и чтение страниц. Capability из Remote получает вместо
// этого RemoteExecutor поверх очереди "maestro.steps.<capability>".
func BuildRegistry(cfg RegistryConfig) (*dispatch.Registry, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	registry := dispatch.NewRegistry()

	for _, capability := range domain.Capabilities {
		if cfg.Remote[capability] {
			if cfg.Conn == nil {
				return nil, fmt.Errorf("remote capability %s: mq connection is required", capability)
			}
			queue := fmt.Sprintf("maestro.steps.%s", capability)
			registry.Register(capability, NewRemoteExecutor(cfg.Conn, queue, cfg.Logger))
			continue
		}

		executor, err := buildLocal(capability, cfg)
		if err != nil {
			return nil, fmt.Errorf("build %s executor: %w", capability, err)
		}
		registry.Register(capability, executor)
	}

	return registry, nil
}

func buildLocal(capability domain.Capability, cfg RegistryConfig) (dispatch.Executor, error) {
	switch capability {
	case domain.CapabilityCasual, domain.CapabilityCoder:
		model, err := NewModel(cfg.LLM)
		if err != nil {
			return nil, err
		}
		if capability == domain.CapabilityCoder {
			return NewCoderExecutor(model), nil
		}
		return NewCasualExecutor(model), nil

	case domain.CapabilityFile:
		return NewFileExecutor(cfg.Workspace), nil

	case domain.CapabilityWeb:
		return NewWebExecutor()

	default:
		return nil, fmt.Errorf("unknown capability: %s", capability)
	}
}
