package domain

import "fmt"

// Capability — закрытое множество типов исполнителей.
//
// Множество фиксировано на уровне деплоймента и не расширяется
// через данные плана: неизвестное имя отклоняется валидатором.
type Capability string

const (
	// CapabilityCoder — генерация и выполнение кода.
	CapabilityCoder Capability = "Coder"

	// CapabilityFile — операции с файловой системой.
	// Единственная capability с жёстким ограничением: не более одного
	// активного экземпляра одновременно (по умолчанию).
	CapabilityFile Capability = "File"

	// CapabilityWeb — поиск и навигация по вебу.
	CapabilityWeb Capability = "Web"

	// CapabilityCasual — диалоговые и суммаризационные задачи (только текст).
	CapabilityCasual Capability = "Casual"
)

// Capabilities — все распознаваемые capabilities.
var Capabilities = []Capability{
	CapabilityCoder,
	CapabilityFile,
	CapabilityWeb,
	CapabilityCasual,
}

// IsValid проверяет, входит ли capability в распознаваемое множество.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityCoder, CapabilityFile, CapabilityWeb, CapabilityCasual:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление Capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability парсит строку в Capability.
func ParseCapability(s string) (Capability, error) {
	c := Capability(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown capability: %q", s)
	}
	return c, nil
}

// CapabilityPolicy — политика выполнения для одной capability.
type CapabilityPolicy struct {
	// MaxConcurrent — максимум одновременно активных шагов.
	// 0 означает без ограничения.
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`

	// TimeoutSec — таймаут одной диспетчеризации в секундах.
	// 0 означает без таймаута.
	TimeoutSec int `json:"timeout_sec" yaml:"timeout_sec"`

	// Retry — политика повторных попыток.
	Retry *RetryPolicy `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// RetryPolicy — политика повторных попыток.
type RetryPolicy struct {
	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// Backoff — стратегия задержки: "fixed", "exponential".
	Backoff string `json:"backoff,omitempty" yaml:"backoff,omitempty"`

	// InitialDelayMs — начальная задержка в миллисекундах.
	InitialDelayMs int `json:"initial_delay_ms,omitempty" yaml:"initial_delay_ms,omitempty"`

	// MaxDelayMs — максимальная задержка в миллисекундах.
	MaxDelayMs int `json:"max_delay_ms,omitempty" yaml:"max_delay_ms,omitempty"`
}

// DefaultPolicies возвращает политики по умолчанию.
//
// File сериализуется до одного активного экземпляра — единственное
// жёсткое ограничение домена. Остальные capabilities без ограничений.
func DefaultPolicies() map[Capability]CapabilityPolicy {
	return map[Capability]CapabilityPolicy{
		CapabilityCoder:  {},
		CapabilityFile:   {MaxConcurrent: 1},
		CapabilityWeb:    {},
		CapabilityCasual: {},
	}
}
