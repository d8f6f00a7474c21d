package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/executors"
)

// Config — конфигурация сервиса.
//
// Загружается из YAML-файла; часть полей переопределяется переменными
// окружения (DB_URL, RABBITMQ_URL, API_PORT, MAX_WORKERS).
type Config struct {
	// ListenAddr — адрес HTTP API (default: ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// DBURL — DSN PostgreSQL для архива отчётов.
	// Пусто — сервис работает без архива, только в памяти.
	DBURL string `yaml:"db_url"`

	// RabbitMQURL — адрес RabbitMQ для удалённых capabilities.
	// Пусто — все capabilities выполняются in-process.
	RabbitMQURL string `yaml:"rabbitmq_url"`

	// Workspace — корень файлового workspace для File capability.
	Workspace string `yaml:"workspace"`

	// FailurePolicy — политика реакции на падение шага:
	// "best_effort" (default) или "fail_fast".
	FailurePolicy string `yaml:"failure_policy"`

	// MaxWorkers — размер пула воркеров планировщика.
	MaxWorkers int `yaml:"max_workers"`

	// LLM — параметры OpenAI-совместимого провайдера для
	// Casual и Coder capabilities.
	LLM executors.LLMConfig `yaml:"llm"`

	// Capabilities — политики capabilities (конкурентность, таймаут, retry).
	// Незаданные capabilities получают политику по умолчанию.
	Capabilities map[string]domain.CapabilityPolicy `yaml:"capabilities"`

	// RemoteCapabilities — capabilities, обслуживаемые внешними
	// воркерами через RabbitMQ вместо in-process исполнителей.
	RemoteCapabilities []string `yaml:"remote_capabilities"`

	// Schedules — планы, подаваемые на выполнение по расписанию.
	Schedules []Schedule `yaml:"schedules"`
}

// Schedule — план, запускаемый по cron-расписанию.
type Schedule struct {
	// Name — имя расписания (для логов).
	Name string `yaml:"name"`

	// Cron — cron-выражение (5 полей).
	Cron string `yaml:"cron"`

	// PlanFile — путь к JSON-файлу плана.
	PlanFile string `yaml:"plan_file"`
}

// Load читает конфигурацию из файла и применяет env-переопределения.
// Пустой путь — конфигурация целиком из окружения и значений по умолчанию.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv переопределяет поля из переменных окружения.
func (c *Config) applyEnv() {
	if v := os.Getenv("DB_URL"); v != "" {
		c.DBURL = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		c.RabbitMQURL = v
	}
	if v := os.Getenv("API_PORT"); v != "" {
		c.ListenAddr = ":" + v
	}
	if v := os.Getenv("MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxWorkers = n
		}
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
}

// applyDefaults заполняет незаданные поля значениями по умолчанию.
func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Workspace == "" {
		c.Workspace = "./workspace"
	}
	if c.FailurePolicy == "" {
		c.FailurePolicy = "best_effort"
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 4
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
}

// validate проверяет согласованность конфигурации.
func (c *Config) validate() error {
	for name := range c.Capabilities {
		if _, err := domain.ParseCapability(name); err != nil {
			return fmt.Errorf("config capabilities: %w", err)
		}
	}

	for _, name := range c.RemoteCapabilities {
		if _, err := domain.ParseCapability(name); err != nil {
			return fmt.Errorf("config remote_capabilities: %w", err)
		}
		if c.RabbitMQURL == "" {
			return fmt.Errorf("remote capability %s requires rabbitmq_url", name)
		}
	}

	for i := range c.Schedules {
		s := &c.Schedules[i]
		if s.Cron == "" || s.PlanFile == "" {
			return fmt.Errorf("schedule %q: cron and plan_file are required", s.Name)
		}
	}

	return nil
}

// Policies возвращает итоговые политики capabilities:
// значения по умолчанию, перекрытые конфигурацией.
func (c *Config) Policies() map[domain.Capability]domain.CapabilityPolicy {
	policies := domain.DefaultPolicies()
	for name, policy := range c.Capabilities {
		policies[domain.Capability(name)] = policy
	}
	return policies
}

// IsRemote проверяет, обслуживается ли capability внешним воркером.
func (c *Config) IsRemote(capability domain.Capability) bool {
	for _, name := range c.RemoteCapabilities {
		if domain.Capability(name) == capability {
			return true
		}
	}
	return false
}
