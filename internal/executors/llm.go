package executors

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Системные промпты для LLM-based capabilities.
const (
	casualSystemPrompt = "You are a helpful assistant. Answer the instruction directly and concisely. " +
		"Results of prior steps, when present, are your only source of prior context."

	coderSystemPrompt = "You are an expert software engineer. Produce the code or technical answer " +
		"the instruction asks for. Use results of prior steps as input data when present."
)

// LLMExecutor — исполнитель для текстовых capabilities (Casual, Coder).
//
// Оборачивает llms.Model: инструкция шага и срез контекста склеиваются
// в один промпт, ответ модели — результат шага.
type LLMExecutor struct {
	model        llms.Model
	systemPrompt string
}

// NewCasualExecutor создаёт исполнителя диалоговых/суммаризационных задач.
func NewCasualExecutor(model llms.Model) *LLMExecutor {
	return &LLMExecutor{model: model, systemPrompt: casualSystemPrompt}
}

// NewCoderExecutor создаёт исполнителя задач генерации кода.
func NewCoderExecutor(model llms.Model) *LLMExecutor {
	return &LLMExecutor{model: model, systemPrompt: coderSystemPrompt}
}

// Execute выполняет текстовую задачу через LLM.
func (e *LLMExecutor) Execute(ctx context.Context, task string, execCtx map[string]string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, e.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildPrompt(task, execCtx)),
	}

	resp, err := e.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// buildPrompt склеивает инструкцию шага со срезом контекста.
func buildPrompt(task string, execCtx map[string]string) string {
	if len(execCtx) == 0 {
		return task
	}

	var b strings.Builder
	b.WriteString("Results of prior steps:\n")
	for id, result := range execCtx {
		b.WriteString("--- step ")
		b.WriteString(id)
		b.WriteString(" ---\n")
		b.WriteString(result)
		b.WriteString("\n")
	}
	b.WriteString("\nInstruction:\n")
	b.WriteString(task)
	return b.String()
}

// LLMConfig — параметры подключения к OpenAI-совместимому провайдеру.
type LLMConfig struct {
	// APIKey — токен провайдера.
	APIKey string `yaml:"api_key"`

	// Model — имя модели.
	Model string `yaml:"model"`

	// BaseURL — адрес OpenAI-совместимого сервера (опционально,
	// для локальных провайдеров).
	BaseURL string `yaml:"base_url,omitempty"`
}

// NewModel создаёт llms.Model из конфигурации.
func NewModel(cfg LLMConfig) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	return model, nil
}
