package executors

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// Ограничение на размер извлечённого контента страницы.
const maxPageContent = 50000

// urlPattern выделяет первый URL из инструкции шага.
var urlPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// WebExecutor — исполнитель веб-задач: поиск и извлечение контента страниц.
//
// Если инструкция содержит URL — страница скачивается, основной контент
// извлекается readability и санитайзится. Иначе инструкция трактуется
// как поисковый запрос.
type WebExecutor struct {
	search    *duckduckgo.Tool
	client    *http.Client
	sanitizer *bluemonday.Policy
	userAgent string
}

// NewWebExecutor создаёт веб-исполнителя.
func NewWebExecutor() (*WebExecutor, error) {
	ddg, err := duckduckgo.New(10, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, fmt.Errorf("init search client: %w", err)
	}

	return &WebExecutor{
		search:    ddg,
		client:    &http.Client{Timeout: 30 * time.Second},
		sanitizer: bluemonday.StrictPolicy(),
		userAgent: duckduckgo.DefaultUserAgent,
	}, nil
}

// Execute выполняет веб-задачу.
func (e *WebExecutor) Execute(ctx context.Context, task string, execCtx map[string]string) (string, error) {
	if target := urlPattern.FindString(task); target != "" {
		return e.fetch(ctx, target)
	}
	return e.query(ctx, task)
}

// query выполняет поисковый запрос.
func (e *WebExecutor) query(ctx context.Context, q string) (string, error) {
	result, err := e.search.Call(ctx, q)
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}
	return result, nil
}

// fetch скачивает страницу и извлекает основной контент.
func (e *WebExecutor) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}

	content := e.sanitizer.Sanitize(article.TextContent)
	if len(content) > maxPageContent {
		content = content[:maxPageContent] + "\n... (truncated)"
	}

	if article.Title != "" {
		return "TITLE: " + article.Title + "\n\n" + content, nil
	}
	return content, nil
}
