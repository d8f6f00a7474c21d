package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// RunResponse — run из API.
type RunResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Steps      int    `json:"steps"`
	Outcome    string `json:"outcome,omitempty"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// StepReportResponse — итог одного шага из отчёта.
type StepReportResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ReportResponse — отчёт о выполнении run из API.
type ReportResponse struct {
	RunID   string               `json:"run_id"`
	Outcome string               `json:"outcome"`
	Steps   []StepReportResponse `json:"steps"`
	Summary struct {
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
		Blocked   int `json:"blocked"`
	} `json:"summary"`
}

// CapabilityResponse — capability из API.
type CapabilityResponse struct {
	Name          string `json:"name"`
	MaxConcurrent int    `json:"max_concurrent,omitempty"`
	TimeoutSec    int    `json:"timeout_sec,omitempty"`
}

// ValidateResponse — результат валидации плана.
type ValidateResponse struct {
	Valid bool `json:"valid"`
	Steps int  `json:"steps"`
}

// --- Request types ---

// createRunRequest — запуск плана.
type createRunRequest struct {
	Plan          json.RawMessage `json:"plan"`
	FailurePolicy string          `json:"failure_policy,omitempty"`
}

// validatePlanRequest — валидация плана.
type validatePlanRequest struct {
	Plan json.RawMessage `json:"plan"`
}

// planFile — проводной формат файла плана.
type planFile struct {
	Plan json.RawMessage `json:"plan"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code       string   `json:"code"`
		Message    string   `json:"message"`
		CycleSteps []string `json:"cycle_steps,omitempty"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Maestro API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Runs ---

// ListRuns возвращает список runs.
func (c *Client) ListRuns() ([]RunResponse, error) {
	var runs []RunResponse
	err := c.list("/api/v1/runs", nil, &runs)
	return runs, err
}

// CreateRun запускает план. steps — JSON-массив шагов,
// policy — переопределение failure policy ("" — политика сервиса).
func (c *Client) CreateRun(steps json.RawMessage, policy string) (*RunResponse, error) {
	req := createRunRequest{Plan: steps, FailurePolicy: policy}
	var run RunResponse
	err := c.post("/api/v1/runs", req, &run)
	return &run, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+id, &run)
	return &run, err
}

// GetReport возвращает отчёт завершённого run.
func (c *Client) GetReport(id string) (*ReportResponse, error) {
	var report ReportResponse
	err := c.get("/api/v1/runs/"+id+"/report", &report)
	return &report, err
}

// CancelRun отменяет run.
func (c *Client) CancelRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+id+"/cancel", nil, &run)
	return &run, err
}

// --- Plans ---

// ValidatePlan проверяет план без запуска.
func (c *Client) ValidatePlan(steps json.RawMessage) (*ValidateResponse, error) {
	req := validatePlanRequest{Plan: steps}
	var result ValidateResponse
	err := c.post("/api/v1/plans/validate", req, &result)
	return &result, err
}

// --- Capabilities ---

// ListCapabilities возвращает поддерживаемые capabilities.
func (c *Client) ListCapabilities() ([]CapabilityResponse, error) {
	var capabilities []CapabilityResponse
	err := c.list("/api/v1/capabilities", nil, &capabilities)
	return capabilities, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	if len(er.Error.CycleSteps) > 0 {
		return fmt.Errorf("%s: %s (cycle: %v)", er.Error.Code, er.Error.Message, er.Error.CycleSteps)
	}
	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
