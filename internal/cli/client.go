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

// WorkflowResponse — workflow из API.
type WorkflowResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Nodes     []map[string]any `json:"nodes"`
	Edges     []map[string]any `json:"edges"`
	CreatedAt string           `json:"created_at"`
}

// NodeResult — результат узла из API.
type NodeResult struct {
	Status     string         `json:"status"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorKind  string         `json:"error_kind,omitempty"`
	Attempt    int            `json:"attempt,omitempty"`
	StartedAt  string         `json:"started_at,omitempty"`
	FinishedAt string         `json:"finished_at,omitempty"`
}

// JobResponse — job из API.
type JobResponse struct {
	ID             string                `json:"id"`
	WorkflowID     string                `json:"workflow_id"`
	Status         string                `json:"status"`
	Input          map[string]any        `json:"input,omitempty"`
	NodeResults    map[string]NodeResult `json:"node_results,omitempty"`
	Result         map[string]any        `json:"result,omitempty"`
	Error          string                `json:"error,omitempty"`
	FailedNode     string                `json:"failed_node,omitempty"`
	IdempotencyKey string                `json:"idempotency_key,omitempty"`
	StartedAt      string                `json:"started_at,omitempty"`
	FinishedAt     string                `json:"finished_at,omitempty"`
	CreatedAt      string                `json:"created_at"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone"`
	Enabled     bool           `json:"enabled"`
	NextDueAt   string         `json:"next_due_at,omitempty"`
	LastJobAt   string         `json:"last_job_at,omitempty"`
	LastJobID   string         `json:"last_job_id,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

// --- Request types ---

// ExecuteWorkflowRequest — запуск workflow.
type ExecuteWorkflowRequest struct {
	Input          map[string]any `json:"input,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	Input       map[string]any `json:"input,omitempty"`
}

// UpdateScheduleRequest — обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// ListJobsOpts — параметры фильтрации jobs.
type ListJobsOpts struct {
	WorkflowID string
	Status     string
	Limit      int
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
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Conduit API.
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

// --- Workflows ---

// ListWorkflows возвращает все workflows.
func (c *Client) ListWorkflows() ([]WorkflowResponse, error) {
	var workflows []WorkflowResponse
	err := c.list("/api/v1/workflows", nil, &workflows)
	return workflows, err
}

// CreateWorkflow создаёт workflow из JSON-определения.
// Definition — документ с полями name, nodes, edges.
func (c *Client) CreateWorkflow(definition json.RawMessage) (*WorkflowResponse, error) {
	var workflow WorkflowResponse
	err := c.post("/api/v1/workflows", definition, &workflow)
	return &workflow, err
}

// GetWorkflow возвращает workflow по ID.
func (c *Client) GetWorkflow(id string) (*WorkflowResponse, error) {
	var workflow WorkflowResponse
	err := c.get("/api/v1/workflows/"+id, &workflow)
	return &workflow, err
}

// DeleteWorkflow удаляет workflow.
func (c *Client) DeleteWorkflow(id string) error {
	return c.delete("/api/v1/workflows/" + id)
}

// --- Jobs ---

// ListJobs возвращает список jobs с фильтрацией.
func (c *Client) ListJobs(opts ListJobsOpts) ([]JobResponse, error) {
	params := url.Values{}
	if opts.WorkflowID != "" {
		params.Set("workflow_id", opts.WorkflowID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var jobs []JobResponse
	err := c.list("/api/v1/jobs", params, &jobs)
	return jobs, err
}

// ExecuteWorkflow запускает workflow.
func (c *Client) ExecuteWorkflow(workflowID string, req ExecuteWorkflowRequest) (*JobResponse, error) {
	var job JobResponse
	err := c.post("/api/v1/workflows/"+workflowID+"/jobs", req, &job)
	return &job, err
}

// GetJob возвращает job по ID.
func (c *Client) GetJob(id string) (*JobResponse, error) {
	var job JobResponse
	err := c.get("/api/v1/jobs/"+id, &job)
	return &job, err
}

// CancelJob отменяет job.
func (c *Client) CancelJob(id string) (*JobResponse, error) {
	var job JobResponse
	err := c.post("/api/v1/jobs/"+id+"/cancel", nil, &job)
	return &job, err
}

// --- Schedules ---

// ListSchedules возвращает schedules. Если workflowID не пустой — фильтрует.
func (c *Client) ListSchedules(workflowID string) ([]ScheduleResponse, error) {
	params := url.Values{}
	if workflowID != "" {
		params.Set("workflow_id", workflowID)
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule для workflow.
func (c *Client) CreateSchedule(workflowID string, req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/workflows/"+workflowID+"/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// UpdateSchedule обновляет schedule.
func (c *Client) UpdateSchedule(id string, req UpdateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.put("/api/v1/schedules/"+id, req, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// EnableSchedule включает schedule.
func (c *Client) EnableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// DisableSchedule выключает schedule.
func (c *Client) DisableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
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

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
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

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
