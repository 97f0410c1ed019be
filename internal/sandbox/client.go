package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ошибки клиента.
var (
	// ErrUnavailable — sandbox-runner недоступен.
	ErrUnavailable = errors.New("sandbox runner unavailable")

	// ErrExecution — код завершился с ошибкой выполнения.
	ErrExecution = errors.New("code execution failed")
)

const (
	defaultRunTimeout = 60 * time.Second
	maxResultBody     = 4 * 1024 * 1024 // 4 MB
)

// RunRequest — запрос на выполнение сниппета.
type RunRequest struct {
	// Language — язык сниппета (python, javascript).
	Language string `json:"language"`

	// Source — исходный код.
	Source string `json:"source"`

	// Input — входные данные, доступные сниппету.
	Input map[string]any `json:"input,omitempty"`

	// TimeoutSec — лимит времени выполнения в секундах.
	TimeoutSec int `json:"timeout_sec,omitempty"`
}

// RunResult — результат выполнения сниппета.
type RunResult struct {
	// Output — структурированный результат, возвращённый сниппетом.
	Output map[string]any `json:"output"`

	// Stdout — захваченный stdout.
	Stdout string `json:"stdout"`

	// Stderr — захваченный stderr.
	Stderr string `json:"stderr"`

	// ExitCode — код завершения процесса.
	ExitCode int `json:"exit_code"`

	// DurationMS — длительность выполнения в миллисекундах.
	DurationMS int64 `json:"duration_ms"`
}

// Client — HTTP-клиент sandbox-runner'а.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient создаёт клиент для заданного адреса runner'а.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: defaultRunTimeout,
		},
	}
}

// Run выполняет сниппет и возвращает результат.
//
// Ошибка самого кода (ненулевой exit code) возвращается как ErrExecution
// с деталями из stderr; сетевые проблемы и 5xx runner'а — как ErrUnavailable.
func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal run request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build run request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBody))
	if err != nil {
		return nil, fmt.Errorf("read run response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrExecution, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result RunResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode run response: %w", err)
	}

	if result.ExitCode != 0 {
		return &result, fmt.Errorf("%w: exit code %d: %s", ErrExecution, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	if result.Output == nil {
		result.Output = make(map[string]any)
	}
	return &result, nil
}
