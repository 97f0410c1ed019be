package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/model"
)

// Ключи конфигурации llm-узла.
const (
	configModel        = "model"
	configPrompt       = "prompt"
	configSystem       = "system"
	configTemperature  = "temperature"
	configMaxTokens    = "max_tokens"
	configOutputFormat = "output_format"
)

const defaultLLMTimeout = 120 * time.Second

// LLMExecutor — узел вызова языковой модели.
//
// Конфигурация:
//
//	{
//	    "model": "gpt-4o-mini",
//	    "system": "You are a support classifier.",
//	    "prompt": "Classify this message: {{input.message}}",
//	    "temperature": 0.2,
//	    "max_tokens": 512,
//	    "output_format": "json"
//	}
//
// Output:
//
//	{"text": "...", "model": "...", "input_tokens": N, "output_tokens": N}
//
// При output_format=json текст ответа парсится и его поля добавляются
// в output рядом с text — так условие может обращаться к
// {{ node.output.category }} напрямую.
type LLMExecutor struct {
	invoker model.Invoker
}

// NewLLMExecutor создаёт LLMExecutor поверх клиента модели.
func NewLLMExecutor(invoker model.Invoker) *LLMExecutor {
	return &LLMExecutor{invoker: invoker}
}

// Type возвращает тип узла.
func (e *LLMExecutor) Type() domain.NodeType {
	return domain.NodeTypeLLM
}

// ValidateConfig проверяет конфигурацию llm-узла.
func (e *LLMExecutor) ValidateConfig(node *domain.Node) error {
	if ConfigString(node.Config, configPrompt) == "" {
		return fmt.Errorf("%w: %s: prompt is required", ErrInvalidConfig, node.ID)
	}
	if format := ConfigString(node.Config, configOutputFormat); format != "" && format != "text" && format != "json" {
		return fmt.Errorf("%w: %s: unknown output_format %q", ErrInvalidConfig, node.ID, format)
	}
	return nil
}

// Execute вызывает модель и возвращает её ответ.
func (e *LLMExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = defaultLLMTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := e.invoker.Invoke(callCtx, &model.Request{
		Model:       ConfigString(req.Config, configModel),
		System:      ConfigString(req.Config, configSystem),
		Prompt:      ConfigString(req.Config, configPrompt),
		Temperature: ConfigFloat(req.Config, configTemperature),
		MaxTokens:   ConfigInt(req.Config, configMaxTokens),
	})
	if err != nil {
		return nil, classifyModelErr(err)
	}

	output := map[string]any{
		"text":          resp.Text,
		"model":         resp.Model,
		"input_tokens":  resp.InputTokens,
		"output_tokens": resp.OutputTokens,
	}

	if ConfigString(req.Config, configOutputFormat) == "json" {
		parsed, err := parseJSONOutput(resp.Text)
		if err != nil {
			return nil, Upstream(0, err, "model did not return valid json: %v", err)
		}
		for key, value := range parsed {
			output[key] = value
		}
	}

	return NewResponse(output), nil
}

// classifyModelErr классифицирует ошибку провайдера.
// Rate limit и 5xx — transient, остальные статусы — upstream failure,
// ошибка без статуса (сеть, обрыв) — transient.
func classifyModelErr(err error) *NodeError {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err, "model invocation deadline exceeded")
	}

	status := model.StatusCode(err)
	switch {
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return Transient(err, "model invocation failed: %v", err)
	case status > 0:
		return Upstream(status, err, "model invocation failed: %v", err)
	default:
		return Transient(err, "model invocation failed: %v", err)
	}
}

// parseJSONOutput извлекает JSON-объект из текста ответа.
// Модели часто оборачивают JSON в markdown-ограждение.
func parseJSONOutput(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}
