package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Ошибки вызова модели.
var (
	// ErrEmptyPrompt — пустой prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrNoCompletion — провайдер вернул пустой ответ.
	ErrNoCompletion = errors.New("model returned no completion")
)

// Request — запрос к языковой модели.
type Request struct {
	// Model — идентификатор модели. Пустое значение — модель по умолчанию.
	Model string

	// System — системный prompt (опционально).
	System string

	// Prompt — пользовательский prompt.
	Prompt string

	// Temperature — температура сэмплирования (nil — значение провайдера).
	Temperature *float64

	// MaxTokens — лимит токенов ответа. 0 — лимит по умолчанию.
	MaxTokens int
}

// Response — ответ языковой модели.
type Response struct {
	// Text — текст ответа.
	Text string

	// Model — модель, которая фактически ответила.
	Model string

	// InputTokens — использовано токенов запроса.
	InputTokens int64

	// OutputTokens — использовано токенов ответа.
	OutputTokens int64
}

// Invoker — интерфейс вызова языковой модели.
//
// Движок зависит только от него; в тестах подставляется заглушка.
type Invoker interface {
	// Invoke выполняет один запрос к модели.
	Invoke(ctx context.Context, req *Request) (*Response, error)
}

// Значения по умолчанию.
const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 4096
)

// OpenAIInvoker — Invoker поверх OpenAI-совместимого Chat Completions API.
//
// BaseURL позволяет ходить в совместимых провайдеров
// (OpenRouter, Cerebras, локальные шлюзы).
type OpenAIInvoker struct {
	client openai.Client
	model  string
}

// NewOpenAIInvoker создаёт клиент с ключом и опциональным base URL.
func NewOpenAIInvoker(apiKey, model, baseURL string) *OpenAIInvoker {
	if model == "" {
		model = defaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIInvoker{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Invoke выполняет один запрос к модели.
func (inv *OpenAIInvoker) Invoke(ctx context.Context, req *Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	model := req.Model
	if model == "" {
		model = inv.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:               model,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))
	params.Messages = messages

	resp, err := inv.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoCompletion
	}

	return &Response{
		Text:         resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// StatusCode извлекает HTTP-статус из ошибки провайдера.
// Возвращает 0, если ошибка не содержит статуса (сетевая, контекст).
func StatusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
