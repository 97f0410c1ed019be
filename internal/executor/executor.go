package executor

import (
	"context"
	"time"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/expr"
)

// Executor — интерфейс типа узла.
//
// ValidateConfig вызывается один раз при создании workflow,
// Execute — на каждое выполнение узла в job.
type Executor interface {
	// Type возвращает тип узла.
	Type() domain.NodeType

	// ValidateConfig проверяет конфигурацию узла без её выполнения.
	// Выражения {{ ... }} на этом этапе не разрешаются.
	ValidateConfig(node *domain.Node) error

	// Execute выполняет узел и возвращает результат.
	// Executor обязан уважать ctx для таймаутов и отмены.
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Request — входные данные для выполнения узла.
type Request struct {
	// Node — определение узла.
	Node *domain.Node

	// Config — конфигурация с разрешёнными выражениями.
	// Для conditional-узлов выражения не разрешаются заранее:
	// условие вычисляется самим executor'ом против ExprContext.
	Config map[string]any

	// ExprContext — контекст выражений с input и outputs узлов.
	ExprContext *expr.Context

	// Timeout — лимит времени узла. 0 — лимит по умолчанию для типа.
	Timeout time.Duration
}

// Response — результат выполнения узла.
type Response struct {
	// Output — выходные данные узла, доступные дальше
	// через {{ node_id.output.field }}.
	Output map[string]any

	// SelectedEdge — метка выбранного ребра (только conditional).
	SelectedEdge string
}

// NewResponse создаёт Response с output.
func NewResponse(output map[string]any) *Response {
	if output == nil {
		output = make(map[string]any)
	}
	return &Response{Output: output}
}

// ConfigString извлекает строковое значение из конфигурации.
func ConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ConfigInt извлекает числовое значение из конфигурации.
func ConfigInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// ConfigFloat извлекает float из конфигурации.
// Возвращает nil, если ключа нет или тип не числовой.
func ConfigFloat(config map[string]any, key string) *float64 {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case float64:
			return &n
		case int:
			f := float64(n)
			return &f
		}
	}
	return nil
}

// ConfigMap извлекает map из конфигурации.
func ConfigMap(config map[string]any, key string) map[string]any {
	if v, ok := config[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// ConfigMapString извлекает map[string]string из конфигурации.
func ConfigMapString(config map[string]any, key string) map[string]string {
	if v, ok := config[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}
