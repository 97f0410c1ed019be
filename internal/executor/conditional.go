package executor

import (
	"context"
	"fmt"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/expr"
)

// Ключ конфигурации conditional-узла.
const configCondition = "condition"

// ConditionalExecutor — узел ветвления.
//
// Вычисляет condition против контекста выполнения и выбирает
// true_edge либо false_edge. Данных не производит — только
// решение о маршруте.
//
// Конфигурация:
//
//	{"condition": "{{classify.output.category}} == 'technical'"}
//
// Условие вычисляется целиком (не подставляется как текст),
// поэтому движок передаёт конфигурацию этого узла без
// предварительного разрешения выражений.
type ConditionalExecutor struct{}

// NewConditionalExecutor создаёт ConditionalExecutor.
func NewConditionalExecutor() *ConditionalExecutor {
	return &ConditionalExecutor{}
}

// Type возвращает тип узла.
func (e *ConditionalExecutor) Type() domain.NodeType {
	return domain.NodeTypeConditional
}

// ValidateConfig проверяет наличие условия.
func (e *ConditionalExecutor) ValidateConfig(node *domain.Node) error {
	if ConfigString(node.Config, configCondition) == "" {
		return fmt.Errorf("%w: %s: condition is required", ErrInvalidConfig, node.ID)
	}
	return nil
}

// Execute вычисляет условие и возвращает решение о маршруте.
func (e *ConditionalExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	condition := ConfigString(req.Config, configCondition)

	result, err := expr.EvalCondition(condition, req.ExprContext)
	if err != nil {
		return nil, err
	}

	selected := domain.EdgeLabelFalse
	if result {
		selected = domain.EdgeLabelTrue
	}
	return &Response{
		Output:       make(map[string]any),
		SelectedEdge: selected,
	}, nil
}
