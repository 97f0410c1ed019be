package executor

import (
	"context"

	"github.com/shaiso/Conduit/internal/domain"
)

// Ключ конфигурации end-узла.
const configResult = "result"

// EndExecutor — терминальный узел workflow.
//
// Собирает итоговый результат job из конфигурации:
//
//	{
//	    "result": {
//	        "category": "{{classify.output.category}}",
//	        "reply": "{{respond.output.text}}"
//	    }
//	}
//
// Без ключа result результатом становится вся разрешённая конфигурация;
// пустая конфигурация даёт пустой результат.
type EndExecutor struct{}

// NewEndExecutor создаёт EndExecutor.
func NewEndExecutor() *EndExecutor {
	return &EndExecutor{}
}

// Type возвращает тип узла.
func (e *EndExecutor) Type() domain.NodeType {
	return domain.NodeTypeEnd
}

// ValidateConfig проверяет конфигурацию. End допускает любую конфигурацию.
func (e *EndExecutor) ValidateConfig(node *domain.Node) error {
	return nil
}

// Execute собирает результат job.
func (e *EndExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	result, ok := req.Config[configResult]
	if !ok {
		return NewResponse(req.Config), nil
	}

	if m, ok := result.(map[string]any); ok {
		return NewResponse(m), nil
	}
	return NewResponse(map[string]any{configResult: result}), nil
}
