package executor

import (
	"context"

	"github.com/shaiso/Conduit/internal/domain"
)

// StartExecutor — точка входа workflow.
//
// Не выполняет работы: отдаёт input job как свой output,
// делая его доступным дальше через {{ start_id.output.field }}.
type StartExecutor struct{}

// NewStartExecutor создаёт StartExecutor.
func NewStartExecutor() *StartExecutor {
	return &StartExecutor{}
}

// Type возвращает тип узла.
func (e *StartExecutor) Type() domain.NodeType {
	return domain.NodeTypeStart
}

// ValidateConfig проверяет конфигурацию. Start не требует конфигурации.
func (e *StartExecutor) ValidateConfig(node *domain.Node) error {
	return nil
}

// Execute пробрасывает input job в output узла.
func (e *StartExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	return NewResponse(req.ExprContext.Input), nil
}
