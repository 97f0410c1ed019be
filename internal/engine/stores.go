package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Conduit/internal/domain"
)

// WorkflowStore — контракт чтения определений workflow.
// Реализуется repo.WorkflowRepo.
type WorkflowStore interface {
	// Get возвращает workflow по ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}

// JobStore — контракт хранилища jobs.
// Реализуется repo.JobRepo.
type JobStore interface {
	// Create сохраняет новый job.
	Create(ctx context.Context, job *domain.Job) error

	// Get возвращает job по ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// GetByIdempotencyKey возвращает job по ключу идемпотентности
	// или nil, если такого job нет.
	GetByIdempotencyKey(ctx context.Context, workflowID uuid.UUID, key string) (*domain.Job, error)

	// Update перезаписывает job целиком.
	Update(ctx context.Context, job *domain.Job) error

	// SetNodeResult записывает результат одного узла, не трогая
	// остальной документ job.
	SetNodeResult(ctx context.Context, jobID uuid.UUID, nodeID string, result domain.NodeResult) error

	// ClaimPending атомарно переводит до limit PENDING jobs в RUNNING
	// и возвращает их. Job, забранный одним вызовом, не вернётся другому.
	ClaimPending(ctx context.Context, limit int) ([]domain.Job, error)

	// CancelPending атомарно переводит PENDING job в CANCELLED.
	// Возвращает false, если job уже не PENDING.
	CancelPending(ctx context.Context, id uuid.UUID) (bool, error)
}

// EventPublisher — контракт публикации событий жизненного цикла.
// Реализуется mq.Publisher.
type EventPublisher interface {
	// PublishEvent публикует событие. Ошибка доставки не должна
	// влиять на выполнение job — движок её только логирует.
	PublishEvent(ctx context.Context, event *domain.Event) error
}
