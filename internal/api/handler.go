package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/executor"
	"github.com/shaiso/Conduit/internal/repo"
)

// JobEngine — контракт движка для запуска и отмены jobs.
// Реализуется engine.Engine.
type JobEngine interface {
	Execute(ctx context.Context, workflowID uuid.UUID, input map[string]any, idempotencyKey string) (*domain.Job, error)
	Cancel(ctx context.Context, jobID uuid.UUID) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflowRepo *repo.WorkflowRepo
	jobRepo      *repo.JobRepo
	scheduleRepo *repo.ScheduleRepo
	engine       JobEngine
	registry     *executor.Registry
	logger       *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	WorkflowRepo *repo.WorkflowRepo
	JobRepo      *repo.JobRepo
	ScheduleRepo *repo.ScheduleRepo
	Engine       JobEngine
	Registry     *executor.Registry
	Logger       *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		workflowRepo: cfg.WorkflowRepo,
		jobRepo:      cfg.JobRepo,
		scheduleRepo: cfg.ScheduleRepo,
		engine:       cfg.Engine,
		registry:     cfg.Registry,
		logger:       cfg.Logger,
	}
}
