package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conduit/internal/domain"
)

// Workflow DTOs

// CreateWorkflowRequest — запрос на создание workflow.
type CreateWorkflowRequest struct {
	Name  string        `json:"name"`
	Nodes []domain.Node `json:"nodes"`
	Edges []domain.Edge `json:"edges"`
}

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Nodes     []domain.Node `json:"nodes"`
	Edges     []domain.Edge `json:"edges"`
	CreatedAt time.Time     `json:"created_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(w domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:        w.ID,
		Name:      w.Name,
		Nodes:     w.Nodes,
		Edges:     w.Edges,
		CreatedAt: w.CreatedAt,
	}
}

// Job DTOs

// ExecuteWorkflowRequest — запрос на запуск workflow.
type ExecuteWorkflowRequest struct {
	Input          map[string]any `json:"input,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// JobResponse — ответ с job.
// NodeResults отражают частичное состояние: для незавершённого job
// видны узлы, выполненные к моменту запроса.
type JobResponse struct {
	ID             uuid.UUID                    `json:"id"`
	WorkflowID     uuid.UUID                    `json:"workflow_id"`
	Status         string                       `json:"status"`
	Input          map[string]any               `json:"input,omitempty"`
	NodeResults    map[string]domain.NodeResult `json:"node_results,omitempty"`
	Result         map[string]any               `json:"result,omitempty"`
	Error          string                       `json:"error,omitempty"`
	FailedNode     string                       `json:"failed_node,omitempty"`
	IdempotencyKey string                       `json:"idempotency_key,omitempty"`
	StartedAt      *time.Time                   `json:"started_at,omitempty"`
	FinishedAt     *time.Time                   `json:"finished_at,omitempty"`
	CreatedAt      time.Time                    `json:"created_at"`
}

// JobFromDomain конвертирует domain.Job в JobResponse.
func JobFromDomain(j domain.Job) JobResponse {
	return JobResponse{
		ID:             j.ID,
		WorkflowID:     j.WorkflowID,
		Status:         string(j.Status),
		Input:          j.Input,
		NodeResults:    j.NodeResults,
		Result:         j.Result,
		Error:          j.Error,
		FailedNode:     j.FailedNode,
		IdempotencyKey: j.IdempotencyKey,
		StartedAt:      j.StartedAt,
		FinishedAt:     j.FinishedAt,
		CreatedAt:      j.CreatedAt,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	Input       map[string]any `json:"input,omitempty"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string         `json:"name,omitempty"`
	CronExpr    *string         `json:"cron_expr,omitempty"`
	IntervalSec *int            `json:"interval_sec,omitempty"`
	Timezone    *string         `json:"timezone,omitempty"`
	Input       *map[string]any `json:"input,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID          uuid.UUID      `json:"id"`
	WorkflowID  uuid.UUID      `json:"workflow_id"`
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone"`
	Enabled     bool           `json:"enabled"`
	NextDueAt   *time.Time     `json:"next_due_at,omitempty"`
	LastJobAt   *time.Time     `json:"last_job_at,omitempty"`
	LastJobID   *uuid.UUID     `json:"last_job_id,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:          s.ID,
		WorkflowID:  s.WorkflowID,
		Name:        s.Name,
		CronExpr:    s.CronExpr,
		IntervalSec: s.IntervalSec,
		Timezone:    s.Timezone,
		Enabled:     s.Enabled,
		NextDueAt:   s.NextDueAt,
		LastJobAt:   s.LastJobAt,
		LastJobID:   s.LastJobID,
		Input:       s.Input,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
