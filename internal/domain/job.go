package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job — экземпляр выполнения workflow.
//
// Job создаётся когда:
// - Пользователь запускает workflow вручную (через API/CLI)
// - Scheduler создаёт job по расписанию
//
// Во время выполнения job принадлежит единственной горутине движка
// (single-writer). Внешние вызовы могут только отменить job —
// переход статуса, без изменения результатов.
type Job struct {
	// ID — уникальный идентификатор job.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на выполняемый workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Status — текущий статус выполнения.
	Status JobStatus `json:"status"`

	// Input — входные данные, переданные при запуске.
	// Доступны узлам через {{ input.* }}.
	Input map[string]any `json:"input,omitempty"`

	// NodeResults — результаты выполнения узлов (nodeID → NodeResult).
	// Заполняются по мере выполнения; getJob всегда отражает
	// частичное состояние вплоть до точки отказа.
	NodeResults map[string]NodeResult `json:"node_results,omitempty"`

	// Result — итоговый результат job (агрегат end узла).
	Result map[string]any `json:"result,omitempty"`

	// Error — текст ошибки, если job завершился с FAILED.
	Error string `json:"error,omitempty"`

	// FailedNode — ID узла, вызвавшего отказ job.
	FailedNode string `json:"failed_node,omitempty"`

	// IdempotencyKey — ключ идемпотентности для предотвращения дубликатов.
	// Например, для scheduled jobs: "{schedule_id}_{next_due_at}"
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (успешного или с ошибкой).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания job.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления записи.
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeResult — запись о выполнении одного узла в рамках job.
type NodeResult struct {
	// Status — статус выполнения узла.
	Status NodeStatus `json:"status"`

	// Output — выходные данные узла (при SUCCEEDED).
	Output map[string]any `json:"output,omitempty"`

	// Error — текст ошибки (при FAILED).
	Error string `json:"error,omitempty"`

	// ErrorKind — классификация ошибки: "transient", "upstream_failure",
	// "timeout", "unresolved_reference".
	ErrorKind string `json:"error_kind,omitempty"`

	// Attempt — номер последней попытки (retry учитывается).
	Attempt int `json:"attempt,omitempty"`

	// StartedAt — время начала выполнения узла.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения узла.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если job ещё не завершён.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// IsFinished возвращает true, если job завершён (в любом статусе).
func (j *Job) IsFinished() bool {
	return j.Status.IsTerminal()
}

// MarkRunning переводит job в статус RUNNING.
func (j *Job) MarkRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// MarkSucceeded переводит job в статус SUCCEEDED с итоговым результатом.
func (j *Job) MarkSucceeded(result map[string]any) {
	now := time.Now()
	j.Status = JobStatusSucceeded
	j.FinishedAt = &now
	j.Result = result
}

// MarkFailed переводит job в статус FAILED, фиксируя узел-виновник.
func (j *Job) MarkFailed(nodeID, errMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.FinishedAt = &now
	j.FailedNode = nodeID
	j.Error = errMsg
}

// MarkCancelled переводит job в статус CANCELLED.
func (j *Job) MarkCancelled() {
	now := time.Now()
	j.Status = JobStatusCancelled
	j.FinishedAt = &now
}

// SetNodeResult записывает результат узла.
func (j *Job) SetNodeResult(nodeID string, result NodeResult) {
	if j.NodeResults == nil {
		j.NodeResults = make(map[string]NodeResult)
	}
	j.NodeResults[nodeID] = result
}
