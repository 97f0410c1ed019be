package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType — тип события жизненного цикла job.
type EventType string

// События жизненного цикла.
const (
	// EventJobStarted — job перешёл в RUNNING.
	EventJobStarted EventType = "job_started"

	// EventNodeStarted — узел отправлен на выполнение.
	EventNodeStarted EventType = "node_started"

	// EventNodeCompleted — узел успешно завершён.
	EventNodeCompleted EventType = "node_completed"

	// EventNodeFailed — узел завершился с ошибкой (после retry).
	EventNodeFailed EventType = "node_failed"

	// EventJobCompleted — job успешно завершён.
	EventJobCompleted EventType = "job_completed"

	// EventJobFailed — job завершился с ошибкой.
	EventJobFailed EventType = "job_failed"

	// EventJobCancelled — job отменён.
	EventJobCancelled EventType = "job_cancelled"
)

// Event — событие жизненного цикла job.
//
// События публикуются fire-and-forget: доставка не влияет
// на выполнение job. Для каждого узла node_started предшествует
// node_completed/node_failed; терминальное событие job — последнее.
type Event struct {
	// ID — уникальный идентификатор события.
	ID uuid.UUID `json:"id"`

	// JobID — job, к которому относится событие.
	JobID uuid.UUID `json:"job_id"`

	// WorkflowID — workflow выполняемого job.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Type — тип события.
	Type EventType `json:"type"`

	// NodeID — ID узла (только для node_* событий).
	NodeID string `json:"node_id,omitempty"`

	// Payload — дополнительные данные события.
	Payload map[string]any `json:"payload,omitempty"`

	// Timestamp — время возникновения события.
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent создаёт событие для job.
func NewEvent(jobID, workflowID uuid.UUID, eventType EventType) *Event {
	return &Event{
		ID:         uuid.New(),
		JobID:      jobID,
		WorkflowID: workflowID,
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
	}
}

// WithNode добавляет ID узла к событию.
func (e *Event) WithNode(nodeID string) *Event {
	e.NodeID = nodeID
	return e
}

// WithPayload добавляет данные к событию.
func (e *Event) WithPayload(payload map[string]any) *Event {
	e.Payload = payload
	return e
}
