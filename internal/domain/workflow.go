package domain

import (
	"time"

	"github.com/google/uuid"
)

// NodeType — тип узла workflow.
//
// Закрытый набор встроенных типов. Новые типы регистрируются
// в executor.Registry при старте процесса.
type NodeType string

// Встроенные типы узлов.
const (
	// NodeTypeStart — точка входа; пропускает входные данные job без изменений.
	NodeTypeStart NodeType = "start"

	// NodeTypeLLM — вызов языковой модели через внешний сервис.
	NodeTypeLLM NodeType = "llm"

	// NodeTypeHTTP — HTTP-запрос к внешнему API.
	NodeTypeHTTP NodeType = "http"

	// NodeTypeCode — выполнение пользовательского кода в изолированной песочнице.
	NodeTypeCode NodeType = "code"

	// NodeTypeConditional — ветвление по условию; выбирает одно из двух рёбер.
	NodeTypeConditional NodeType = "conditional"

	// NodeTypeEnd — терминальный узел; собирает итоговый результат job.
	NodeTypeEnd NodeType = "end"
)

// Метки исходящих рёбер conditional узла.
const (
	EdgeLabelTrue  = "true_edge"
	EdgeLabelFalse = "false_edge"
)

// Workflow — определение рабочего процесса.
//
// Workflow — это неизменяемый граф типизированных узлов и рёбер.
// Изменение определения создаёт новый workflow, существующие jobs
// продолжают ссылаться на старый.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — имя workflow (например, "support-triage").
	Name string `json:"name"`

	// Nodes — узлы графа.
	Nodes []Node `json:"nodes"`

	// Edges — направленные рёбра между узлами.
	Edges []Edge `json:"edges"`

	// CreatedAt — время создания workflow.
	CreatedAt time.Time `json:"created_at"`
}

// Node — узел workflow.
type Node struct {
	// ID — идентификатор узла, уникальный в рамках workflow.
	// Используется в рёбрах и для ссылок на outputs: {{ node_id.output.field }}.
	ID string `json:"id"`

	// Type — тип узла: "start", "llm", "http", "code", "conditional", "end".
	Type NodeType `json:"type"`

	// Config — конфигурация узла (зависит от типа).
	// Значения могут содержать выражения {{ ... }}, разрешаемые при выполнении.
	Config map[string]any `json:"config,omitempty"`
}

// Edge — направленное ребро между узлами.
type Edge struct {
	// Source — ID узла-источника.
	Source string `json:"source"`

	// Target — ID узла-приёмника.
	Target string `json:"target"`

	// Label — метка ребра. Для исходящих рёбер conditional узла
	// обязательна: "true_edge" или "false_edge".
	Label string `json:"label,omitempty"`
}

// NodeByID возвращает узел по ID или nil.
func (w *Workflow) NodeByID(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// StartNode возвращает узел типа start или nil.
func (w *Workflow) StartNode() *Node {
	for i := range w.Nodes {
		if w.Nodes[i].Type == NodeTypeStart {
			return &w.Nodes[i]
		}
	}
	return nil
}
