package graph

import "errors"

// Ошибки валидации workflow.
var (
	// ErrEmptyNodes — workflow не содержит узлов.
	ErrEmptyNodes = errors.New("workflow has no nodes")

	// ErrEmptyNodeID — узел не имеет ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNodeType — тип узла не зарегистрирован.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrNoStartNode — отсутствует узел типа start.
	ErrNoStartNode = errors.New("workflow has no start node")

	// ErrMultipleStartNodes — больше одного узла типа start.
	ErrMultipleStartNodes = errors.New("workflow has multiple start nodes")

	// ErrUnknownEdgeNode — ребро ссылается на несуществующий узел.
	ErrUnknownEdgeNode = errors.New("edge references unknown node")

	// ErrUnreachableNode — узел недостижим из start.
	ErrUnreachableNode = errors.New("node is unreachable from start")

	// ErrCyclicGraph — обнаружен цикл в графе.
	ErrCyclicGraph = errors.New("cycle detected in workflow graph")

	// ErrConditionalEdges — исходящие рёбра conditional узла не покрывают
	// обе ветки или метки не уникальны.
	ErrConditionalEdges = errors.New("conditional node must have exactly true_edge and false_edge")

	// ErrStartInbound — start узел не может иметь входящих рёбер.
	ErrStartInbound = errors.New("start node cannot have inbound edges")

	// ErrInvalidConfig — конфигурация узла не проходит проверку типа.
	ErrInvalidConfig = errors.New("invalid node config")
)

// ValidationError — ошибка валидации с контекстом.
//
// Возникает только на этапе создания/обновления определения,
// никогда во время выполнения job.
type ValidationError struct {
	NodeID  string // ID узла, где произошла ошибка (может быть пустым)
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Message: message,
		Err:     err,
	}
}
