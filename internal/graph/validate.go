package graph

import (
	"fmt"
	"sort"

	"github.com/shaiso/Conduit/internal/domain"
)

// NodeChecker — проверка типов и конфигурации узлов при валидации.
//
// Реализуется executor.Registry: реестр знает закрытый набор типов
// и умеет проверять форму конфигурации для каждого из них.
// Nil-checker допустим — тогда проверяется только структура графа.
type NodeChecker interface {
	// Known возвращает true, если тип узла зарегистрирован.
	Known(t domain.NodeType) bool

	// ValidateConfig проверяет форму конфигурации узла.
	ValidateConfig(node *domain.Node) error
}

// Validate выполняет полную структурную валидацию workflow.
//
// Проверки, по порядку:
//   - Наличие узлов, непустые и уникальные ID
//   - Известность типов узлов и форма их конфигурации (через checker)
//   - Ровно один узел типа start, без входящих рёбер
//   - Все рёбра ссылаются на существующие узлы
//   - Все узлы достижимы из start
//   - Отсутствие циклов (топологическая сортировка Кана)
//   - Исходящие рёбра conditional узлов: ровно true_edge и false_edge
//
// Валидация выполняется один раз при создании определения.
// Ошибка блокирует сохранение целиком — никогда не откладывается
// до выполнения.
func Validate(wf *domain.Workflow, checker NodeChecker) error {
	if wf == nil || len(wf.Nodes) == 0 {
		return NewValidationError("", "workflow has no nodes", ErrEmptyNodes)
	}

	// ID узлов: непустые, уникальные; типы известны
	seen := make(map[string]bool, len(wf.Nodes))
	var startID string
	for i := range wf.Nodes {
		node := &wf.Nodes[i]

		if node.ID == "" {
			return NewValidationError("", "node has empty ID", ErrEmptyNodeID)
		}
		if seen[node.ID] {
			return NewValidationError(node.ID, "duplicate node ID", ErrDuplicateNodeID)
		}
		seen[node.ID] = true

		if checker != nil {
			if !checker.Known(node.Type) {
				return NewValidationError(node.ID,
					fmt.Sprintf("unknown node type: %s", node.Type), ErrUnknownNodeType)
			}
			if err := checker.ValidateConfig(node); err != nil {
				return NewValidationError(node.ID,
					fmt.Sprintf("invalid config: %v", err), ErrInvalidConfig)
			}
		}

		if node.Type == domain.NodeTypeStart {
			if startID != "" {
				return NewValidationError(node.ID, "multiple start nodes", ErrMultipleStartNodes)
			}
			startID = node.ID
		}
	}

	if startID == "" {
		return NewValidationError("", "no start node", ErrNoStartNode)
	}

	// Рёбра ссылаются на существующие узлы
	for _, edge := range wf.Edges {
		if !seen[edge.Source] {
			return NewValidationError(edge.Source,
				fmt.Sprintf("edge source %q does not exist", edge.Source), ErrUnknownEdgeNode)
		}
		if !seen[edge.Target] {
			return NewValidationError(edge.Target,
				fmt.Sprintf("edge target %q does not exist", edge.Target), ErrUnknownEdgeNode)
		}
		if edge.Target == startID {
			return NewValidationError(startID, "start node has inbound edge", ErrStartInbound)
		}
	}

	// Достижимость из start (BFS по исходящим рёбрам)
	out := make(map[string][]string)
	for _, edge := range wf.Edges {
		out[edge.Source] = append(out[edge.Source], edge.Target)
	}

	reached := map[string]bool{startID: true}
	queue := []string{startID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range out[id] {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}

	for i := range wf.Nodes {
		if !reached[wf.Nodes[i].ID] {
			return NewValidationError(wf.Nodes[i].ID, "unreachable from start", ErrUnreachableNode)
		}
	}

	// Ацикличность
	if cycleNode := findCycleNode(wf); cycleNode != "" {
		return NewValidationError(cycleNode, "graph contains a cycle", ErrCyclicGraph)
	}

	// Conditional: ровно два исходящих ребра с метками true_edge и false_edge
	for i := range wf.Nodes {
		node := &wf.Nodes[i]
		if node.Type != domain.NodeTypeConditional {
			continue
		}

		labels := make(map[string]int)
		total := 0
		for _, edge := range wf.Edges {
			if edge.Source != node.ID {
				continue
			}
			total++
			labels[edge.Label]++
		}

		if total != 2 || labels[domain.EdgeLabelTrue] != 1 || labels[domain.EdgeLabelFalse] != 1 {
			return NewValidationError(node.ID,
				"outgoing edges must be exactly true_edge and false_edge", ErrConditionalEdges)
		}
	}

	return nil
}

// findCycleNode выполняет топологическую сортировку (алгоритм Кана)
// и возвращает ID узла, участвующего в цикле, либо пустую строку.
//
// Узлы с ненулевой остаточной inDegree после сортировки лежат на цикле
// или достижимы только через него; возвращается лексикографически
// первый для детерминизма сообщений.
func findCycleNode(wf *domain.Workflow) string {
	inDegree := make(map[string]int, len(wf.Nodes))
	out := make(map[string][]string)

	for i := range wf.Nodes {
		inDegree[wf.Nodes[i].ID] = 0
	}
	for _, edge := range wf.Edges {
		out[edge.Source] = append(out[edge.Source], edge.Target)
		inDegree[edge.Target]++
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++

		for _, next := range out[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if processed == len(wf.Nodes) {
		return ""
	}

	var remaining []string
	for id, deg := range inDegree {
		if deg > 0 {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	return remaining[0]
}
