package graph

import (
	"sort"

	"github.com/shaiso/Conduit/internal/domain"
)

// DAG — направленный ациклический граф узлов workflow.
//
// Строится один раз на job из провалидированного определения;
// движок обходит его, не изменяя. Рёбра хранятся в обе стороны:
// In — для проверки готовности узла, Out — для продвижения фронта.
type DAG struct {
	// Nodes — все узлы графа (nodeID → Node).
	Nodes map[string]*domain.Node

	// In — входящие рёбра по узлу-приёмнику.
	In map[string][]domain.Edge

	// Out — исходящие рёбра по узлу-источнику.
	Out map[string][]domain.Edge

	// StartID — ID единственного start узла.
	StartID string

	// EndIDs — ID узлов типа end (отсортированы для детерминизма).
	EndIDs []string

	// Order — топологически отсортированный список ID узлов.
	Order []string
}

// Build строит DAG из workflow.
//
// Предполагает, что определение уже прошло Validate: структурные
// ошибки здесь не перепроверяются, Build лишь раскладывает рёбра
// по индексам и фиксирует топологический порядок.
func Build(wf *domain.Workflow) (*DAG, error) {
	if cycleNode := findCycleNode(wf); cycleNode != "" {
		return nil, NewValidationError(cycleNode, "graph contains a cycle", ErrCyclicGraph)
	}

	d := &DAG{
		Nodes: make(map[string]*domain.Node, len(wf.Nodes)),
		In:    make(map[string][]domain.Edge),
		Out:   make(map[string][]domain.Edge),
	}

	for i := range wf.Nodes {
		node := &wf.Nodes[i]
		d.Nodes[node.ID] = node

		switch node.Type {
		case domain.NodeTypeStart:
			d.StartID = node.ID
		case domain.NodeTypeEnd:
			d.EndIDs = append(d.EndIDs, node.ID)
		}
	}
	sort.Strings(d.EndIDs)

	for _, edge := range wf.Edges {
		d.Out[edge.Source] = append(d.Out[edge.Source], edge)
		d.In[edge.Target] = append(d.In[edge.Target], edge)
	}

	d.Order = d.topologicalOrder()

	return d, nil
}

// topologicalOrder возвращает ID узлов в топологическом порядке
// (алгоритм Кана). Узлы с равной глубиной упорядочены по ID,
// чтобы порядок был детерминированным.
func (d *DAG) topologicalOrder() []string {
	inDegree := make(map[string]int, len(d.Nodes))
	for id := range d.Nodes {
		inDegree[id] = len(d.In[id])
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(d.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		var unlocked []string
		for _, edge := range d.Out[id] {
			inDegree[edge.Target]--
			if inDegree[edge.Target] == 0 {
				unlocked = append(unlocked, edge.Target)
			}
		}
		sort.Strings(unlocked)
		queue = append(queue, unlocked...)
	}

	return order
}

// Node возвращает узел по ID.
func (d *DAG) Node(id string) *domain.Node {
	return d.Nodes[id]
}

// Size возвращает количество узлов в DAG.
func (d *DAG) Size() int {
	return len(d.Nodes)
}

// Inbound возвращает входящие рёбра узла.
func (d *DAG) Inbound(id string) []domain.Edge {
	return d.In[id]
}

// Outbound возвращает исходящие рёбра узла.
func (d *DAG) Outbound(id string) []domain.Edge {
	return d.Out[id]
}
