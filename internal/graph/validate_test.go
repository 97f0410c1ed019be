package graph

import (
	"errors"
	"testing"

	"github.com/shaiso/Conduit/internal/domain"
)

// linearWorkflow — простой валидный граф start → work → end.
func linearWorkflow() *domain.Workflow {
	return &domain.Workflow{
		Name: "linear",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeStart},
			{ID: "work", Type: domain.NodeTypeHTTP, Config: map[string]any{"url": "http://example.com"}},
			{ID: "end", Type: domain.NodeTypeEnd},
		},
		Edges: []domain.Edge{
			{Source: "start", Target: "work"},
			{Source: "work", Target: "end"},
		},
	}
}

func TestValidate_ValidLinear(t *testing.T) {
	if err := Validate(linearWorkflow(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ValidDiamond(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeStart},
			{ID: "left", Type: domain.NodeTypeHTTP},
			{ID: "right", Type: domain.NodeTypeHTTP},
			{ID: "end", Type: domain.NodeTypeEnd},
		},
		Edges: []domain.Edge{
			{Source: "start", Target: "left"},
			{Source: "start", Target: "right"},
			{Source: "left", Target: "end"},
			{Source: "right", Target: "end"},
		},
	}

	if err := Validate(wf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NoStartNode(t *testing.T) {
	wf := linearWorkflow()
	wf.Nodes[0].Type = domain.NodeTypeHTTP

	err := Validate(wf, nil)
	if !errors.Is(err, ErrNoStartNode) {
		t.Errorf("expected ErrNoStartNode, got %v", err)
	}
}

func TestValidate_MultipleStartNodes(t *testing.T) {
	wf := linearWorkflow()
	wf.Nodes = append(wf.Nodes, domain.Node{ID: "start2", Type: domain.NodeTypeStart})
	wf.Edges = append(wf.Edges, domain.Edge{Source: "start2", Target: "work"})

	err := Validate(wf, nil)
	if !errors.Is(err, ErrMultipleStartNodes) {
		t.Errorf("expected ErrMultipleStartNodes, got %v", err)
	}
}

func TestValidate_DuplicateNodeID(t *testing.T) {
	wf := linearWorkflow()
	wf.Nodes = append(wf.Nodes, domain.Node{ID: "work", Type: domain.NodeTypeHTTP})

	err := Validate(wf, nil)
	if !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("expected ErrDuplicateNodeID, got %v", err)
	}
}

func TestValidate_EdgeToUnknownNode(t *testing.T) {
	wf := linearWorkflow()
	wf.Edges = append(wf.Edges, domain.Edge{Source: "work", Target: "ghost"})

	err := Validate(wf, nil)
	if !errors.Is(err, ErrUnknownEdgeNode) {
		t.Errorf("expected ErrUnknownEdgeNode, got %v", err)
	}
}

func TestValidate_UnreachableNode(t *testing.T) {
	wf := linearWorkflow()
	wf.Nodes = append(wf.Nodes, domain.Node{ID: "island", Type: domain.NodeTypeHTTP})

	err := Validate(wf, nil)
	if !errors.Is(err, ErrUnreachableNode) {
		t.Errorf("expected ErrUnreachableNode, got %v", err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.NodeID != "island" {
		t.Errorf("expected error to reference node island, got %+v", verr)
	}
}

func TestValidate_CycleRejected(t *testing.T) {
	// start → a → b → c → a: цикл a-b-c
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeStart},
			{ID: "a", Type: domain.NodeTypeHTTP},
			{ID: "b", Type: domain.NodeTypeHTTP},
			{ID: "c", Type: domain.NodeTypeHTTP},
		},
		Edges: []domain.Edge{
			{Source: "start", Target: "a"},
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
			{Source: "c", Target: "a"},
		},
	}

	err := Validate(wf, nil)
	if !errors.Is(err, ErrCyclicGraph) {
		t.Fatalf("expected ErrCyclicGraph, got %v", err)
	}

	// Ошибка должна ссылаться на узел, лежащий на цикле
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatal("expected *ValidationError")
	}
	onCycle := map[string]bool{"a": true, "b": true, "c": true}
	if !onCycle[verr.NodeID] {
		t.Errorf("cycle error should name a node on the cycle, got %q", verr.NodeID)
	}
}

func TestValidate_StartWithInboundEdge(t *testing.T) {
	wf := linearWorkflow()
	wf.Edges = append(wf.Edges, domain.Edge{Source: "work", Target: "start"})

	err := Validate(wf, nil)
	if !errors.Is(err, ErrStartInbound) {
		t.Errorf("expected ErrStartInbound, got %v", err)
	}
}

func TestValidate_ConditionalEdges(t *testing.T) {
	base := func() *domain.Workflow {
		return &domain.Workflow{
			Nodes: []domain.Node{
				{ID: "start", Type: domain.NodeTypeStart},
				{ID: "route", Type: domain.NodeTypeConditional, Config: map[string]any{"condition": "1 == 1"}},
				{ID: "yes", Type: domain.NodeTypeHTTP},
				{ID: "no", Type: domain.NodeTypeHTTP},
			},
			Edges: []domain.Edge{
				{Source: "start", Target: "route"},
				{Source: "route", Target: "yes", Label: domain.EdgeLabelTrue},
				{Source: "route", Target: "no", Label: domain.EdgeLabelFalse},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(wf *domain.Workflow)
		wantErr bool
	}{
		{
			name:   "both branches labeled",
			mutate: func(wf *domain.Workflow) {},
		},
		{
			name: "missing false branch",
			mutate: func(wf *domain.Workflow) {
				wf.Edges = wf.Edges[:2]
				wf.Nodes = wf.Nodes[:3]
			},
			wantErr: true,
		},
		{
			name: "unlabeled edge",
			mutate: func(wf *domain.Workflow) {
				wf.Edges[2].Label = ""
			},
			wantErr: true,
		},
		{
			name: "duplicate labels",
			mutate: func(wf *domain.Workflow) {
				wf.Edges[2].Label = domain.EdgeLabelTrue
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := base()
			tt.mutate(wf)

			err := Validate(wf, nil)
			if tt.wantErr && !errors.Is(err, ErrConditionalEdges) {
				t.Errorf("expected ErrConditionalEdges, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// Idempotence: повторная валидация того же определения даёт тот же результат.
func TestValidate_Idempotent(t *testing.T) {
	wf := linearWorkflow()

	first := Validate(wf, nil)
	second := Validate(wf, nil)

	if (first == nil) != (second == nil) {
		t.Errorf("validation is not idempotent: first=%v second=%v", first, second)
	}

	bad := linearWorkflow()
	bad.Edges = append(bad.Edges, domain.Edge{Source: "end", Target: "work"})
	e1 := Validate(bad, nil)
	e2 := Validate(bad, nil)
	if e1 == nil || e2 == nil || e1.Error() != e2.Error() {
		t.Errorf("validation errors differ: %v vs %v", e1, e2)
	}
}
