package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/graph"
)

func buildState(t *testing.T, nodes []domain.Node, edges []domain.Edge) *jobState {
	t.Helper()
	wf := &domain.Workflow{ID: uuid.New(), Name: "wf", Nodes: nodes, Edges: edges, CreatedAt: time.Now()}
	dag, err := graph.Build(wf)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	job := &domain.Job{ID: uuid.New(), WorkflowID: wf.ID, Input: map[string]any{}}
	return newJobState(job, dag, nil)
}

func TestJobState_DiamondWaitsForAllPredecessors(t *testing.T) {
	// start -> a, start -> b, a -> join, b -> join
	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "a", Type: domain.NodeTypeLLM, Config: map[string]any{"prompt": "x"}},
		{ID: "b", Type: domain.NodeTypeLLM, Config: map[string]any{"prompt": "x"}},
		{ID: "join", Type: domain.NodeTypeEnd},
	}
	edges := []domain.Edge{
		{Source: "start", Target: "a"},
		{Source: "start", Target: "b"},
		{Source: "a", Target: "join"},
		{Source: "b", Target: "join"},
	}
	s := buildState(t, nodes, edges)

	s.markCompleted("start", nil, "")
	if got := s.readyNodes(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("ready after start = %v, want [a b]", got)
	}

	s.markRunning("a")
	s.markRunning("b")
	s.markCompleted("a", nil, "")

	// join ждёт второй неотсечённый предшественник
	if got := s.readyNodes(); len(got) != 0 {
		t.Fatalf("ready with b running = %v, want none", got)
	}

	s.markCompleted("b", nil, "")
	if got := s.readyNodes(); !reflect.DeepEqual(got, []string{"join"}) {
		t.Fatalf("ready after both = %v, want [join]", got)
	}
}

func TestJobState_ConditionalJoinReadyWhenOtherBranchPruned(t *testing.T) {
	// route -> left(true), route -> right(false), оба -> join
	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "route", Type: domain.NodeTypeConditional, Config: map[string]any{"condition": "true"}},
		{ID: "left", Type: domain.NodeTypeLLM, Config: map[string]any{"prompt": "x"}},
		{ID: "right", Type: domain.NodeTypeLLM, Config: map[string]any{"prompt": "x"}},
		{ID: "join", Type: domain.NodeTypeEnd},
	}
	edges := []domain.Edge{
		{Source: "start", Target: "route"},
		{Source: "route", Target: "left", Label: domain.EdgeLabelTrue},
		{Source: "route", Target: "right", Label: domain.EdgeLabelFalse},
		{Source: "left", Target: "join"},
		{Source: "right", Target: "join"},
	}
	s := buildState(t, nodes, edges)

	s.markCompleted("start", nil, "")
	s.markCompleted("route", nil, domain.EdgeLabelTrue)

	pruned := s.propagatePrunes()
	if !reflect.DeepEqual(pruned, []string{"right"}) {
		t.Fatalf("pruned = %v, want [right]", pruned)
	}

	if got := s.readyNodes(); !reflect.DeepEqual(got, []string{"left"}) {
		t.Fatalf("ready = %v, want [left]", got)
	}

	s.markRunning("left")
	s.markCompleted("left", map[string]any{"ok": true}, "")

	// join готов: left удовлетворён, ребро от right мертво
	if got := s.readyNodes(); !reflect.DeepEqual(got, []string{"join"}) {
		t.Fatalf("ready after left = %v, want [join]", got)
	}
}

func TestJobState_PrunePropagatesTransitively(t *testing.T) {
	// Отсечение route(false) убивает b и всё после него
	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "route", Type: domain.NodeTypeConditional, Config: map[string]any{"condition": "true"}},
		{ID: "a", Type: domain.NodeTypeLLM, Config: map[string]any{"prompt": "x"}},
		{ID: "b", Type: domain.NodeTypeLLM, Config: map[string]any{"prompt": "x"}},
		{ID: "b2", Type: domain.NodeTypeLLM, Config: map[string]any{"prompt": "x"}},
		{ID: "end", Type: domain.NodeTypeEnd},
	}
	edges := []domain.Edge{
		{Source: "start", Target: "route"},
		{Source: "route", Target: "a", Label: domain.EdgeLabelTrue},
		{Source: "route", Target: "b", Label: domain.EdgeLabelFalse},
		{Source: "b", Target: "b2"},
		{Source: "a", Target: "end"},
		{Source: "b2", Target: "end"},
	}
	s := buildState(t, nodes, edges)

	s.markCompleted("start", nil, "")
	s.markCompleted("route", nil, domain.EdgeLabelTrue)

	pruned := s.propagatePrunes()
	if !reflect.DeepEqual(pruned, []string{"b", "b2"}) {
		t.Fatalf("pruned = %v, want [b b2]", pruned)
	}
	if s.pruned["end"] {
		t.Error("end must not be pruned while a live path remains")
	}
}

func TestJobState_CancelIdempotent(t *testing.T) {
	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "end", Type: domain.NodeTypeEnd},
	}
	edges := []domain.Edge{{Source: "start", Target: "end"}}
	s := buildState(t, nodes, edges)

	if s.cancelRequested() {
		t.Fatal("fresh state must not be cancelled")
	}
	s.requestCancel()
	s.requestCancel()
	if !s.cancelRequested() {
		t.Fatal("cancel flag not set")
	}
	select {
	case <-s.cancelCh:
	default:
		t.Fatal("cancel channel not closed")
	}
}
