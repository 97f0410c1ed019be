package engine

import (
	"sync"
	"sync/atomic"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/expr"
	"github.com/shaiso/Conduit/internal/graph"
)

// jobState — состояние выполнения одного job в памяти.
//
// Создаётся при запуске job и живёт до его финализации.
// Все поля кроме сигнала отмены изменяет только горутина-планировщик
// этого job, поэтому карты не защищены мьютексом.
type jobState struct {
	job *domain.Job
	dag *graph.DAG

	// exprCtx — контекст выражений: input job и outputs завершённых узлов.
	exprCtx *expr.Context

	// completed — успешно завершённые узлы.
	completed map[string]bool

	// running — узлы, отправленные на выполнение.
	running map[string]bool

	// failed — упавшие узлы.
	failed map[string]bool

	// pruned — узлы отсечённых веток (все входящие рёбра мертвы).
	pruned map[string]bool

	// selected — выбранные рёбра conditional узлов (nodeID → метка).
	selected map[string]string

	// Сигнал отмены — единственное, что трогают чужие горутины.
	cancelled  atomic.Bool
	cancelOnce sync.Once
	cancelCh   chan struct{}
}

func newJobState(job *domain.Job, dag *graph.DAG, secrets map[string]string) *jobState {
	return &jobState{
		job:       job,
		dag:       dag,
		exprCtx:   expr.NewContext(job.Input, secrets),
		completed: make(map[string]bool),
		running:   make(map[string]bool),
		failed:    make(map[string]bool),
		pruned:    make(map[string]bool),
		selected:  make(map[string]string),
		cancelCh:  make(chan struct{}),
	}
}

// requestCancel взводит сигнал отмены. Идемпотентен.
func (s *jobState) requestCancel() {
	s.cancelOnce.Do(func() {
		s.cancelled.Store(true)
		close(s.cancelCh)
	})
}

// cancelRequested сообщает, запрошена ли отмена.
func (s *jobState) cancelRequested() bool {
	return s.cancelled.Load()
}

// decided сообщает, что узел достиг финального для планирования
// состояния: завершён, упал или отсечён.
func (s *jobState) decided(nodeID string) bool {
	return s.completed[nodeID] || s.failed[nodeID] || s.pruned[nodeID]
}

// edgeSatisfied — ребро удовлетворено: источник завершён, и для
// conditional источника метка ребра совпала с его решением.
func (s *jobState) edgeSatisfied(edge domain.Edge) bool {
	if !s.completed[edge.Source] {
		return false
	}
	if selected, ok := s.selected[edge.Source]; ok {
		return edge.Label == selected
	}
	return true
}

// edgeDead — ребро мертво: источник отсечён, либо conditional
// источник выбрал другую ветку.
func (s *jobState) edgeDead(edge domain.Edge) bool {
	if s.pruned[edge.Source] {
		return true
	}
	if selected, ok := s.selected[edge.Source]; ok {
		return s.completed[edge.Source] && edge.Label != selected
	}
	return false
}

// readyNodes возвращает узлы, готовые к отправке, в топологическом
// порядке: каждое входящее ребро удовлетворено или мертво, и хотя бы
// одно удовлетворено. Сходящиеся пути (ромбы) ждут все неотсечённые
// предшественники.
func (s *jobState) readyNodes() []string {
	var ready []string

	for _, nodeID := range s.dag.Order {
		if s.decided(nodeID) || s.running[nodeID] {
			continue
		}

		inbound := s.dag.Inbound(nodeID)
		if len(inbound) == 0 {
			// Только start узел не имеет входящих рёбер
			ready = append(ready, nodeID)
			continue
		}

		satisfied := 0
		undecided := 0
		for _, edge := range inbound {
			switch {
			case s.edgeSatisfied(edge):
				satisfied++
			case s.edgeDead(edge):
			default:
				undecided++
			}
		}
		if undecided == 0 && satisfied > 0 {
			ready = append(ready, nodeID)
		}
	}

	return ready
}

// propagatePrunes отсекает узлы, все входящие рёбра которых мертвы,
// до неподвижной точки: отсечённый узел убивает свои исходящие рёбра.
// Возвращает ID отсечённых узлов в топологическом порядке.
func (s *jobState) propagatePrunes() []string {
	var newlyPruned []string

	for changed := true; changed; {
		changed = false

		for _, nodeID := range s.dag.Order {
			if s.decided(nodeID) || s.running[nodeID] {
				continue
			}

			inbound := s.dag.Inbound(nodeID)
			if len(inbound) == 0 {
				continue
			}

			allDead := true
			for _, edge := range inbound {
				if !s.edgeDead(edge) {
					allDead = false
					break
				}
			}
			if allDead {
				s.pruned[nodeID] = true
				newlyPruned = append(newlyPruned, nodeID)
				changed = true
			}
		}
	}

	return newlyPruned
}

func (s *jobState) markRunning(nodeID string) {
	s.running[nodeID] = true
}

// markCompleted фиксирует успех узла и делает его output доступным
// выражениям. Для conditional узла запоминается выбранное ребро.
func (s *jobState) markCompleted(nodeID string, output map[string]any, selectedEdge string) {
	delete(s.running, nodeID)
	s.completed[nodeID] = true
	s.exprCtx.AddNodeOutput(nodeID, output)
	if selectedEdge != "" {
		s.selected[nodeID] = selectedEdge
	}
}

func (s *jobState) markFailed(nodeID string) {
	delete(s.running, nodeID)
	s.failed[nodeID] = true
}

func (s *jobState) runningCount() int {
	return len(s.running)
}

// endResult возвращает output первого завершённого end узла.
// false — ни один end не завершён (отсечён или не достигнут).
func (s *jobState) endResult() (map[string]any, bool) {
	for _, endID := range s.dag.EndIDs {
		if s.completed[endID] {
			return s.exprCtx.Nodes[endID], true
		}
	}
	return nil, false
}

// endsPruned сообщает, что все end узлы отсечены.
func (s *jobState) endsPruned() bool {
	for _, endID := range s.dag.EndIDs {
		if !s.pruned[endID] {
			return false
		}
	}
	return len(s.dag.EndIDs) > 0
}
