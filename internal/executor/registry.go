package executor

import (
	"fmt"
	"sort"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/model"
	"github.com/shaiso/Conduit/internal/sandbox"
)

// Registry — таблица типов узлов.
//
// Собирается один раз при старте процесса и дальше только читается,
// поэтому не нуждается в блокировках. Реализует graph.NodeChecker:
// валидация workflow проверяет типы и конфигурации узлов через реестр.
type Registry struct {
	executors map[domain.NodeType]Executor
}

// NewRegistry собирает реестр из переданных executor'ов.
func NewRegistry(executors ...Executor) *Registry {
	table := make(map[domain.NodeType]Executor, len(executors))
	for _, e := range executors {
		table[e.Type()] = e
	}
	return &Registry{executors: table}
}

// DefaultRegistry собирает реестр со всеми встроенными типами узлов.
func DefaultRegistry(invoker model.Invoker, runner *sandbox.Client) *Registry {
	return NewRegistry(
		NewStartExecutor(),
		NewLLMExecutor(invoker),
		NewHTTPExecutor(),
		NewCodeExecutor(runner),
		NewConditionalExecutor(),
		NewEndExecutor(),
	)
}

// Get возвращает executor по типу узла.
func (r *Registry) Get(nodeType domain.NodeType) (Executor, error) {
	e, ok := r.executors[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutorNotFound, nodeType)
	}
	return e, nil
}

// Known сообщает, зарегистрирован ли тип узла.
func (r *Registry) Known(nodeType domain.NodeType) bool {
	_, ok := r.executors[nodeType]
	return ok
}

// ValidateConfig проверяет конфигурацию узла через его executor.
func (r *Registry) ValidateConfig(node *domain.Node) error {
	e, err := r.Get(node.Type)
	if err != nil {
		return err
	}
	return e.ValidateConfig(node)
}

// Types возвращает отсортированный список зарегистрированных типов.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}
