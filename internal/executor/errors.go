package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Conduit/internal/expr"
)

// Ошибки реестра.
var (
	// ErrExecutorNotFound — тип узла не найден в реестре.
	ErrExecutorNotFound = errors.New("executor not found")

	// ErrInvalidConfig — невалидная конфигурация узла.
	ErrInvalidConfig = errors.New("invalid node config")
)

// Kind — классификация ошибки узла.
//
// От Kind зависит политика движка: Transient повторяется с backoff,
// остальные немедленно эскалируют в провал job.
type Kind string

const (
	// KindTransient — временная ошибка, пригодная для retry
	// (сетевой сбой, 429, 5xx).
	KindTransient Kind = "transient"

	// KindUpstreamFailure — внешний вызов ответил ошибкой,
	// retry не поможет (4xx, ошибка модели).
	KindUpstreamFailure Kind = "upstream_failure"

	// KindTimeout — узел превысил лимит времени. Не повторяется.
	KindTimeout Kind = "timeout"

	// KindUnresolvedReference — выражение в конфигурации не разрешилось.
	// Не повторяется: контекст узла уже не изменится.
	KindUnresolvedReference Kind = "unresolved_reference"
)

// NodeError — ошибка выполнения узла.
type NodeError struct {
	// Kind — классификация ошибки.
	Kind Kind

	// Message — описание ошибки.
	Message string

	// StatusCode — HTTP-статус внешнего вызова, если применимо.
	StatusCode int

	// Err — исходная ошибка.
	Err error
}

// Error реализует интерфейс error.
func (e *NodeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap возвращает исходную ошибку.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// Retryable сообщает, имеет ли смысл повторять узел.
func (e *NodeError) Retryable() bool {
	return e.Kind == KindTransient
}

// Transient создаёт retryable ошибку.
func Transient(err error, format string, args ...any) *NodeError {
	return &NodeError{Kind: KindTransient, Message: fmt.Sprintf(format, args...), Err: err}
}

// Upstream создаёт ошибку внешнего вызова.
func Upstream(statusCode int, err error, format string, args ...any) *NodeError {
	return &NodeError{Kind: KindUpstreamFailure, StatusCode: statusCode, Message: fmt.Sprintf(format, args...), Err: err}
}

// Timeout создаёт ошибку превышения лимита времени.
func Timeout(err error, format string, args ...any) *NodeError {
	return &NodeError{Kind: KindTimeout, Message: fmt.Sprintf(format, args...), Err: err}
}

// Classify приводит произвольную ошибку к NodeError.
//
// Уже классифицированные ошибки возвращаются как есть; ошибки выражений
// становятся KindUnresolvedReference, истёкший дедлайн — KindTimeout,
// всё остальное — KindUpstreamFailure.
func Classify(err error) *NodeError {
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return nodeErr
	}

	var exprErr *expr.Error
	if errors.As(err, &exprErr) {
		return &NodeError{Kind: KindUnresolvedReference, Message: exprErr.Error(), Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &NodeError{Kind: KindTimeout, Message: "node execution deadline exceeded", Err: err}
	}

	return &NodeError{Kind: KindUpstreamFailure, Message: err.Error(), Err: err}
}
