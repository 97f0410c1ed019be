package engine

import "errors"

// Ошибки движка.
var (
	// ErrJobNotFound — job не найден.
	ErrJobNotFound = errors.New("job not found")

	// ErrWorkflowNotFound — workflow не найден.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrJobFinished — job уже в терминальном статусе.
	ErrJobFinished = errors.New("job already finished")

	// ErrJobAlreadyActive — job уже обрабатывается движком.
	ErrJobAlreadyActive = errors.New("job already active")

	// ErrJobNotManaged — job выполняется не этим экземпляром движка.
	ErrJobNotManaged = errors.New("job is not managed by this engine instance")

	// ErrEngineStopped — движок остановлен.
	ErrEngineStopped = errors.New("engine stopped")

	// ErrEndUnreachable — end узел недостижим в этом job
	// (все ведущие к нему ветки отсечены).
	ErrEndUnreachable = errors.New("end node unreachable")
)
